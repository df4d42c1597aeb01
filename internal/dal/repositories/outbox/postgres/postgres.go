package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/ledger/internal/dal/postgres"
	"github.com/corray333/backend-labs/ledger/internal/service/models/outbox"
	"github.com/jackc/pgx/v5"
)

const table = "outbox"

var columns = []string{
	"id",
	"event_type",
	"order_id",
	"exchange_name",
	"routing_key",
	"payload",
	"content_type",
	"status",
	"retry_count",
	"max_retries",
	"last_error",
	"created_at",
	"updated_at",
	"next_retry_at",
}

// OutboxRepository keeps order events in the outbox table.
type OutboxRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
	now  func() time.Time
}

var _ ioutboxrepo.IOutboxRepository = (*OutboxRepository)(nil)

// NewOutboxRepository works on a pool for the worker or on a transaction for the store.
func NewOutboxRepository(conn postgres.GenericConn) *OutboxRepository {
	return &OutboxRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		now:  time.Now,
	}
}

func (r *OutboxRepository) Insert(ctx context.Context, msg outbox.OutboxMessage) error {
	status := msg.Status
	if status == "" {
		status = outbox.StatusPending
	}

	query, args, err := r.sb.Insert(table).
		Columns(columns[1:]...).
		Values(
			string(msg.EventType),
			msg.OrderID,
			msg.ExchangeName,
			msg.RoutingKey,
			msg.Payload,
			msg.ContentType,
			string(status),
			msg.RetryCount,
			msg.MaxRetries,
			msg.LastError,
			msg.CreatedAt,
			msg.UpdatedAt,
			msg.NextRetryAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build outbox insert: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s event for order %s: %w", msg.EventType, msg.OrderID, err)
	}

	return nil
}

// ClaimDue pushes next_retry_at of the claimed rows forward by lease in the same statement that
// selects them. Rows locked by a concurrent claim are skipped rather than waited for.
func (r *OutboxRepository) ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]outbox.OutboxMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	now := r.now()

	due := sq.Select("id").
		From(table).
		Where(sq.Eq{"status": string(outbox.StatusPending)}).
		Where(sq.LtOrEq{"next_retry_at": now}).
		OrderBy("id").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED")

	query, args, err := r.sb.Update(table).
		Set("next_retry_at", now.Add(lease)).
		Set("updated_at", now).
		Where(due.Prefix("id IN (").Suffix(")")).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build outbox claim: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("claim outbox messages: %w", err)
	}

	messages, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("read claimed outbox messages: %w", err)
	}

	return messages, nil
}

func (r *OutboxRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := r.sb.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build outbox delete: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete outbox message %d: %w", id, err)
	}

	return nil
}

func (r *OutboxRepository) SaveAttempt(ctx context.Context, msg outbox.OutboxMessage) error {
	updatedAt := msg.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}

	query, args, err := r.sb.Update(table).
		Set("status", string(msg.Status)).
		Set("retry_count", msg.RetryCount).
		Set("last_error", msg.LastError).
		Set("next_retry_at", msg.NextRetryAt).
		Set("updated_at", updatedAt).
		Where(sq.Eq{"id": msg.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build outbox attempt update: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save attempt %d of outbox message %d: %w", msg.RetryCount, msg.ID, err)
	}

	return nil
}

func scanMessage(row pgx.CollectableRow) (outbox.OutboxMessage, error) {
	var (
		msg               outbox.OutboxMessage
		eventType, status string
	)
	err := row.Scan(
		&msg.ID,
		&eventType,
		&msg.OrderID,
		&msg.ExchangeName,
		&msg.RoutingKey,
		&msg.Payload,
		&msg.ContentType,
		&status,
		&msg.RetryCount,
		&msg.MaxRetries,
		&msg.LastError,
		&msg.CreatedAt,
		&msg.UpdatedAt,
		&msg.NextRetryAt,
	)
	msg.EventType = outbox.EventType(eventType)
	msg.Status = outbox.Status(status)

	return msg, err
}
