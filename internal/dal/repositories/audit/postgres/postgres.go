package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/iauditrepo"
	"github.com/corray333/backend-labs/ledger/internal/dal/postgres"
	"github.com/corray333/backend-labs/ledger/internal/service/models/auditlog"
	"github.com/google/uuid"
)

// AuditRecordDal represents an order_audit_records row.
type AuditRecordDal struct {
	ID               string
	OrderID          string
	Seq              int
	ActorID          string
	RecordedAt       time.Time
	Kind             string
	ModificationType string
	Before           []byte
	After            []byte
	Reason           string
}

// ToModel converts AuditRecordDal to the service layer Record model.
func (d *AuditRecordDal) ToModel() (auditlog.Record, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return auditlog.Record{}, fmt.Errorf("failed to parse audit record id: %w", err)
	}
	orderID, err := uuid.Parse(d.OrderID)
	if err != nil {
		return auditlog.Record{}, fmt.Errorf("failed to parse order id: %w", err)
	}
	before, err := unmarshalSnapshot(d.Before)
	if err != nil {
		return auditlog.Record{}, err
	}
	after, err := unmarshalSnapshot(d.After)
	if err != nil {
		return auditlog.Record{}, err
	}

	return auditlog.Record{
		ID:               id,
		OrderID:          orderID,
		Sequence:         d.Seq,
		ActorID:          d.ActorID,
		Timestamp:        d.RecordedAt,
		Kind:             auditlog.Kind(d.Kind),
		ModificationType: auditlog.ModificationType(d.ModificationType),
		Before:           before,
		After:            after,
		Reason:           d.Reason,
	}, nil
}

// AuditRecordDalFromModel converts a Record to AuditRecordDal.
func AuditRecordDalFromModel(r auditlog.Record) (AuditRecordDal, error) {
	before, err := marshalSnapshot(r.Before)
	if err != nil {
		return AuditRecordDal{}, err
	}
	after, err := marshalSnapshot(r.After)
	if err != nil {
		return AuditRecordDal{}, err
	}

	return AuditRecordDal{
		ID:               r.ID.String(),
		OrderID:          r.OrderID.String(),
		Seq:              r.Sequence,
		ActorID:          r.ActorID,
		RecordedAt:       r.Timestamp,
		Kind:             string(r.Kind),
		ModificationType: string(r.ModificationType),
		Before:           before,
		After:            after,
		Reason:           r.Reason,
	}, nil
}

func marshalSnapshot(s *auditlog.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	return b, nil
}

func unmarshalSnapshot(b []byte) (*auditlog.Snapshot, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var s auditlog.Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &s, nil
}

// AuditRepository implements the audit repository for PostgreSQL.
type AuditRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

var _ iauditrepo.IAuditRepository = (*AuditRepository)(nil)

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(conn postgres.GenericConn) *AuditRepository {
	return &AuditRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert appends one audit record.
func (r *AuditRepository) Insert(ctx context.Context, rec auditlog.Record) error {
	dal, err := AuditRecordDalFromModel(rec)
	if err != nil {
		return err
	}

	query, args, err := r.sb.Insert("order_audit_records").
		Columns(
			"id",
			"order_id",
			"seq",
			"actor_id",
			"recorded_at",
			"kind",
			"modification_type",
			"before_snapshot",
			"after_snapshot",
			"reason",
		).
		Values(
			dal.ID,
			dal.OrderID,
			dal.Seq,
			dal.ActorID,
			dal.RecordedAt,
			dal.Kind,
			dal.ModificationType,
			dal.Before,
			dal.After,
			dal.Reason,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build audit record insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}

	return nil
}

// ListByOrder returns the records of an order ordered by sequence.
func (r *AuditRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]auditlog.Record, error) {
	query, args, err := r.sb.Select(
		"id::text",
		"order_id::text",
		"seq",
		"actor_id",
		"recorded_at",
		"kind",
		"modification_type",
		"before_snapshot",
		"after_snapshot",
		"reason",
	).
		From("order_audit_records").
		Where(sq.Eq{"order_id": orderID.String()}).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	records := make([]auditlog.Record, 0)
	for rows.Next() {
		var dal AuditRecordDal
		err := rows.Scan(
			&dal.ID,
			&dal.OrderID,
			&dal.Seq,
			&dal.ActorID,
			&dal.RecordedAt,
			&dal.Kind,
			&dal.ModificationType,
			&dal.Before,
			&dal.After,
			&dal.Reason,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		rec, err := dal.ToModel()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit records: %w", err)
	}

	return records, nil
}

// LastSequence returns the highest sequence of the order, 0 when it has none.
func (r *AuditRepository) LastSequence(ctx context.Context, orderID uuid.UUID) (int, error) {
	query, args, err := r.sb.Select("COALESCE(MAX(seq), 0)").
		From("order_audit_records").
		Where(sq.Eq{"order_id": orderID.String()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build select query: %w", err)
	}

	var seq int
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read last audit sequence: %w", err)
	}

	return seq, nil
}
