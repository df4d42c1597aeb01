package uow

import (
	"context"
	"errors"

	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/iauditrepo"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/ledger/internal/dal/postgres"
	auditrepo "github.com/corray333/backend-labs/ledger/internal/dal/repositories/audit/postgres"
	orderrepo "github.com/corray333/backend-labs/ledger/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/corray333/backend-labs/ledger/internal/dal/repositories/outbox/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type unitOfWork struct {
	pool       *pgxpool.Pool
	tx         pgx.Tx
	orderRepo  iorderrepo.IOrderRepository
	auditRepo  iauditrepo.IAuditRepository
	outboxRepo ioutboxrepo.IOutboxRepository
}

func (u *unitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *unitOfWork) AuditRepository() iauditrepo.IAuditRepository {
	return u.auditRepo
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

// NewUnitOfWork returns repositories bound to the pool until Begin is called.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func NewUnitOfWork(client *postgres.Client) *unitOfWork {
	u := &unitOfWork{pool: client.Pool()}
	u.bind(client.Pool())

	return u
}

func (u *unitOfWork) bind(conn postgres.GenericConn) {
	u.orderRepo = orderrepo.NewPostgresOrderRepository(conn)
	u.auditRepo = auditrepo.NewAuditRepository(conn)
	u.outboxRepo = outboxrepo.NewOutboxRepository(conn)
}

// Begin starts a read-write transaction and rebinds the repositories to it.
func (u *unitOfWork) Begin(ctx context.Context) error {
	return u.begin(ctx, pgx.TxOptions{})
}

// BeginReadOnly starts a repeatable-read snapshot for consistent multi-table reads.
func (u *unitOfWork) BeginReadOnly(ctx context.Context) error {
	return u.begin(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
}

func (u *unitOfWork) begin(ctx context.Context, opts pgx.TxOptions) error {
	tx, err := u.pool.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	u.tx = tx
	u.bind(tx)

	return nil
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}

	return u.tx.Commit(ctx)
}

// Rollback is a no-op after a successful Commit.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}

	return nil
}
