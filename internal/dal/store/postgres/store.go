// Package postgres implements the order store on PostgreSQL.
//
// Every state change runs in one transaction: the order row is locked with
// SELECT ... FOR UPDATE, updated under a version guard, and written together with
// its audit record and outbox event.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/iauditrepo"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/iorderstore"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/ledger/internal/dal/postgres"
	"github.com/corray333/backend-labs/ledger/internal/dal/uow"
	"github.com/corray333/backend-labs/ledger/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/service/models/outbox"
	"github.com/corray333/backend-labs/ledger/pkg/apperr"
	"github.com/google/uuid"
)

var ErrDuplicateOrder = errors.New("order already exists")

type unitOfWork interface {
	Begin(ctx context.Context) error
	BeginReadOnly(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	AuditRepository() iauditrepo.IAuditRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// Store is the PostgreSQL order store.
type Store struct {
	newUOW func() unitOfWork
	// route is empty when events are not published.
	route outbox.Route
	now   func() time.Time
}

var _ iorderstore.IOrderStore = (*Store)(nil)

// option is a function that configures the Store.
type option func(*Store)

// MustNewStore creates a new Store.
func MustNewStore(opts ...option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.newUOW == nil {
		panic("postgres store requires a client")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the Store.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(client *postgres.Client) option {
	return func(s *Store) {
		s.newUOW = func() unitOfWork { return uow.NewUnitOfWork(client) }
	}
}

// WithOutboxRoute enables order events in the outbox.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOutboxRoute(route outbox.Route) option {
	return func(s *Store) {
		s.route = route
	}
}

func storageErr(op string, err error) error {
	switch {
	case errors.Is(err, iorderrepo.ErrNotFound):
		return apperr.NotFoundErr("order not found")
	case postgres.IsUniqueViolation(err):
		return apperr.StorageErr("failed to "+op, fmt.Errorf("%w: %w", ErrDuplicateOrder, err))
	default:
		return apperr.StorageErr("failed to "+op, err)
	}
}

// Get returns one order.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (order.Order, error) {
	o, err := s.newUOW().OrderRepository().Get(ctx, id, false)
	if err != nil {
		return order.Order{}, storageErr("get order", err)
	}

	return o, nil
}

// Load reads the order and its history in one repeatable-read snapshot.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (order.Order, []auditlog.Record, error) {
	work := s.newUOW()
	if err := work.BeginReadOnly(ctx); err != nil {
		return order.Order{}, nil, storageErr("begin transaction", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	o, err := work.OrderRepository().Get(ctx, id, false)
	if err != nil {
		return order.Order{}, nil, storageErr("load order", err)
	}
	history, err := work.AuditRepository().ListByOrder(ctx, id)
	if err != nil {
		return order.Order{}, nil, storageErr("load order history", err)
	}
	if err := work.Commit(ctx); err != nil {
		return order.Order{}, nil, storageErr("commit transaction", err)
	}

	return o, history, nil
}

// List returns one page of orders, newest first.
func (s *Store) List(ctx context.Context, query order.QueryOrdersModel) ([]order.Order, int, error) {
	if err := query.Params.Validate(); err != nil {
		return nil, 0, apperr.ValidationErr(err.Error(), map[string]string{"pagination": err.Error()})
	}

	work := s.newUOW()
	if err := work.BeginReadOnly(ctx); err != nil {
		return nil, 0, storageErr("begin transaction", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	total, err := work.OrderRepository().Count(ctx, query.Filter)
	if err != nil {
		return nil, 0, storageErr("count orders", err)
	}
	orders, err := work.OrderRepository().Query(ctx, query.Filter, &query.Params)
	if err != nil {
		return nil, 0, storageErr("list orders", err)
	}
	if err := work.Commit(ctx); err != nil {
		return nil, 0, storageErr("commit transaction", err)
	}

	return orders, total, nil
}

// Find returns every matching order, newest first.
func (s *Store) Find(ctx context.Context, filter order.Filter) ([]order.Order, error) {
	orders, err := s.newUOW().OrderRepository().Query(ctx, filter, nil)
	if err != nil {
		return nil, storageErr("find orders", err)
	}

	return orders, nil
}

// Create inserts the order together with its order.created event.
func (s *Store) Create(ctx context.Context, o order.Order) error {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return storageErr("begin transaction", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	if err := work.OrderRepository().Insert(ctx, o); err != nil {
		return storageErr("create order", err)
	}
	if err := s.publish(ctx, work, o, o.CreatedBy); err != nil {
		return err
	}
	if err := work.Commit(ctx); err != nil {
		return storageErr("commit transaction", err)
	}

	return nil
}

// AppendAudit appends rec with the next sequence number. The order row is left as is.
func (s *Store) AppendAudit(ctx context.Context, orderID uuid.UUID, rec auditlog.Record) (auditlog.Record, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return auditlog.Record{}, storageErr("begin transaction", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	if _, err := work.OrderRepository().Get(ctx, orderID, true); err != nil {
		return auditlog.Record{}, storageErr("lock order", err)
	}
	rec, err := s.insertRecord(ctx, work, orderID, rec)
	if err != nil {
		return auditlog.Record{}, err
	}
	if err := work.Commit(ctx); err != nil {
		return auditlog.Record{}, storageErr("commit transaction", err)
	}

	return rec, nil
}

// UpdateOrderState locks the order row, applies mutate and commits the row, the audit
// record and the outbox event in one transaction.
func (s *Store) UpdateOrderState(
	ctx context.Context,
	id uuid.UUID,
	mutate iorderstore.Mutator,
) (order.Order, auditlog.Record, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, auditlog.Record{}, storageErr("begin transaction", err)
	}
	defer func() { _ = work.Rollback(ctx) }()

	current, err := work.OrderRepository().Get(ctx, id, true)
	if err != nil {
		return order.Order{}, auditlog.Record{}, storageErr("lock order", err)
	}

	next, rec, err := mutate(current.Clone())
	if err != nil {
		return order.Order{}, auditlog.Record{}, err
	}
	next.ID = current.ID
	next.OrderNumber = current.OrderNumber
	next.Version = current.Version + 1

	if err := work.OrderRepository().Update(ctx, next, current.Version); err != nil {
		return order.Order{}, auditlog.Record{}, storageErr("update order", err)
	}
	rec, err = s.insertRecord(ctx, work, id, rec)
	if err != nil {
		return order.Order{}, auditlog.Record{}, err
	}
	if err := s.publish(ctx, work, next, rec.ActorID); err != nil {
		return order.Order{}, auditlog.Record{}, err
	}
	if err := work.Commit(ctx); err != nil {
		return order.Order{}, auditlog.Record{}, storageErr("commit transaction", err)
	}

	return next, rec, nil
}

// History returns the audit records of an order ordered by sequence.
func (s *Store) History(ctx context.Context, orderID uuid.UUID) ([]auditlog.Record, error) {
	_, history, err := s.Load(ctx, orderID)

	return history, err
}

func (s *Store) insertRecord(
	ctx context.Context,
	work unitOfWork,
	orderID uuid.UUID,
	rec auditlog.Record,
) (auditlog.Record, error) {
	last, err := work.AuditRepository().LastSequence(ctx, orderID)
	if err != nil {
		return auditlog.Record{}, storageErr("read audit sequence", err)
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.OrderID = orderID
	rec.Sequence = last + 1

	if err := work.AuditRepository().Insert(ctx, rec); err != nil {
		return auditlog.Record{}, storageErr("append audit record", err)
	}

	return rec, nil
}

func (s *Store) publish(ctx context.Context, work unitOfWork, o order.Order, actorID string) error {
	if s.route.Exchange == "" {
		return nil
	}

	msg, err := outbox.NewOrderMessage(s.route, o, actorID, s.now())
	if err != nil {
		return apperr.StorageErr("failed to build order event", err)
	}
	if err := work.OutboxRepository().Insert(ctx, msg); err != nil {
		return storageErr("enqueue order event", err)
	}

	return nil
}
