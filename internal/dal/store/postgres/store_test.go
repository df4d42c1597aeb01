package postgres

import (
	"context"
	"errors"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/iauditrepo"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/ledger/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/ledger/internal/service/models/outbox"
	"github.com/corray333/backend-labs/ledger/pkg/apperr"
	"github.com/corray333/backend-labs/ledger/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// state is what the fake database holds. A transaction works on a copy and swaps it in on commit.
type state struct {
	orders map[uuid.UUID]order.Order
	audit  map[uuid.UUID][]auditlog.Record
	outbox []outbox.OutboxMessage
}

func (s state) copy() state {
	out := state{
		orders: maps.Clone(s.orders),
		audit:  make(map[uuid.UUID][]auditlog.Record, len(s.audit)),
		outbox: slices.Clone(s.outbox),
	}
	for id, recs := range s.audit {
		out.audit[id] = slices.Clone(recs)
	}

	return out
}

type fakeDB struct {
	committed state
	commitErr error
	updateErr error
}

func newFakeDB() *fakeDB {
	return &fakeDB{committed: state{
		orders: map[uuid.UUID]order.Order{},
		audit:  map[uuid.UUID][]auditlog.Record{},
	}}
}

type fakeUOW struct {
	db  *fakeDB
	tx  *state
	err error
}

func (u *fakeUOW) cur() *state {
	if u.tx != nil {
		return u.tx
	}

	return &u.db.committed
}

func (u *fakeUOW) Begin(context.Context) error {
	s := u.db.committed.copy()
	u.tx = &s

	return nil
}

func (u *fakeUOW) BeginReadOnly(ctx context.Context) error { return u.Begin(ctx) }

func (u *fakeUOW) Commit(context.Context) error {
	if u.db.commitErr != nil {
		return u.db.commitErr
	}
	u.db.committed = *u.tx
	u.tx = nil

	return nil
}

func (u *fakeUOW) Rollback(context.Context) error {
	u.tx = nil

	return nil
}

func (u *fakeUOW) OrderRepository() iorderrepo.IOrderRepository   { return fakeOrders{u} }
func (u *fakeUOW) AuditRepository() iauditrepo.IAuditRepository   { return fakeAudit{u} }
func (u *fakeUOW) OutboxRepository() ioutboxrepo.IOutboxRepository { return fakeOutbox{u} }

type fakeOrders struct{ u *fakeUOW }

func (f fakeOrders) Insert(_ context.Context, o order.Order) error {
	if _, ok := f.u.cur().orders[o.ID]; ok {
		return ErrDuplicateOrder
	}
	f.u.cur().orders[o.ID] = o.Clone()

	return nil
}

func (f fakeOrders) Get(_ context.Context, id uuid.UUID, _ bool) (order.Order, error) {
	o, ok := f.u.cur().orders[id]
	if !ok {
		return order.Order{}, iorderrepo.ErrNotFound
	}

	return o.Clone(), nil
}

func (f fakeOrders) Update(_ context.Context, o order.Order, expected int) error {
	if f.u.db.updateErr != nil {
		return f.u.db.updateErr
	}
	if f.u.cur().orders[o.ID].Version != expected {
		return iorderrepo.ErrVersionConflict
	}
	f.u.cur().orders[o.ID] = o.Clone()

	return nil
}

func (f fakeOrders) Query(_ context.Context, filter order.Filter, page *pagination.Params) ([]order.Order, error) {
	var out []order.Order
	for _, o := range f.u.cur().orders {
		if filter.Match(o) {
			out = append(out, o.Clone())
		}
	}
	slices.SortFunc(out, func(a, b order.Order) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if page != nil {
		out = pagination.Slice(out, *page)
	}

	return out, nil
}

func (f fakeOrders) Count(ctx context.Context, filter order.Filter) (int, error) {
	all, err := f.Query(ctx, filter, nil)

	return len(all), err
}

type fakeAudit struct{ u *fakeUOW }

func (f fakeAudit) Insert(_ context.Context, rec auditlog.Record) error {
	f.u.cur().audit[rec.OrderID] = append(f.u.cur().audit[rec.OrderID], rec.Clone())

	return nil
}

func (f fakeAudit) ListByOrder(_ context.Context, id uuid.UUID) ([]auditlog.Record, error) {
	return slices.Clone(f.u.cur().audit[id]), nil
}

func (f fakeAudit) LastSequence(_ context.Context, id uuid.UUID) (int, error) {
	return len(f.u.cur().audit[id]), nil
}

type fakeOutbox struct{ u *fakeUOW }

func (f fakeOutbox) Insert(_ context.Context, msg outbox.OutboxMessage) error {
	f.u.cur().outbox = append(f.u.cur().outbox, msg)

	return nil
}

func (f fakeOutbox) ClaimDue(context.Context, int, time.Duration) ([]outbox.OutboxMessage, error) {
	return f.u.cur().outbox, nil
}

func (f fakeOutbox) Delete(context.Context, int64) error { return nil }

func (f fakeOutbox) SaveAttempt(context.Context, outbox.OutboxMessage) error { return nil }

func newTestStore(db *fakeDB) *Store {
	return &Store{
		newUOW: func() unitOfWork { return &fakeUOW{db: db} },
		route:  outbox.Route{Exchange: "ledger.events", MaxRetries: 3},
		now:    func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func newOrder() order.Order {
	items, total := orderitem.Price([]orderitem.OrderItem{
		{ItemID: "coffee", DisplayName: "Coffee", Quantity: 2, UnitPrice: decimal.RequireFromString("3.50")},
	})

	return order.Order{
		ID:            uuid.New(),
		OrderNumber:   "ORD-0001",
		CustomerName:  "Ann",
		Items:         items,
		TotalAmount:   total,
		PaymentMethod: order.PaymentCash,
		Status:        order.StatusCompleted,
		CreatedBy:     "cashier-1",
		CreatedAt:     time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}
}

func cancel(reason string) func(order.Order) (order.Order, auditlog.Record, error) {
	return func(cur order.Order) (order.Order, auditlog.Record, error) {
		before := auditlog.SnapshotOf(cur)
		cur.Status = order.StatusCanceled

		return cur, auditlog.Record{
			ActorID: "manager-1",
			Kind:    auditlog.KindCancellation,
			Before:  before,
			After:   auditlog.SnapshotOf(cur),
			Reason:  reason,
		}, nil
	}
}

func TestStore_CreateEnqueuesEvent(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	s := newTestStore(db)
	o := newOrder()

	require.NoError(t, s.Create(ctx, o))

	got, err := s.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)
	require.Len(t, db.committed.outbox, 1)
	assert.Equal(t, string(outbox.EventOrderCreated), db.committed.outbox[0].RoutingKey)
	assert.Equal(t, outbox.EventOrderCreated, db.committed.outbox[0].EventType)
	assert.Equal(t, o.ID, db.committed.outbox[0].OrderID)
}

func TestStore_UpdateOrderStateCommitsTogether(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	s := newTestStore(db)
	o := newOrder()
	require.NoError(t, s.Create(ctx, o))

	next, rec, err := s.UpdateOrderState(ctx, o.ID, cancel("mistake"))
	require.NoError(t, err)
	assert.Equal(t, 1, next.Version)
	assert.Equal(t, 1, rec.Sequence)
	assert.Equal(t, o.ID, rec.OrderID)
	assert.NotEqual(t, uuid.Nil, rec.ID)

	stored, history, err := s.Load(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCanceled, stored.Status)
	require.Len(t, history, 1)
	require.Len(t, db.committed.outbox, 2)
	assert.Equal(t, string(outbox.EventOrderCanceled), db.committed.outbox[1].RoutingKey)
}

func TestStore_UpdateOrderStateCommitFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	s := newTestStore(db)
	o := newOrder()
	require.NoError(t, s.Create(ctx, o))

	db.commitErr = errors.New("connection reset")
	_, _, err := s.UpdateOrderState(ctx, o.ID, cancel("mistake"))
	assert.True(t, apperr.Is(err, apperr.StorageFailure))

	db.commitErr = nil
	stored, history, err := s.Load(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, stored.Status)
	assert.Empty(t, history)
	assert.Len(t, db.committed.outbox, 1)
}

func TestStore_UpdateOrderStateVersionConflict(t *testing.T) {
	ctx := context.Background()
	db := newFakeDB()
	s := newTestStore(db)
	o := newOrder()
	require.NoError(t, s.Create(ctx, o))

	db.updateErr = iorderrepo.ErrVersionConflict
	_, _, err := s.UpdateOrderState(ctx, o.ID, cancel("mistake"))

	require.ErrorIs(t, err, iorderrepo.ErrVersionConflict)
	assert.True(t, apperr.Is(err, apperr.StorageFailure))
}

func TestStore_MutatorErrorPassesThrough(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newFakeDB())
	o := newOrder()
	require.NoError(t, s.Create(ctx, o))

	refused := apperr.TransitionErr("order is canceled")
	_, _, err := s.UpdateOrderState(ctx, o.ID, func(order.Order) (order.Order, auditlog.Record, error) {
		return order.Order{}, auditlog.Record{}, refused
	})

	assert.Same(t, refused, err)
}

func TestStore_UnknownOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newFakeDB())

	_, err := s.Get(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, _, err = s.UpdateOrderState(ctx, uuid.New(), cancel("x"))
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = s.AppendAudit(ctx, uuid.New(), auditlog.Record{})
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestStore_AppendAuditKeepsOrderRow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newFakeDB())
	o := newOrder()
	require.NoError(t, s.Create(ctx, o))

	rec, err := s.AppendAudit(ctx, o.ID, auditlog.Record{ActorID: "x", Kind: auditlog.KindCancellation})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Sequence)

	stored, history, err := s.Load(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Version)
	assert.Len(t, history, 1)
}

func TestStore_ListRejectsBadPagination(t *testing.T) {
	s := newTestStore(newFakeDB())

	_, _, err := s.List(context.Background(), order.QueryOrdersModel{Params: pagination.Params{Page: 0, PageSize: 10}})

	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestStore_ListAndFind(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newFakeDB())
	for i := range 3 {
		o := newOrder()
		o.CreatedAt = o.CreatedAt.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Create(ctx, o))
	}

	page, total, err := s.List(ctx, order.QueryOrdersModel{Params: pagination.Params{Page: 1, PageSize: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)

	all, err := s.Find(ctx, order.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
