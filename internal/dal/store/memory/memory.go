// Package memory is the in-process reference implementation of the order store.
//
// A single RWMutex guards orders and audit records together, so a state update and its
// audit record become visible at the same time. Values are copied on the way in and out.
package memory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/iorderstore"
	"github.com/corray333/backend-labs/ledger/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/pkg/apperr"
	"github.com/corray333/backend-labs/ledger/pkg/pagination"
	"github.com/google/uuid"
)

var ErrDuplicateOrder = errors.New("order already exists")

// Store keeps orders and audit records in maps.
type Store struct {
	mu       sync.RWMutex
	orders   map[uuid.UUID]order.Order
	audit    map[uuid.UUID][]auditlog.Record
	byNumber map[string]uuid.UUID
}

var _ iorderstore.IOrderStore = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		orders:   make(map[uuid.UUID]order.Order),
		audit:    make(map[uuid.UUID][]auditlog.Record),
		byNumber: make(map[string]uuid.UUID),
	}
}

func notFound() error {
	return apperr.NotFoundErr("order not found")
}

func aborted(err error) error {
	return apperr.StorageErr("operation aborted", err)
}

// Get returns a copy of the order.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (order.Order, error) {
	if err := ctx.Err(); err != nil {
		return order.Order{}, aborted(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, notFound()
	}

	return o.Clone(), nil
}

// Load returns the order and its history under one read lock.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (order.Order, []auditlog.Record, error) {
	if err := ctx.Err(); err != nil {
		return order.Order{}, nil, aborted(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, nil, notFound()
	}

	return o.Clone(), cloneRecords(s.audit[id]), nil
}

// List returns one page of orders, newest first.
func (s *Store) List(ctx context.Context, query order.QueryOrdersModel) ([]order.Order, int, error) {
	if err := query.Params.Validate(); err != nil {
		return nil, 0, apperr.ValidationErr(err.Error(), map[string]string{"pagination": err.Error()})
	}

	matched, err := s.Find(ctx, query.Filter)
	if err != nil {
		return nil, 0, err
	}

	return pagination.Slice(matched, query.Params), len(matched), nil
}

// Find returns every matching order, newest first.
func (s *Store) Find(ctx context.Context, filter order.Filter) ([]order.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, aborted(err)
	}

	s.mu.RLock()
	matched := make([]order.Order, 0)
	for _, o := range s.orders {
		if filter.Match(o) {
			matched = append(matched, o.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b order.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(b.OrderNumber, a.OrderNumber)
	})

	return matched, nil
}

// Create stores a new order. The id and order number must be unused.
func (s *Store) Create(ctx context.Context, o order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[o.ID]; ok {
		return apperr.StorageErr("failed to create order", ErrDuplicateOrder)
	}
	if _, ok := s.byNumber[o.OrderNumber]; ok {
		return apperr.StorageErr("failed to create order", ErrDuplicateOrder)
	}
	if err := ctx.Err(); err != nil {
		return aborted(err)
	}

	s.orders[o.ID] = o.Clone()
	s.byNumber[o.OrderNumber] = o.ID

	return nil
}

// AppendAudit appends rec with the next sequence number. The order row is left as is.
func (s *Store) AppendAudit(ctx context.Context, orderID uuid.UUID, rec auditlog.Record) (auditlog.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[orderID]; !ok {
		return auditlog.Record{}, notFound()
	}
	rec = s.stamp(orderID, rec)
	if err := ctx.Err(); err != nil {
		return auditlog.Record{}, aborted(err)
	}
	s.audit[orderID] = append(s.audit[orderID], rec.Clone())

	return rec, nil
}

// UpdateOrderState runs mutate under the store write lock and commits both writes.
func (s *Store) UpdateOrderState(
	ctx context.Context,
	id uuid.UUID,
	mutate iorderstore.Mutator,
) (order.Order, auditlog.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[id]
	if !ok {
		return order.Order{}, auditlog.Record{}, notFound()
	}

	next, rec, err := mutate(current.Clone())
	if err != nil {
		return order.Order{}, auditlog.Record{}, err
	}
	next.ID = current.ID
	next.OrderNumber = current.OrderNumber
	next.Version = current.Version + 1
	rec = s.stamp(id, rec)

	if err := ctx.Err(); err != nil {
		return order.Order{}, auditlog.Record{}, aborted(err)
	}

	s.orders[id] = next.Clone()
	s.audit[id] = append(s.audit[id], rec.Clone())

	return next, rec, nil
}

// History returns the audit records of an order ordered by sequence.
func (s *Store) History(ctx context.Context, orderID uuid.UUID) ([]auditlog.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, aborted(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.orders[orderID]; !ok {
		return nil, notFound()
	}

	return cloneRecords(s.audit[orderID]), nil
}

// stamp fills the identity fields of a record. Callers hold the write lock.
func (s *Store) stamp(orderID uuid.UUID, rec auditlog.Record) auditlog.Record {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.OrderID = orderID
	rec.Sequence = len(s.audit[orderID]) + 1

	return rec
}

func cloneRecords(records []auditlog.Record) []auditlog.Record {
	out := make([]auditlog.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}

	return out
}
