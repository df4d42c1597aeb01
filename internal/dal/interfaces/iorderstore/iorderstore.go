package iorderstore

import (
	"context"

	"github.com/corray333/backend-labs/ledger/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/google/uuid"
)

// Mutator derives the next state of an order and the audit record describing the change.
// It runs while the store holds the order exclusively. An error aborts the update with no writes.
type Mutator func(current order.Order) (order.Order, auditlog.Record, error)

// IOrderStore is durable keyed storage for orders and their append-only audit records.
//
// Errors are *apperr.Error: not_found for unknown ids, validation for bad pagination,
// storage_failure for anything the backend could not do. Errors returned by a Mutator
// are passed through unchanged.
type IOrderStore interface {
	Get(ctx context.Context, id uuid.UUID) (order.Order, error)
	// Load reads an order together with its full history as one consistent snapshot.
	Load(ctx context.Context, id uuid.UUID) (order.Order, []auditlog.Record, error)
	// List returns one page of matching orders, newest first, and the number of matches.
	List(ctx context.Context, query order.QueryOrdersModel) ([]order.Order, int, error)
	// Find returns every matching order, newest first.
	Find(ctx context.Context, filter order.Filter) ([]order.Order, error)
	Create(ctx context.Context, o order.Order) error
	// AppendAudit appends rec with the next sequence number without touching the order row.
	AppendAudit(ctx context.Context, orderID uuid.UUID, rec auditlog.Record) (auditlog.Record, error)
	// UpdateOrderState applies mutate atomically: the new order row and its audit record
	// commit together or not at all, and no other mutator on the same order interleaves.
	UpdateOrderState(ctx context.Context, id uuid.UUID, mutate Mutator) (order.Order, auditlog.Record, error)
	// History returns the audit records of an order ordered by sequence.
	History(ctx context.Context, orderID uuid.UUID) ([]auditlog.Record, error)
}
