package iorderrepo

import (
	"context"
	"errors"

	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/pkg/pagination"
	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("order not found")
	ErrVersionConflict = errors.New("order version conflict")
)

// IOrderRepository is an interface for the order table.
type IOrderRepository interface {
	Insert(ctx context.Context, o order.Order) error
	// Get loads one order. With forUpdate the row stays locked until the transaction ends.
	Get(ctx context.Context, id uuid.UUID, forUpdate bool) (order.Order, error)
	// Update writes o if the stored version still equals expectedVersion.
	Update(ctx context.Context, o order.Order, expectedVersion int) error
	// Query returns matching orders newest first. A nil page returns every match.
	Query(ctx context.Context, filter order.Filter, page *pagination.Params) ([]order.Order, error)
	Count(ctx context.Context, filter order.Filter) (int, error)
}
