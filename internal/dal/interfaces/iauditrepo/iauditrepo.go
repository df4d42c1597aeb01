package iauditrepo

import (
	"context"

	"github.com/corray333/backend-labs/ledger/internal/service/models/auditlog"
	"github.com/google/uuid"
)

// IAuditRepository is an interface for the insert-only order audit table.
type IAuditRepository interface {
	Insert(ctx context.Context, rec auditlog.Record) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]auditlog.Record, error)
	// LastSequence returns the highest sequence of the order, 0 when it has none.
	LastSequence(ctx context.Context, orderID uuid.UUID) (int, error)
}
