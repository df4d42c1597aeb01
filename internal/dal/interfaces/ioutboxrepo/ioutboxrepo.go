package ioutboxrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/outbox"
)

// IOutboxRepository stores order events until the worker has published them.
type IOutboxRepository interface {
	// Insert enqueues msg. It runs inside the transaction that changed the order.
	Insert(ctx context.Context, msg outbox.OutboxMessage) error

	// ClaimDue leases up to limit pending messages whose next attempt is due. Claimed rows are
	// hidden from other claimers until the lease runs out, so several workers may poll at once.
	ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]outbox.OutboxMessage, error)

	// Delete removes a delivered message.
	Delete(ctx context.Context, id int64) error

	// SaveAttempt stores the retry state of a failed message, parked or rescheduled.
	SaveAttempt(ctx context.Context, msg outbox.OutboxMessage) error
}
