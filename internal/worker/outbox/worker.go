package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/ledger/internal/service/models/outbox"
	"github.com/spf13/viper"
)

type publisher interface {
	Publish(ctx context.Context, exchange, routingKey, contentType string, body []byte) error
}

// Worker publishes ledger events written to the outbox table. Replicas may run it side by side:
// each batch is leased, and a message whose lease ran out is picked up again.
type Worker struct {
	outboxRepo   ioutboxrepo.IOutboxRepository
	publisher    publisher
	pollInterval time.Duration
	batchSize    int
	lease        time.Duration
	now          func() time.Time
	stopCh       chan struct{}
}

// NewWorker reads rabbitmq.outbox.{poll_interval_seconds,batch_size,lease_seconds}.
func NewWorker(
	outboxRepo ioutboxrepo.IOutboxRepository,
	publisher publisher,
) *Worker {
	poll := time.Duration(viper.GetInt("rabbitmq.outbox.poll_interval_seconds")) * time.Second
	if poll <= 0 {
		poll = 10 * time.Second
	}
	batch := viper.GetInt("rabbitmq.outbox.batch_size")
	if batch <= 0 {
		batch = 100
	}
	lease := time.Duration(viper.GetInt("rabbitmq.outbox.lease_seconds")) * time.Second
	if lease <= 0 {
		lease = time.Minute
	}

	return &Worker{
		outboxRepo:   outboxRepo,
		publisher:    publisher,
		pollInterval: poll,
		batchSize:    batch,
		lease:        lease,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
}

// Start polls until ctx is done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Outbox worker started",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
		"lease", w.lease,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
}

// processMessages delivers one leased batch. It returns how many messages were published.
func (w *Worker) processMessages(ctx context.Context) int {
	messages, err := w.outboxRepo.ClaimDue(ctx, w.batchSize, w.lease)
	if err != nil {
		slog.Error("Failed to claim outbox messages", "error", err)

		return 0
	}
	if len(messages) == 0 {
		return 0
	}

	published := 0
	for _, msg := range messages {
		if ctx.Err() != nil {
			// The rest stay leased and are retried once the lease runs out.
			break
		}
		if w.deliver(ctx, msg) {
			published++
		}
	}

	slog.Info("Outbox batch processed", "claimed", len(messages), "published", published)

	return published
}

func (w *Worker) deliver(ctx context.Context, msg outbox.OutboxMessage) bool {
	log := slog.With(
		"outbox_id", msg.ID,
		"event_type", msg.EventType,
		"order_id", msg.OrderID,
	)

	if err := w.publisher.Publish(ctx, msg.ExchangeName, msg.RoutingKey, msg.ContentType, msg.Payload); err != nil {
		failed := msg.RecordFailure(err, w.now())
		if failed.Status == outbox.StatusParked {
			log.Error("Order event parked after its last delivery attempt",
				"attempts", failed.RetryCount,
				"error", err,
			)
		} else {
			log.Warn("Failed to publish order event, will retry",
				"attempts", failed.RetryCount,
				"next_attempt", failed.NextRetryAt,
				"error", err,
			)
		}
		if err := w.outboxRepo.SaveAttempt(ctx, failed); err != nil {
			log.Error("Failed to save outbox delivery attempt", "error", err)
		}

		return false
	}

	// A failed delete republishes the event after the lease; consumers dedupe on eventId.
	if err := w.outboxRepo.Delete(ctx, msg.ID); err != nil {
		log.Error("Failed to remove published order event from outbox", "error", err)
	}

	return true
}
