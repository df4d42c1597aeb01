package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	pending  []outbox.OutboxMessage
	claimErr error
	deleted  []int64
	attempts []outbox.OutboxMessage
	leases   []time.Duration
}

func (f *fakeRepo) Insert(context.Context, outbox.OutboxMessage) error { return nil }

func (f *fakeRepo) ClaimDue(_ context.Context, limit int, lease time.Duration) ([]outbox.OutboxMessage, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	f.leases = append(f.leases, lease)
	n := min(limit, len(f.pending))
	claimed := f.pending[:n]
	f.pending = f.pending[n:]

	return claimed, nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)

	return nil
}

func (f *fakeRepo) SaveAttempt(_ context.Context, msg outbox.OutboxMessage) error {
	f.attempts = append(f.attempts, msg)

	return nil
}

type published struct {
	exchange, key, contentType string
	body                       []byte
}

type fakePublisher struct {
	failKeys map[string]bool
	sent     []published
}

func (f *fakePublisher) Publish(_ context.Context, exchange, key, contentType string, body []byte) error {
	if f.failKeys[key] {
		return errors.New("channel closed")
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, contentType: contentType, body: body})

	return nil
}

func newTestWorker(repo *fakeRepo, pub *fakePublisher, now time.Time) *Worker {
	return &Worker{
		outboxRepo:   repo,
		publisher:    pub,
		pollInterval: time.Second,
		batchSize:    10,
		lease:        45 * time.Second,
		now:          func() time.Time { return now },
		stopCh:       make(chan struct{}),
	}
}

func event(id int64, key string, retries, maxRetries int) outbox.OutboxMessage {
	return outbox.OutboxMessage{
		ID:           id,
		EventType:    outbox.EventType(key),
		OrderID:      uuid.New(),
		ExchangeName: "ledger.events",
		RoutingKey:   key,
		ContentType:  "application/json",
		Payload:      []byte(`{}`),
		Status:       outbox.StatusPending,
		RetryCount:   retries,
		MaxRetries:   maxRetries,
	}
}

func TestWorker_PublishesAndDeletes(t *testing.T) {
	repo := &fakeRepo{pending: []outbox.OutboxMessage{
		event(1, "order.created", 0, 5),
		event(2, "order.canceled", 0, 5),
	}}
	pub := &fakePublisher{}

	n := newTestWorker(repo, pub, time.Now()).processMessages(context.Background())

	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 2}, repo.deleted)
	require.Len(t, pub.sent, 2)
	assert.Equal(t, "order.created", pub.sent[0].key)
	assert.Equal(t, "ledger.events", pub.sent[0].exchange)
	assert.Empty(t, repo.attempts)
	assert.Equal(t, []time.Duration{45 * time.Second}, repo.leases)
}

func TestWorker_ReschedulesFailedDelivery(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepo{pending: []outbox.OutboxMessage{
		event(7, "order.modified", 1, 5),
		event(8, "order.created", 0, 5),
	}}
	pub := &fakePublisher{failKeys: map[string]bool{"order.modified": true}}

	n := newTestWorker(repo, pub, now).processMessages(context.Background())

	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{8}, repo.deleted)
	require.Len(t, repo.attempts, 1)
	got := repo.attempts[0]
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, outbox.StatusPending, got.Status)
	assert.Equal(t, "channel closed", got.LastError)
	assert.Equal(t, now.Add(2*time.Minute), got.NextRetryAt)
}

func TestWorker_ParksExhaustedMessage(t *testing.T) {
	repo := &fakeRepo{pending: []outbox.OutboxMessage{event(9, "order.canceled", 2, 3)}}
	pub := &fakePublisher{failKeys: map[string]bool{"order.canceled": true}}

	newTestWorker(repo, pub, time.Now()).processMessages(context.Background())

	assert.Empty(t, repo.deleted)
	require.Len(t, repo.attempts, 1)
	assert.Equal(t, outbox.StatusParked, repo.attempts[0].Status)
	assert.Equal(t, 3, repo.attempts[0].RetryCount)
}

func TestWorker_ClaimFailureIsSkipped(t *testing.T) {
	repo := &fakeRepo{claimErr: errors.New("connection refused")}
	pub := &fakePublisher{}

	n := newTestWorker(repo, pub, time.Now()).processMessages(context.Background())

	assert.Zero(t, n)
	assert.Empty(t, pub.sent)
	assert.Empty(t, repo.deleted)
}

func TestWorker_CanceledContextLeavesBatchLeased(t *testing.T) {
	repo := &fakeRepo{pending: []outbox.OutboxMessage{event(1, "order.created", 0, 5)}}
	pub := &fakePublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := newTestWorker(repo, pub, time.Now()).processMessages(ctx)

	assert.Zero(t, n)
	assert.Empty(t, pub.sent)
	assert.Empty(t, repo.deleted)
	assert.Empty(t, repo.attempts)
}

func TestWorker_StartStops(t *testing.T) {
	w := newTestWorker(&fakeRepo{}, &fakePublisher{}, time.Now())
	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
