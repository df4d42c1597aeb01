package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/google/uuid"
)

// Status of an outbox row. Delivered rows are deleted, so there is no sent state.
type Status string

const (
	StatusPending Status = "pending"
	// StatusParked rows ran out of attempts and wait for an operator.
	StatusParked Status = "parked"
)

// MaxBackoff caps the delay between two delivery attempts.
const MaxBackoff = 30 * time.Minute

// OutboxMessage is a ledger event waiting to be published to RabbitMQ.
type OutboxMessage struct {
	ID           int64
	EventType    EventType
	OrderID      uuid.UUID
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	Status       Status
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}

// Exhausted reports whether no attempts are left.
func (m OutboxMessage) Exhausted() bool {
	return m.MaxRetries > 0 && m.RetryCount >= m.MaxRetries
}

// RecordFailure returns m after a failed delivery at now: the attempt is counted and the
// next one is scheduled, or the message is parked once its attempts are used up.
func (m OutboxMessage) RecordFailure(cause error, now time.Time) OutboxMessage {
	m.RetryCount++
	m.UpdatedAt = now
	if cause != nil {
		m.LastError = cause.Error()
	}
	if m.Exhausted() {
		m.Status = StatusParked

		return m
	}
	m.NextRetryAt = now.Add(Backoff(m.RetryCount))

	return m
}

// Backoff is 30s doubled per failed attempt, capped at MaxBackoff.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		return MaxBackoff
	}

	return min(30*time.Second<<attempt, MaxBackoff)
}

// EventType names a ledger event.
type EventType string

const (
	EventOrderCreated  EventType = "order.created"
	EventOrderModified EventType = "order.modified"
	EventOrderCanceled EventType = "order.canceled"
)

// OrderEvent is the published body of an order event.
type OrderEvent struct {
	EventID     uuid.UUID    `json:"eventId"`
	Type        EventType    `json:"type"`
	OrderID     uuid.UUID    `json:"orderId"`
	OrderNumber string       `json:"orderNumber"`
	Status      order.Status `json:"status"`
	TotalAmount string       `json:"totalAmount"`
	Version     int          `json:"version"`
	ActorID     string       `json:"actorId"`
	OccurredAt  time.Time    `json:"occurredAt"`
}

// Route is where order events are published.
type Route struct {
	Exchange   string
	RoutingKey string
	MaxRetries int
}

// EventTypeFor maps an order status to the event its latest transition produced.
func EventTypeFor(o order.Order) EventType {
	switch {
	case o.Version == 0:
		return EventOrderCreated
	case o.Status == order.StatusCanceled:
		return EventOrderCanceled
	default:
		return EventOrderModified
	}
}

// NewOrderMessage builds an outbox message announcing the current state of o.
func NewOrderMessage(route Route, o order.Order, actorID string, now time.Time) (OutboxMessage, error) {
	eventType := EventTypeFor(o)
	payload, err := json.Marshal(OrderEvent{
		EventID:     uuid.New(),
		Type:        eventType,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		TotalAmount: o.TotalAmount.StringFixed(2),
		Version:     o.Version,
		ActorID:     actorID,
		OccurredAt:  now.UTC(),
	})
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("failed to marshal order event: %w", err)
	}

	routingKey := route.RoutingKey
	if routingKey == "" {
		routingKey = string(eventType)
	}

	return OutboxMessage{
		EventType:    eventType,
		OrderID:      o.ID,
		ExchangeName: route.Exchange,
		RoutingKey:   routingKey,
		Payload:      payload,
		ContentType:  "application/json",
		Status:       StatusPending,
		MaxRetries:   route.MaxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	}, nil
}
