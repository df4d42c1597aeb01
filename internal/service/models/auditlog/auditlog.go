package auditlog

import (
	"errors"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/service/models/orderitem"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind is the type of state-changing operation a record describes.
type Kind string

const (
	KindModification Kind = "modification"
	KindCancellation Kind = "cancellation"
)

// ModificationType classifies what a modification did to the items.
type ModificationType string

const (
	ItemAdded       ModificationType = "item_added"
	ItemRemoved     ModificationType = "item_removed"
	QuantityChanged ModificationType = "quantity_changed"
	ItemReplaced    ModificationType = "item_replaced"
	MultipleChanges ModificationType = "multiple_changes"
)

var ErrInvalidModificationType = errors.New("invalid modification type")

// ParseModificationType converts a raw string into a ModificationType.
func ParseModificationType(s string) (ModificationType, error) {
	switch ModificationType(s) {
	case ItemAdded, ItemRemoved, QuantityChanged, ItemReplaced, MultipleChanges:
		return ModificationType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidModificationType, s)
	}
}

// Snapshot is the full mutable state of an order at one point in time.
type Snapshot struct {
	CustomerName string                `json:"customerName,omitempty"`
	Items        []orderitem.OrderItem `json:"items"`
	TotalAmount  decimal.Decimal       `json:"totalAmount"`
	Status       order.Status          `json:"status"`
}

// SnapshotOf captures the mutable state of o.
func SnapshotOf(o order.Order) *Snapshot {
	return &Snapshot{
		CustomerName: o.CustomerName,
		Items:        orderitem.Clone(o.Items),
		TotalAmount:  o.TotalAmount,
		Status:       o.Status,
	}
}

// Record represents one immutable entry of an order's audit trail.
type Record struct {
	ID      uuid.UUID `json:"id"`
	OrderID uuid.UUID `json:"orderId"`
	// Sequence starts at 1 and increases by one per record of the same order.
	Sequence         int              `json:"sequence"`
	ActorID          string           `json:"actorId"`
	Timestamp        time.Time        `json:"timestamp"`
	Kind             Kind             `json:"kind"`
	ModificationType ModificationType `json:"modificationType,omitempty"`
	Before           *Snapshot        `json:"before"`
	After            *Snapshot        `json:"after"`
	Reason           string           `json:"reason,omitempty"`
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r.Before != nil {
		b := *r.Before
		b.Items = orderitem.Clone(b.Items)
		r.Before = &b
	}
	if r.After != nil {
		a := *r.After
		a.Items = orderitem.Clone(a.Items)
		r.After = &a
	}

	return r
}

// StatusAt replays history and returns the order status as of t.
// The second result is false when the order did not exist yet at t.
func StatusAt(createdAt time.Time, history []Record, t time.Time) (order.Status, bool) {
	if t.Before(createdAt) {
		return "", false
	}

	status := order.StatusCompleted
	for _, r := range history {
		if r.Timestamp.After(t) {
			break
		}
		switch r.Kind {
		case KindModification:
			status = order.StatusModified
		case KindCancellation:
			status = order.StatusCanceled
		}
	}

	return status, true
}

// Replay returns the status implied by the full history.
func Replay(history []Record) order.Status {
	status := order.StatusCompleted
	for _, r := range history {
		switch r.Kind {
		case KindModification:
			status = order.StatusModified
		case KindCancellation:
			status = order.StatusCanceled
		}
	}

	return status
}

type lineKey struct {
	quantity int
	sig      string
}

// InferModificationType classifies an item change by comparing items keyed by item id.
func InferModificationType(before, after []orderitem.OrderItem) ModificationType {
	b, a := index(before), index(after)

	var added, removed, qty, replaced int
	for id, bl := range b {
		al, ok := a[id]
		switch {
		case !ok:
			removed++
		case bl.sig != al.sig:
			replaced++
		case bl.quantity != al.quantity:
			qty++
		}
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			added++
		}
	}

	switch {
	case added > 0 && removed == 0 && qty == 0 && replaced == 0:
		return ItemAdded
	case removed > 0 && added == 0 && qty == 0 && replaced == 0:
		return ItemRemoved
	case qty > 0 && added == 0 && removed == 0 && replaced == 0:
		return QuantityChanged
	case replaced > 0 && added == 0 && removed == 0 && qty == 0:
		return ItemReplaced
	case added > 0 && added == removed && qty == 0 && replaced == 0:
		return ItemReplaced
	default:
		return MultipleChanges
	}
}

func index(items []orderitem.OrderItem) map[string]lineKey {
	out := make(map[string]lineKey, len(items))
	for _, it := range items {
		k := out[it.ItemID]
		k.quantity += it.Quantity
		k.sig = signature(it)
		out[it.ItemID] = k
	}

	return out
}

func signature(it orderitem.OrderItem) string {
	s := it.UnitPrice.StringFixed(2)
	for _, m := range it.Modifiers {
		s += "|" + m.Name + ":" + m.PriceDelta.StringFixed(2)
	}

	return s
}
