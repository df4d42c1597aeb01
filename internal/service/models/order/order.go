package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/orderitem"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusModified  Status = "modified"
	StatusCanceled  Status = "canceled"
)

var ErrInvalidStatus = errors.New("invalid order status")

func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a raw string into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusCompleted, StatusModified, StatusCanceled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// IsTerminal reports whether no transition leaves the status.
func (s Status) IsTerminal() bool {
	return s == StatusCanceled
}

// PaymentMethod is how an order was paid.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentMixed    PaymentMethod = "mixed"
	PaymentDelivery PaymentMethod = "delivery"
)

var ErrInvalidPaymentMethod = errors.New("invalid payment method")

// PaymentMethods lists every method in display order.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentMixed, PaymentDelivery}

func (p PaymentMethod) String() string {
	return string(p)
}

// ParsePaymentMethod converts a raw string into a PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentCash, PaymentCard, PaymentMixed, PaymentDelivery:
		return PaymentMethod(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
	}
}

// Order represents a sales transaction.
type Order struct {
	ID            uuid.UUID             `json:"id"`
	OrderNumber   string                `json:"orderNumber"`
	CustomerName  string                `json:"customerName,omitempty"`
	Items         []orderitem.OrderItem `json:"items"`
	TotalAmount   decimal.Decimal       `json:"totalAmount"`
	PaymentMethod PaymentMethod         `json:"paymentMethod"`
	Status        Status                `json:"status"`
	// Version is the number of audit records committed for the order.
	Version   int       `json:"version"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FormatNumber renders a sequence value as an order number.
func FormatNumber(seq int64) string {
	return fmt.Sprintf("ORD-%04d", seq)
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	o.Items = orderitem.Clone(o.Items)

	return o
}

// Patch holds the fields a modification may change. Nil means unchanged.
type Patch struct {
	CustomerName *string
	Items        []orderitem.OrderItem
	// TotalAmount is advisory; the total is always recomputed from items.
	TotalAmount *decimal.Decimal
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.CustomerName == nil && p.Items == nil && p.TotalAmount == nil
}
