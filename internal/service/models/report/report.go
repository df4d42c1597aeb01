package report

import (
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bucket is an order count with its money subtotal.
type Bucket struct {
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Summary holds the aggregates of one window.
type Summary struct {
	PeriodStart         time.Time       `json:"periodStart"`
	PeriodEnd           time.Time       `json:"periodEnd"`
	TotalOrders         int             `json:"totalOrders"`
	CompletedOrders     int             `json:"completedOrders"`
	ModifiedOrders      int             `json:"modifiedOrders"`
	CanceledOrders      int             `json:"canceledOrders"`
	TotalWithVat        decimal.Decimal `json:"totalWithVat"`
	TotalVatAmount      decimal.Decimal `json:"totalVatAmount"`
	TotalWithoutVat     decimal.Decimal `json:"totalWithoutVat"`
	AverageOrderValue   decimal.Decimal `json:"averageOrderValue"`
	OrderCompletionRate decimal.Decimal `json:"orderCompletionRate"`
	// PaymentMethodBreakdown covers non-canceled orders only.
	PaymentMethodBreakdown map[order.PaymentMethod]Bucket `json:"paymentMethodBreakdown"`
	// Canceled carries the voided amount; it never counts as revenue.
	Canceled Bucket `json:"canceled"`
}

// Changes compares a window with the one before it.
type Changes struct {
	OrderDelta           int             `json:"orderDelta"`
	RevenueDelta         decimal.Decimal `json:"revenueDelta"`
	RevenueChangePercent decimal.Decimal `json:"revenueChangePercent"`
}

// EODReport is a generated or persisted end-of-day aggregation.
type EODReport struct {
	ID uuid.UUID `json:"id"`
	// ReportNumber is zero until the report is persisted.
	ReportNumber int64 `json:"reportNumber,omitempty"`
	Summary
	PreviousPeriod   *Summary        `json:"previousPeriod,omitempty"`
	Changes          *Changes        `json:"changes,omitempty"`
	VatRate          decimal.Decimal `json:"vatRate"`
	PricesIncludeVat bool            `json:"pricesIncludeVat"`
	GeneratedBy      string          `json:"generatedBy"`
	GeneratedAt      time.Time       `json:"generatedAt"`
	Persisted        bool            `json:"persisted"`
}

// HistoryQuery selects persisted reports whose window starts inside [From, To).
type HistoryQuery struct {
	pagination.Params
	From time.Time
	To   time.Time
}

// Match reports whether r passes the date range of the query.
func (q HistoryQuery) Match(r EODReport) bool {
	if !q.From.IsZero() && r.PeriodStart.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !r.PeriodStart.Before(q.To) {
		return false
	}

	return true
}
