// Package converters maps service models to the v1 wire shapes. Money is always rendered with two decimals.
package converters

import (
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/ledger/internal/service/models/report"
	"github.com/corray333/backend-labs/ledger/internal/service/services/compliancesvc"
	"github.com/corray333/backend-labs/ledger/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ModifierRequest is an item modifier as submitted by a client.
type ModifierRequest struct {
	Name       string          `json:"name" validate:"required"`
	PriceDelta decimal.Decimal `json:"priceDelta"`
}

// ItemRequest is an order line as submitted by a client.
type ItemRequest struct {
	ItemID      string            `json:"itemId" validate:"required"`
	DisplayName string            `json:"displayName" validate:"required"`
	Quantity    int               `json:"quantity" validate:"gte=1"`
	UnitPrice   decimal.Decimal   `json:"unitPrice"`
	Modifiers   []ModifierRequest `json:"modifiers" validate:"omitempty,dive"`
}

// ItemsFromRequest converts submitted lines. A nil slice stays nil so "absent" differs from "empty".
func ItemsFromRequest(in []ItemRequest) []orderitem.OrderItem {
	if in == nil {
		return nil
	}
	items := make([]orderitem.OrderItem, len(in))
	for i, it := range in {
		var mods []orderitem.Modifier
		if len(it.Modifiers) > 0 {
			mods = make([]orderitem.Modifier, len(it.Modifiers))
			for j, m := range it.Modifiers {
				mods[j] = orderitem.Modifier{Name: m.Name, PriceDelta: m.PriceDelta}
			}
		}
		items[i] = orderitem.OrderItem{
			ItemID:      it.ItemID,
			DisplayName: it.DisplayName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Modifiers:   mods,
		}
	}

	return items
}

type ModifierResponse struct {
	Name       string `json:"name"`
	PriceDelta string `json:"priceDelta"`
}

type ItemResponse struct {
	ItemID      string             `json:"itemId"`
	DisplayName string             `json:"displayName"`
	Quantity    int                `json:"quantity"`
	UnitPrice   string             `json:"unitPrice"`
	Modifiers   []ModifierResponse `json:"modifiers,omitempty"`
	LineTotal   string             `json:"lineTotal"`
}

type OrderResponse struct {
	ID            uuid.UUID      `json:"id"`
	OrderNumber   string         `json:"orderNumber"`
	CustomerName  string         `json:"customerName,omitempty"`
	Items         []ItemResponse `json:"items"`
	TotalAmount   string         `json:"totalAmount"`
	PaymentMethod string         `json:"paymentMethod"`
	Status        string         `json:"status"`
	Version       int            `json:"version"`
	CreatedBy     string         `json:"createdBy"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func ItemsToResponse(items []orderitem.OrderItem) []ItemResponse {
	out := make([]ItemResponse, len(items))
	for i, it := range items {
		var mods []ModifierResponse
		for _, m := range it.Modifiers {
			mods = append(mods, ModifierResponse{Name: m.Name, PriceDelta: money(m.PriceDelta)})
		}
		out[i] = ItemResponse{
			ItemID:      it.ItemID,
			DisplayName: it.DisplayName,
			Quantity:    it.Quantity,
			UnitPrice:   money(it.UnitPrice),
			Modifiers:   mods,
			LineTotal:   money(it.LineTotal),
		}
	}

	return out
}

func OrderToResponse(o order.Order) OrderResponse {
	return OrderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.CustomerName,
		Items:         ItemsToResponse(o.Items),
		TotalAmount:   money(o.TotalAmount),
		PaymentMethod: o.PaymentMethod.String(),
		Status:        o.Status.String(),
		Version:       o.Version,
		CreatedBy:     o.CreatedBy,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func OrdersToResponse(orders []order.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = OrderToResponse(o)
	}

	return out
}

// PageToResponse converts the items of a page and keeps its counters.
func PageToResponse[T, R any](page pagination.Result[T], conv func(T) R) pagination.Result[R] {
	items := make([]R, len(page.Items))
	for i, it := range page.Items {
		items[i] = conv(it)
	}

	return pagination.Result[R]{
		Items:      items,
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		HasNext:    page.HasNext,
	}
}

type SnapshotResponse struct {
	CustomerName string         `json:"customerName,omitempty"`
	Items        []ItemResponse `json:"items"`
	TotalAmount  string         `json:"totalAmount"`
	Status       string         `json:"status"`
}

type AuditRecordResponse struct {
	ID               uuid.UUID         `json:"id"`
	OrderID          uuid.UUID         `json:"orderId"`
	Sequence         int               `json:"sequence"`
	ActorID          string            `json:"actorId"`
	Timestamp        time.Time         `json:"timestamp"`
	Kind             string            `json:"kind"`
	ModificationType string            `json:"modificationType,omitempty"`
	Before           *SnapshotResponse `json:"before,omitempty"`
	After            *SnapshotResponse `json:"after,omitempty"`
	Reason           string            `json:"reason,omitempty"`
}

func snapshotToResponse(s *auditlog.Snapshot) *SnapshotResponse {
	if s == nil {
		return nil
	}

	return &SnapshotResponse{
		CustomerName: s.CustomerName,
		Items:        ItemsToResponse(s.Items),
		TotalAmount:  money(s.TotalAmount),
		Status:       s.Status.String(),
	}
}

func HistoryToResponse(history []auditlog.Record) []AuditRecordResponse {
	out := make([]AuditRecordResponse, len(history))
	for i, r := range history {
		out[i] = AuditRecordResponse{
			ID:               r.ID,
			OrderID:          r.OrderID,
			Sequence:         r.Sequence,
			ActorID:          r.ActorID,
			Timestamp:        r.Timestamp,
			Kind:             string(r.Kind),
			ModificationType: string(r.ModificationType),
			Before:           snapshotToResponse(r.Before),
			After:            snapshotToResponse(r.After),
			Reason:           r.Reason,
		}
	}

	return out
}

type BucketResponse struct {
	Count    int    `json:"count"`
	Subtotal string `json:"subtotal"`
}

type SummaryResponse struct {
	PeriodStart            time.Time                 `json:"periodStart"`
	PeriodEnd              time.Time                 `json:"periodEnd"`
	TotalOrders            int                       `json:"totalOrders"`
	CompletedOrders        int                       `json:"completedOrders"`
	ModifiedOrders         int                       `json:"modifiedOrders"`
	CanceledOrders         int                       `json:"canceledOrders"`
	TotalWithVat           string                    `json:"totalWithVat"`
	TotalVatAmount         string                    `json:"totalVatAmount"`
	TotalWithoutVat        string                    `json:"totalWithoutVat"`
	AverageOrderValue      string                    `json:"averageOrderValue"`
	OrderCompletionRate    string                    `json:"orderCompletionRate"`
	PaymentMethodBreakdown map[string]BucketResponse `json:"paymentMethodBreakdown"`
	Canceled               BucketResponse            `json:"canceled"`
}

type ChangesResponse struct {
	OrderDelta           int    `json:"orderDelta"`
	RevenueDelta         string `json:"revenueDelta"`
	RevenueChangePercent string `json:"revenueChangePercent"`
}

type ReportResponse struct {
	ID           uuid.UUID `json:"id"`
	ReportNumber int64     `json:"reportNumber,omitempty"`
	SummaryResponse
	PreviousPeriod   *SummaryResponse `json:"previousPeriod,omitempty"`
	Changes          *ChangesResponse `json:"changes,omitempty"`
	VatRate          string           `json:"vatRate"`
	PricesIncludeVat bool             `json:"pricesIncludeVat"`
	GeneratedBy      string           `json:"generatedBy"`
	GeneratedAt      time.Time        `json:"generatedAt"`
	Persisted        bool             `json:"persisted"`
}

func bucket(b report.Bucket) BucketResponse {
	return BucketResponse{Count: b.Count, Subtotal: money(b.Subtotal)}
}

func summaryToResponse(s report.Summary) SummaryResponse {
	breakdown := make(map[string]BucketResponse, len(s.PaymentMethodBreakdown))
	for method, b := range s.PaymentMethodBreakdown {
		breakdown[method.String()] = bucket(b)
	}

	return SummaryResponse{
		PeriodStart:            s.PeriodStart,
		PeriodEnd:              s.PeriodEnd,
		TotalOrders:            s.TotalOrders,
		CompletedOrders:        s.CompletedOrders,
		ModifiedOrders:         s.ModifiedOrders,
		CanceledOrders:         s.CanceledOrders,
		TotalWithVat:           money(s.TotalWithVat),
		TotalVatAmount:         money(s.TotalVatAmount),
		TotalWithoutVat:        money(s.TotalWithoutVat),
		AverageOrderValue:      money(s.AverageOrderValue),
		OrderCompletionRate:    s.OrderCompletionRate.StringFixed(2),
		PaymentMethodBreakdown: breakdown,
		Canceled:               bucket(s.Canceled),
	}
}

func ReportToResponse(r report.EODReport) ReportResponse {
	resp := ReportResponse{
		ID:               r.ID,
		ReportNumber:     r.ReportNumber,
		SummaryResponse:  summaryToResponse(r.Summary),
		VatRate:          r.VatRate.String(),
		PricesIncludeVat: r.PricesIncludeVat,
		GeneratedBy:      r.GeneratedBy,
		GeneratedAt:      r.GeneratedAt,
		Persisted:        r.Persisted,
	}
	if r.PreviousPeriod != nil {
		prev := summaryToResponse(*r.PreviousPeriod)
		resp.PreviousPeriod = &prev
	}
	if r.Changes != nil {
		resp.Changes = &ChangesResponse{
			OrderDelta:           r.Changes.OrderDelta,
			RevenueDelta:         money(r.Changes.RevenueDelta),
			RevenueChangePercent: r.Changes.RevenueChangePercent.StringFixed(2),
		}
	}

	return resp
}

// ReceiptQRResponse is the JSON form of a compliance payload. PNG is base64 encoded by encoding/json.
type ReceiptQRResponse struct {
	OrderID     uuid.UUID `json:"orderId"`
	Payload     string    `json:"payload"`
	InvoiceHash string    `json:"invoiceHash"`
	Level       string    `json:"level"`
	PNG         []byte    `json:"png"`
}

func ReceiptQRToResponse(p compliancesvc.Payload) ReceiptQRResponse {
	return ReceiptQRResponse{
		OrderID:     p.OrderID,
		Payload:     p.Base64,
		InvoiceHash: p.InvoiceHash,
		Level:       p.Level,
		PNG:         p.PNG,
	}
}
