package reportsvc

import (
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/service/models/report"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// VAT describes how order totals relate to VAT.
type VAT struct {
	Rate decimal.Decimal
	// PricesInclude means order totals already contain VAT.
	PricesInclude bool
}

// split returns gross, vat and net for a sum of order totals.
func (v VAT) split(sum decimal.Decimal) (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	if v.PricesInclude {
		vat := sum.Mul(v.Rate).Div(decimal.NewFromInt(1).Add(v.Rate)).Round(2)

		return sum, vat, sum.Sub(vat)
	}

	vat := sum.Mul(v.Rate).Round(2)

	return sum.Add(vat), vat, sum
}

// summarize aggregates the orders of [start, end). Orders outside the window and repeated ids are skipped.
func summarize(orders []order.Order, start, end time.Time, vat VAT) report.Summary {
	s := report.Summary{
		PeriodStart:            start,
		PeriodEnd:              end,
		PaymentMethodBreakdown: make(map[order.PaymentMethod]report.Bucket, len(order.PaymentMethods)),
		Canceled:               report.Bucket{Subtotal: decimal.Zero},
	}
	for _, pm := range order.PaymentMethods {
		s.PaymentMethodBreakdown[pm] = report.Bucket{Subtotal: decimal.Zero}
	}

	seen := make(map[uuid.UUID]struct{}, len(orders))
	revenue := decimal.Zero
	for _, o := range orders {
		if o.CreatedAt.Before(start) || !o.CreatedAt.Before(end) {
			continue
		}
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		s.TotalOrders++

		switch o.Status {
		case order.StatusCanceled:
			s.CanceledOrders++
			s.Canceled.Count++
			s.Canceled.Subtotal = s.Canceled.Subtotal.Add(o.TotalAmount)

			continue
		case order.StatusModified:
			s.ModifiedOrders++
		default:
			s.CompletedOrders++
		}

		revenue = revenue.Add(o.TotalAmount)
		b := s.PaymentMethodBreakdown[o.PaymentMethod]
		b.Count++
		b.Subtotal = b.Subtotal.Add(o.TotalAmount)
		s.PaymentMethodBreakdown[o.PaymentMethod] = b
	}

	s.TotalWithVat, s.TotalVatAmount, s.TotalWithoutVat = vat.split(revenue.Round(2))

	s.AverageOrderValue = decimal.Zero
	s.OrderCompletionRate = decimal.Zero
	if paid := s.CompletedOrders + s.ModifiedOrders; paid > 0 {
		s.AverageOrderValue = s.TotalWithVat.Div(decimal.NewFromInt(int64(paid))).Round(2)
		s.OrderCompletionRate = decimal.NewFromInt(int64(paid)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(s.TotalOrders))).
			Round(2)
	}

	return s
}

// compare describes how cur moved against prev. The percentage is zero when prev had no revenue.
func compare(cur, prev report.Summary) *report.Changes {
	ch := &report.Changes{
		OrderDelta:           cur.TotalOrders - prev.TotalOrders,
		RevenueDelta:         cur.TotalWithVat.Sub(prev.TotalWithVat),
		RevenueChangePercent: decimal.Zero,
	}
	if !prev.TotalWithVat.IsZero() {
		ch.RevenueChangePercent = ch.RevenueDelta.Mul(hundred).Div(prev.TotalWithVat).Round(2)
	}

	return ch
}
