package orderitem

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Modifier is an option selected for a line item, e.g. "extra shot".
type Modifier struct {
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"priceDelta"`
}

// OrderItem represents a line of an order.
type OrderItem struct {
	ItemID      string          `json:"itemId"`
	DisplayName string          `json:"displayName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Modifiers   []Modifier      `json:"modifiers,omitempty"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// ComputeLineTotal returns quantity × (unit price + modifier deltas), rounded to cents.
func (i OrderItem) ComputeLineTotal() decimal.Decimal {
	unit := i.UnitPrice
	for _, m := range i.Modifiers {
		unit = unit.Add(m.PriceDelta)
	}

	return unit.Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2)
}

// Clone returns a deep copy of items.
func Clone(items []OrderItem) []OrderItem {
	if items == nil {
		return nil
	}
	out := make([]OrderItem, len(items))
	for i, it := range items {
		out[i] = it
		if it.Modifiers != nil {
			out[i].Modifiers = append([]Modifier(nil), it.Modifiers...)
		}
	}

	return out
}

// Validate returns per-field problems of items keyed by JSON path. An empty map means valid.
func Validate(items []OrderItem) map[string]string {
	problems := map[string]string{}
	if len(items) == 0 {
		problems["items"] = "at least one item is required"

		return problems
	}

	for i, it := range items {
		prefix := fmt.Sprintf("items[%d]", i)
		if it.ItemID == "" {
			problems[prefix+".itemId"] = "is required"
		}
		if it.Quantity < 1 {
			problems[prefix+".quantity"] = "must be >= 1"
		}
		if it.UnitPrice.IsNegative() {
			problems[prefix+".unitPrice"] = "must be >= 0"
		} else if !isCents(it.UnitPrice) {
			problems[prefix+".unitPrice"] = "must have at most 2 decimal places"
		}
		for j, m := range it.Modifiers {
			if !isCents(m.PriceDelta) {
				problems[fmt.Sprintf("%s.modifiers[%d].priceDelta", prefix, j)] = "must have at most 2 decimal places"
			}
		}
		if it.ComputeLineTotal().IsNegative() {
			problems[prefix+".modifiers"] = "modifiers make the line total negative"
		}
	}

	return problems
}

// isCents reports whether d is a whole number of cents.
func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

// Price fills LineTotal of every item and returns a priced copy together with the order total.
// Prices are taken as given; Validate rejects sub-cent amounts.
func Price(items []OrderItem) ([]OrderItem, decimal.Decimal) {
	priced := Clone(items)
	total := decimal.Zero
	for i := range priced {
		priced[i].LineTotal = priced[i].ComputeLineTotal()
		total = total.Add(priced[i].LineTotal)
	}

	return priced, total.Round(2)
}
