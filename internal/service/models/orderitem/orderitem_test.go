package orderitem

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPrice(t *testing.T) {
	items := []OrderItem{
		{ItemID: "latte", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		{ItemID: "cookie", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
	}

	priced, total := Price(items)

	assert.True(t, decimal.RequireFromString("25.00").Equal(total))
	assert.True(t, decimal.RequireFromString("20.00").Equal(priced[0].LineTotal))
	assert.True(t, items[0].LineTotal.IsZero(), "input must not be mutated")
}

func TestPrice_KeepsUnitPrice(t *testing.T) {
	items := []OrderItem{{ItemID: "latte", Quantity: 1, UnitPrice: decimal.RequireFromString("3.75")}}

	priced, _ := Price(items)

	assert.Equal(t, "3.75", priced[0].UnitPrice.String())
}

func TestComputeLineTotal_Modifiers(t *testing.T) {
	item := OrderItem{
		ItemID:    "flat-white",
		Quantity:  3,
		UnitPrice: decimal.RequireFromString("4.10"),
		Modifiers: []Modifier{
			{Name: "oat milk", PriceDelta: decimal.RequireFromString("0.45")},
			{Name: "no sugar", PriceDelta: decimal.RequireFromString("-0.05")},
		},
	}

	assert.Equal(t, "13.50", item.ComputeLineTotal().StringFixed(2))
}

func TestPrice_NoFloatDrift(t *testing.T) {
	items := make([]OrderItem, 10)
	for i := range items {
		items[i] = OrderItem{ItemID: "x", Quantity: 1, UnitPrice: decimal.RequireFromString("0.10")}
	}

	_, total := Price(items)

	assert.Equal(t, "1.00", total.StringFixed(2))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		items []OrderItem
		want  []string
	}{
		{
			name:  "empty",
			items: nil,
			want:  []string{"items"},
		},
		{
			name: "zero quantity",
			items: []OrderItem{
				{ItemID: "a", Quantity: 0, UnitPrice: decimal.NewFromInt(1)},
			},
			want: []string{"items[0].quantity"},
		},
		{
			name: "negative price",
			items: []OrderItem{
				{ItemID: "a", Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
				{ItemID: "b", Quantity: 1, UnitPrice: decimal.NewFromInt(-1)},
			},
			want: []string{"items[1].unitPrice", "items[1].modifiers"},
		},
		{
			name: "sub-cent unit price",
			items: []OrderItem{
				{ItemID: "a", Quantity: 1, UnitPrice: decimal.RequireFromString("10.005")},
			},
			want: []string{"items[0].unitPrice"},
		},
		{
			name: "sub-cent modifier",
			items: []OrderItem{
				{
					ItemID:    "a",
					Quantity:  1,
					UnitPrice: decimal.RequireFromString("4.10"),
					Modifiers: []Modifier{
						{Name: "oat milk", PriceDelta: decimal.RequireFromString("0.45")},
						{Name: "syrup", PriceDelta: decimal.RequireFromString("0.125")},
					},
				},
			},
			want: []string{"items[0].modifiers[1].priceDelta"},
		},
		{
			name: "trailing zeros are cents",
			items: []OrderItem{
				{ItemID: "a", Quantity: 1, UnitPrice: decimal.RequireFromString("10.5000")},
			},
		},
		{
			name: "free item is valid",
			items: []OrderItem{
				{ItemID: "water", Quantity: 1, UnitPrice: decimal.Zero},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := Validate(tt.items)
			assert.Len(t, problems, len(tt.want))
			for _, key := range tt.want {
				assert.Contains(t, problems, key)
			}
		})
	}
}

func TestClone_Independent(t *testing.T) {
	items := []OrderItem{{ItemID: "a", Modifiers: []Modifier{{Name: "m"}}}}

	cp := Clone(items)
	cp[0].Modifiers[0].Name = "changed"

	assert.Equal(t, "m", items[0].Modifiers[0].Name)
}
