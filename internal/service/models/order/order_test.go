package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("modified")
	require.NoError(t, err)
	assert.Equal(t, StatusModified, s)

	_, err = ParseStatus("deleted")
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ParseStatus("Completed")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestParsePaymentMethod(t *testing.T) {
	for _, m := range PaymentMethods {
		got, err := ParsePaymentMethod(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	_, err := ParsePaymentMethod("crypto")
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "ORD-0001", FormatNumber(1))
	assert.Equal(t, "ORD-12345", FormatNumber(12345))
}

func TestFilter_Match(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	o := Order{
		CustomerName: "Alice Johnson",
		CreatedBy:    "cashier-1",
		Status:       StatusCompleted,
		CreatedAt:    base,
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "empty filter", filter: Filter{}, want: true},
		{name: "customer substring ignores case", filter: Filter{CustomerName: "JOHN"}, want: true},
		{name: "other customer", filter: Filter{CustomerName: "bob"}, want: false},
		{name: "status mismatch", filter: Filter{Status: StatusCanceled}, want: false},
		{name: "creator", filter: Filter{CreatedBy: "cashier-1"}, want: true},
		{name: "from is inclusive", filter: Filter{From: base}, want: true},
		{name: "to is exclusive", filter: Filter{To: base}, want: false},
		{name: "inside window", filter: Filter{From: base.Add(-time.Hour), To: base.Add(time.Hour)}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(o))
		})
	}
}

func TestPatch_IsEmpty(t *testing.T) {
	assert.True(t, Patch{}.IsEmpty())

	name := "Bob"
	assert.False(t, Patch{CustomerName: &name}.IsEmpty())
}
