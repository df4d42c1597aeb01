package compliancesvc

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/pkg/apperr"
	"github.com/corray333/backend-labs/ledger/pkg/tlv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngMagic = []byte("\x89PNG\r\n\x1a\n")
	seller   = Seller{Name: "Blue Cup Coffee", VATNumber: "310122393500003"}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func completedOrder() order.Order {
	return order.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-0007",
		TotalAmount: dec("115.00"),
		Status:      order.StatusCompleted,
		CreatedAt:   time.Date(2026, 9, 1, 13, 4, 5, 0, time.FixedZone("AST", 3*3600)),
	}
}

func TestBuildPayload_Fields(t *testing.T) {
	svc := MustNewComplianceService()

	p, err := svc.BuildPayload(context.Background(), completedOrder(), seller, dec("15"), BuildOptions{})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(p.Base64)
	require.NoError(t, err)
	assert.Equal(t, p.TLV, raw)

	fields, err := tlv.Decode(raw)
	require.NoError(t, err)
	require.Len(t, fields, 6)
	want := []string{
		"Blue Cup Coffee",
		"310122393500003",
		"2026-09-01T10:04:05Z",
		"115.00",
		"15.00",
		p.InvoiceHash,
	}
	for i, f := range fields {
		assert.Equal(t, byte(i+1), f.Tag)
		assert.Equal(t, want[i], f.Text())
	}

	assert.True(t, bytes.HasPrefix(p.PNG, pngMagic))
	assert.Equal(t, "medium", p.Level)
}

func TestBuildPayload_HashIsDeterministic(t *testing.T) {
	svc := MustNewComplianceService()
	o := completedOrder()

	first, err := svc.BuildPayload(context.Background(), o, seller, dec("15.00"), BuildOptions{})
	require.NoError(t, err)
	second, err := svc.BuildPayload(context.Background(), o, seller, dec("15"), BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, first.InvoiceHash, second.InvoiceHash)
	assert.Equal(t, first.TLV, second.TLV)

	o.TotalAmount = dec("115.01")
	third, err := svc.BuildPayload(context.Background(), o, seller, dec("15.00"), BuildOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, first.InvoiceHash, third.InvoiceHash)
}

func TestBuildPayload_ExternalHash(t *testing.T) {
	svc := MustNewComplianceService()

	p, err := svc.BuildPayload(context.Background(), completedOrder(), seller, dec("15"), BuildOptions{InvoiceHash: "abc123"})
	require.NoError(t, err)

	assert.Equal(t, "abc123", p.InvoiceHash)
	assert.Equal(t, "abc123", p.Fields[5].Text())
}

func TestBuildPayload_Validation(t *testing.T) {
	tests := []struct {
		name   string
		seller Seller
		vat    string
		field  string
	}{
		{name: "14 digit vat number", seller: Seller{Name: "s", VATNumber: "31012239350000"}, vat: "1", field: "vatNumber"},
		{name: "16 digit vat number", seller: Seller{Name: "s", VATNumber: "3101223935000031"}, vat: "1", field: "vatNumber"},
		{name: "non ascii digits", seller: Seller{Name: "s", VATNumber: "٣١٠١٢٢٣٩٣٥٠٠٠٠٣"}, vat: "1", field: "vatNumber"},
		{name: "letters", seller: Seller{Name: "s", VATNumber: "31012239350000A"}, vat: "1", field: "vatNumber"},
		{name: "no seller", seller: Seller{VATNumber: "310122393500003"}, vat: "1", field: "sellerName"},
		{name: "vat above total", seller: seller, vat: "115.01", field: "vatTotal"},
		{name: "negative vat", seller: seller, vat: "-0.01", field: "vatTotal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MustNewComplianceService().BuildPayload(context.Background(), completedOrder(), tt.seller, dec(tt.vat), BuildOptions{})

			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.Validation, appErr.Kind)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestBuildPayload_SellerNameTooLong(t *testing.T) {
	long := Seller{Name: strings.Repeat("é", 128), VATNumber: seller.VATNumber}

	_, err := MustNewComplianceService().BuildPayload(context.Background(), completedOrder(), long, dec("1"), BuildOptions{})

	assert.True(t, apperr.Is(err, apperr.Encoding))
	require.ErrorIs(t, err, tlv.ErrValueTooLong)
}

func TestRender_FallsBackToLowerLevel(t *testing.T) {
	svc := MustNewComplianceService(WithQR(qrcode.Highest, 0))

	png, lvl, err := svc.render(strings.Repeat("a", 1500))
	require.NoError(t, err)
	assert.Equal(t, qrcode.High, lvl)
	assert.True(t, bytes.HasPrefix(png, pngMagic))

	_, _, err = svc.render(strings.Repeat("a", 4000))
	assert.True(t, apperr.Is(err, apperr.Encoding))
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, qrcode.Medium, lvl)

	lvl, err = ParseLevel("HIGHEST")
	require.NoError(t, err)
	assert.Equal(t, qrcode.Highest, lvl)

	_, err = ParseLevel("extreme")
	require.ErrorIs(t, err, ErrUnknownLevel)
}

type stubOrders map[uuid.UUID]order.Order

func (s stubOrders) Get(_ context.Context, id uuid.UUID) (order.Order, error) {
	o, ok := s[id]
	if !ok {
		return order.Order{}, apperr.NotFoundErr("order not found")
	}

	return o, nil
}

func TestBuildForOrder(t *testing.T) {
	ctx := context.Background()
	completed := completedOrder()
	canceled := completedOrder()
	canceled.Status = order.StatusCanceled
	orders := stubOrders{completed.ID: completed, canceled.ID: canceled}

	inclusive := MustNewComplianceService(
		WithOrderGetter(orders),
		WithSeller(seller),
		WithVAT(dec("0.15"), true),
	)
	p, err := inclusive.BuildForOrder(ctx, completed.ID, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, "115.00", p.Fields[3].Text())
	assert.Equal(t, "15.00", p.Fields[4].Text())

	exclusive := MustNewComplianceService(
		WithOrderGetter(orders),
		WithSeller(seller),
		WithVAT(dec("0.15"), false),
	)
	p, err = exclusive.BuildForOrder(ctx, completed.ID, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, "132.25", p.Fields[3].Text())
	assert.Equal(t, "17.25", p.Fields[4].Text())

	_, err = inclusive.BuildForOrder(ctx, canceled.ID, BuildOptions{})
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = inclusive.BuildForOrder(ctx, uuid.New(), BuildOptions{})
	assert.True(t, apperr.Is(err, apperr.NotFound))
}
