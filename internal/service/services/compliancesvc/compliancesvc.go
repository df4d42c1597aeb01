// Package compliancesvc builds the tax-authority QR code printed on receipts.
package compliancesvc

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/pkg/apperr"
	"github.com/corray333/backend-labs/ledger/pkg/tlv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Receipt tags in the order they are written.
const (
	TagSeller       byte = 1
	TagVATNumber    byte = 2
	TagTimestamp    byte = 3
	TagInvoiceTotal byte = 4
	TagVATTotal     byte = 5
	TagInvoiceHash  byte = 6
)

const DefaultQRSize = 256

var (
	vatNumberRe = regexp.MustCompile(`^[0-9]{15}$`)

	ErrUnknownLevel = errors.New("unknown qr recovery level")
)

// levels from the most to the least redundant.
var levels = []qrcode.RecoveryLevel{qrcode.Highest, qrcode.High, qrcode.Medium, qrcode.Low}

var levelNames = map[qrcode.RecoveryLevel]string{
	qrcode.Low:     "low",
	qrcode.Medium:  "medium",
	qrcode.High:    "high",
	qrcode.Highest: "highest",
}

// ParseLevel converts a config value into a QR recovery level. Empty means medium.
func ParseLevel(s string) (qrcode.RecoveryLevel, error) {
	if s == "" {
		return qrcode.Medium, nil
	}
	for lvl, name := range levelNames {
		if strings.EqualFold(s, name) {
			return lvl, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// Seller identifies the business issuing the receipt.
type Seller struct {
	Name      string
	VATNumber string
}

// BuildOptions tune a single payload.
type BuildOptions struct {
	// InvoiceHash replaces the computed tag 6 value when set.
	InvoiceHash string
}

// Payload is the compliance code of one receipt. It is derived on demand and never stored.
type Payload struct {
	OrderID     uuid.UUID
	Fields      []tlv.Field
	TLV         []byte
	Base64      string
	InvoiceHash string
	// Level is the recovery level the image was rendered at.
	Level string
	PNG   []byte
}

type orderGetter interface {
	Get(ctx context.Context, id uuid.UUID) (order.Order, error)
}

// ComplianceService renders receipt QR codes.
type ComplianceService struct {
	orders        orderGetter
	seller        Seller
	vatRate       decimal.Decimal
	pricesInclude bool
	level         qrcode.RecoveryLevel
	size          int
}

// option is a function that configures the ComplianceService.
type option func(*ComplianceService)

// MustNewComplianceService creates a new ComplianceService.
func MustNewComplianceService(opts ...option) *ComplianceService {
	s := &ComplianceService{level: qrcode.Medium, size: DefaultQRSize, pricesInclude: true}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithOrderGetter sets where BuildForOrder loads orders from.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderGetter(orders orderGetter) option {
	return func(s *ComplianceService) {
		s.orders = orders
	}
}

// WithSeller sets the seller printed on every receipt.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSeller(seller Seller) option {
	return func(s *ComplianceService) {
		s.seller = seller
	}
}

// WithVAT sets the rate used to derive the VAT total of an order.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithVAT(rate decimal.Decimal, pricesInclude bool) option {
	return func(s *ComplianceService) {
		s.vatRate = rate
		s.pricesInclude = pricesInclude
	}
}

// WithQR sets the preferred recovery level and the image size in pixels.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithQR(level qrcode.RecoveryLevel, size int) option {
	return func(s *ComplianceService) {
		s.level = level
		if size > 0 {
			s.size = size
		}
	}
}

// BuildPayload encodes the receipt fields of o as TLV and renders the base64 of the buffer as a PNG.
// If the content does not fit the configured level, lower levels are tried.
func (s *ComplianceService) BuildPayload(
	ctx context.Context,
	o order.Order,
	seller Seller,
	vatTotal decimal.Decimal,
	opts BuildOptions,
) (Payload, error) {
	_, span := otel.Tracer("service").Start(ctx, "Service.BuildCompliancePayload")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", o.ID.String()))

	p, err := s.buildPayload(o, seller, vatTotal, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.KindOf(err)))

		return Payload{}, err
	}

	return p, nil
}

func (s *ComplianceService) buildPayload(o order.Order, seller Seller, vatTotal decimal.Decimal, opts BuildOptions) (Payload, error) {
	problems := map[string]string{}
	if strings.TrimSpace(seller.Name) == "" {
		problems["sellerName"] = "is required"
	}
	if !vatNumberRe.MatchString(seller.VATNumber) {
		problems["vatNumber"] = "must be exactly 15 digits"
	}
	if o.TotalAmount.IsNegative() {
		problems["totalAmount"] = "must be >= 0"
	}
	if vatTotal.IsNegative() || vatTotal.GreaterThan(o.TotalAmount) {
		problems["vatTotal"] = "must be between 0 and the invoice total"
	}
	if len(problems) > 0 {
		return Payload{}, apperr.ValidationErr("invalid compliance payload", problems)
	}

	fields := []tlv.Field{
		tlv.String(TagSeller, seller.Name),
		tlv.String(TagVATNumber, seller.VATNumber),
		tlv.String(TagTimestamp, o.CreatedAt.UTC().Format(time.RFC3339)),
		tlv.String(TagInvoiceTotal, o.TotalAmount.StringFixed(2)),
		tlv.String(TagVATTotal, vatTotal.StringFixed(2)),
	}
	hash := opts.InvoiceHash
	if hash == "" {
		hash = InvoiceHash(fields[1:])
	}
	fields = append(fields, tlv.String(TagInvoiceHash, hash))

	buf, err := tlv.Encode(fields...)
	if err != nil {
		return Payload{}, apperr.EncodingErr("failed to encode compliance payload", err)
	}
	content := base64.StdEncoding.EncodeToString(buf)

	png, level, err := s.render(content)
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		OrderID:     o.ID,
		Fields:      fields,
		TLV:         buf,
		Base64:      content,
		InvoiceHash: hash,
		Level:       levelNames[level],
		PNG:         png,
	}, nil
}

// BuildForOrder builds the payload of a stored order with the configured seller and VAT rate.
func (s *ComplianceService) BuildForOrder(ctx context.Context, orderID uuid.UUID, opts BuildOptions) (Payload, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.BuildComplianceQR")
	defer span.End()

	if s.orders == nil {
		return Payload{}, &apperr.Error{Kind: apperr.Internal, Message: "order source is not configured"}
	}
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		span.RecordError(err)

		return Payload{}, err
	}
	if o.Status == order.StatusCanceled {
		return Payload{}, apperr.ValidationErr(
			fmt.Sprintf("order %s is canceled", o.OrderNumber),
			map[string]string{"status": "canceled orders have no receipt"},
		)
	}

	invoice, vat := s.vatOf(o)

	p, err := s.BuildPayload(ctx, invoice, s.seller, vat, opts)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build compliance QR", "order_id", orderID, "error", err)

		return Payload{}, err
	}

	return p, nil
}

// vatOf returns the order as invoiced together with its VAT total. VAT-exclusive totals are grossed up.
func (s *ComplianceService) vatOf(o order.Order) (order.Order, decimal.Decimal) {
	if s.pricesInclude {
		vat := o.TotalAmount.Mul(s.vatRate).Div(decimal.NewFromInt(1).Add(s.vatRate)).Round(2)

		return o, vat
	}

	vat := o.TotalAmount.Mul(s.vatRate).Round(2)
	o.TotalAmount = o.TotalAmount.Add(vat)

	return o, vat
}

func (s *ComplianceService) render(content string) ([]byte, qrcode.RecoveryLevel, error) {
	var lastErr error
	for _, lvl := range levels {
		if lvl > s.level {
			continue
		}
		qr, err := qrcode.New(content, lvl)
		if err != nil {
			lastErr = err

			continue
		}
		png, err := qr.PNG(s.size)
		if err != nil {
			return nil, 0, apperr.EncodingErr("failed to render qr code", err)
		}
		if lvl != s.level {
			slog.Warn("Compliance QR rendered at a lower recovery level",
				"requested", levelNames[s.level],
				"used", levelNames[lvl],
			)
		}

		return png, lvl, nil
	}

	return nil, 0, apperr.EncodingErr("compliance payload does not fit a qr code", lastErr)
}

// InvoiceHash is the base64 SHA-256 of the field values joined by "|".
func InvoiceHash(fields []tlv.Field) string {
	values := make([]string, len(fields))
	for i, f := range fields {
		values[i] = f.Text()
	}
	sum := sha256.Sum256([]byte(strings.Join(values, "|")))

	return base64.StdEncoding.EncodeToString(sum[:])
}
