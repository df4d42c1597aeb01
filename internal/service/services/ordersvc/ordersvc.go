package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/iorderstore"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/isequence"
	"github.com/corray333/backend-labs/ledger/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/ledger/pkg/apperr"
	"github.com/corray333/backend-labs/ledger/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrPartialWrite means the stored order row and its audit trail disagree.
var ErrPartialWrite = errors.New("order state and audit trail disagree")

// OrderService owns the order state machine.
type OrderService struct {
	store    iorderstore.IOrderStore
	orderSeq isequence.ISequence
	now      func() time.Time
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil || s.orderSeq == nil {
		panic("order service requires an order store and an order number sequence")
	}

	return s
}

// WithOrderStore sets the order store for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderStore(store iorderstore.IOrderStore) option {
	return func(s *OrderService) {
		s.store = store
	}
}

// WithOrderSequence sets the source of order numbers.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderSequence(seq isequence.ISequence) option {
	return func(s *OrderService) {
		s.orderSeq = seq
	}
}

// WithClock overrides time.Now.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *OrderService) {
		s.now = now
	}
}

// CreateOrderModel is the input of Create.
type CreateOrderModel struct {
	CustomerName  string
	Items         []orderitem.OrderItem
	PaymentMethod order.PaymentMethod
	// TotalAmount is advisory.
	TotalAmount *decimal.Decimal
	CreatedBy   string
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(apperr.KindOf(err)))

	return err
}

// Create validates and prices the items, assigns the next order number and stores the order
// as completed.
func (s *OrderService) Create(ctx context.Context, model CreateOrderModel) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.CreateOrder")
	defer span.End()

	problems := orderitem.Validate(model.Items)
	if _, err := order.ParsePaymentMethod(string(model.PaymentMethod)); err != nil {
		problems["paymentMethod"] = err.Error()
	}
	if model.CreatedBy == "" {
		problems["createdBy"] = "is required"
	}
	if len(problems) > 0 {
		return order.Order{}, fail(span, apperr.ValidationErr("invalid order", problems))
	}

	items, total := orderitem.Price(model.Items)
	s.checkAdvisoryTotal(ctx, "", model.TotalAmount, total)

	seq, err := s.orderSeq.Next(ctx)
	if err != nil {
		return order.Order{}, fail(span, apperr.StorageErr("failed to assign order number", err))
	}

	now := s.now().UTC()
	o := order.Order{
		ID:            uuid.New(),
		OrderNumber:   order.FormatNumber(seq),
		CustomerName:  model.CustomerName,
		Items:         items,
		TotalAmount:   total,
		PaymentMethod: model.PaymentMethod,
		Status:        order.StatusCompleted,
		CreatedBy:     model.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	span.SetAttributes(attribute.String("order.id", o.ID.String()), attribute.String("order.number", o.OrderNumber))

	if err := s.store.Create(ctx, o); err != nil {
		slog.ErrorContext(ctx, "Failed to create order", "order_number", o.OrderNumber, "error", err)

		return order.Order{}, fail(span, err)
	}

	slog.InfoContext(ctx, "Order created",
		"order_id", o.ID,
		"order_number", o.OrderNumber,
		"total", o.TotalAmount.StringFixed(2),
		"created_by", o.CreatedBy,
	)

	return o, nil
}

// Modify applies patch to a non-canceled order, marks it modified and appends one audit record.
// An empty modType is inferred from the item diff.
func (s *OrderService) Modify(
	ctx context.Context,
	orderID uuid.UUID,
	actorID string,
	modType auditlog.ModificationType,
	patch order.Patch,
) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.ModifyOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID.String()))

	if err := validatePatch(actorID, modType, patch); err != nil {
		return order.Order{}, fail(span, err)
	}
	if _, err := s.load(ctx, orderID); err != nil {
		return order.Order{}, fail(span, err)
	}

	now := s.now().UTC()
	next, rec, err := s.store.UpdateOrderState(ctx, orderID, func(cur order.Order) (order.Order, auditlog.Record, error) {
		if cur.Status.IsTerminal() {
			return order.Order{}, auditlog.Record{}, apperr.TransitionErr(
				fmt.Sprintf("order %s is %s and cannot be modified", cur.OrderNumber, cur.Status),
			)
		}

		before := auditlog.SnapshotOf(cur)
		if patch.CustomerName != nil {
			cur.CustomerName = *patch.CustomerName
		}
		if patch.Items != nil {
			cur.Items, cur.TotalAmount = orderitem.Price(patch.Items)
		}
		cur.Status = order.StatusModified
		cur.UpdatedAt = now

		mt := modType
		if mt == "" {
			mt = auditlog.InferModificationType(before.Items, cur.Items)
		}

		return cur, auditlog.Record{
			ActorID:          actorID,
			Timestamp:        now,
			Kind:             auditlog.KindModification,
			ModificationType: mt,
			Before:           before,
			After:            auditlog.SnapshotOf(cur),
		}, nil
	})
	if err != nil {
		s.logRejected(ctx, "modify", orderID, err)

		return order.Order{}, fail(span, err)
	}
	s.checkAdvisoryTotal(ctx, next.OrderNumber, patch.TotalAmount, next.TotalAmount)

	slog.InfoContext(ctx, "Order modified",
		"order_id", next.ID,
		"order_number", next.OrderNumber,
		"modification_type", rec.ModificationType,
		"sequence", rec.Sequence,
		"actor_id", actorID,
		"total", next.TotalAmount.StringFixed(2),
	)

	return next, nil
}

// Cancel flags a non-canceled order as canceled and appends one audit record. Items are kept.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID, actorID, reason string) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.CancelOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID.String()))

	if actorID == "" {
		return order.Order{}, fail(span, apperr.ValidationErr("actor is required", map[string]string{"actorId": "is required"}))
	}
	if _, err := s.load(ctx, orderID); err != nil {
		return order.Order{}, fail(span, err)
	}

	now := s.now().UTC()
	next, rec, err := s.store.UpdateOrderState(ctx, orderID, func(cur order.Order) (order.Order, auditlog.Record, error) {
		if cur.Status.IsTerminal() {
			return order.Order{}, auditlog.Record{}, apperr.TransitionErr(
				fmt.Sprintf("order %s is already canceled", cur.OrderNumber),
			)
		}

		before := auditlog.SnapshotOf(cur)
		cur.Status = order.StatusCanceled
		cur.UpdatedAt = now

		return cur, auditlog.Record{
			ActorID:   actorID,
			Timestamp: now,
			Kind:      auditlog.KindCancellation,
			Before:    before,
			After:     auditlog.SnapshotOf(cur),
			Reason:    reason,
		}, nil
	})
	if err != nil {
		s.logRejected(ctx, "cancel", orderID, err)

		return order.Order{}, fail(span, err)
	}

	slog.InfoContext(ctx, "Order canceled",
		"order_id", next.ID,
		"order_number", next.OrderNumber,
		"sequence", rec.Sequence,
		"actor_id", actorID,
		"reason", reason,
	)

	return next, nil
}

// Get returns the current state of an order.
func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.GetOrder")
	defer span.End()

	o, err := s.load(ctx, orderID)
	if err != nil {
		return order.Order{}, fail(span, err)
	}

	return o.Order, nil
}

// History returns the audit trail of an order ordered by sequence.
func (s *OrderService) History(ctx context.Context, orderID uuid.UUID) ([]auditlog.Record, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.GetOrderHistory")
	defer span.End()

	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, fail(span, err)
	}

	return o.history, nil
}

// StatusAt replays the audit trail up to t. Records stamped exactly at t are included.
func (s *OrderService) StatusAt(ctx context.Context, orderID uuid.UUID, t time.Time) (order.Status, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.OrderStatusAt")
	defer span.End()

	o, err := s.load(ctx, orderID)
	if err != nil {
		return "", fail(span, err)
	}

	status, ok := auditlog.StatusAt(o.CreatedAt, o.history, t)
	if !ok {
		return "", fail(span, apperr.NotFoundErr(fmt.Sprintf("order %s did not exist at %s", o.OrderNumber, t.UTC().Format(time.RFC3339))))
	}

	return status, nil
}

// List returns one page of orders, newest first.
func (s *OrderService) List(ctx context.Context, query order.QueryOrdersModel) (pagination.Result[order.Order], error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.ListOrders")
	defer span.End()

	if err := query.Params.Validate(); err != nil {
		return pagination.Result[order.Order]{}, fail(span, apperr.ValidationErr(err.Error(), map[string]string{"pagination": err.Error()}))
	}
	if !query.From.IsZero() && !query.To.IsZero() && !query.From.Before(query.To) {
		return pagination.Result[order.Order]{}, fail(span, apperr.ValidationErr("invalid date range", map[string]string{"from": "must be before to"}))
	}

	orders, total, err := s.store.List(ctx, query)
	if err != nil {
		return pagination.Result[order.Order]{}, fail(span, err)
	}

	return pagination.NewResult(orders, query.Params, total), nil
}

// ListModified returns every order whose current status is modified, newest first.
func (s *OrderService) ListModified(ctx context.Context) ([]order.Order, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.ListModifiedOrders")
	defer span.End()

	orders, err := s.store.Find(ctx, order.Filter{Status: order.StatusModified})
	if err != nil {
		return nil, fail(span, err)
	}
	if orders == nil {
		orders = []order.Order{}
	}

	return orders, nil
}

type loaded struct {
	order.Order
	history []auditlog.Record
}

// load reads an order with its history and refuses to serve a state the history does not explain.
func (s *OrderService) load(ctx context.Context, orderID uuid.UUID) (loaded, error) {
	o, history, err := s.store.Load(ctx, orderID)
	if err != nil {
		return loaded{}, err
	}
	if err := verify(o, history); err != nil {
		slog.ErrorContext(ctx, "Order needs manual reconciliation",
			"order_id", o.ID,
			"order_number", o.OrderNumber,
			"version", o.Version,
			"records", len(history),
			"status", o.Status,
			"error", err,
		)

		return loaded{}, apperr.StorageErr("manual reconciliation required", err)
	}

	return loaded{Order: o, history: history}, nil
}

func verify(o order.Order, history []auditlog.Record) error {
	if o.Version != len(history) {
		return fmt.Errorf("%w: version %d, %d audit records", ErrPartialWrite, o.Version, len(history))
	}
	for i, r := range history {
		if r.Sequence != i+1 {
			return fmt.Errorf("%w: record %d has sequence %d", ErrPartialWrite, i+1, r.Sequence)
		}
	}
	if replayed := auditlog.Replay(history); replayed != o.Status {
		return fmt.Errorf("%w: stored status %s, replayed %s", ErrPartialWrite, o.Status, replayed)
	}

	return nil
}

func validatePatch(actorID string, modType auditlog.ModificationType, patch order.Patch) error {
	problems := map[string]string{}
	if actorID == "" {
		problems["actorId"] = "is required"
	}
	if modType != "" {
		if _, err := auditlog.ParseModificationType(string(modType)); err != nil {
			problems["modificationType"] = err.Error()
		}
	}
	switch {
	case patch.IsEmpty():
		problems["patch"] = "nothing to modify"
	case patch.CustomerName == nil && patch.Items == nil:
		problems["patch"] = "totalAmount is derived from items and cannot be patched alone"
	case patch.Items != nil:
		for k, v := range orderitem.Validate(patch.Items) {
			problems[k] = v
		}
	}
	if len(problems) > 0 {
		return apperr.ValidationErr("invalid modification", problems)
	}

	return nil
}

func (s *OrderService) checkAdvisoryTotal(ctx context.Context, orderNumber string, submitted *decimal.Decimal, computed decimal.Decimal) {
	if submitted == nil || submitted.Round(2).Equal(computed) {
		return
	}

	slog.WarnContext(ctx, "Submitted total corrected",
		"order_number", orderNumber,
		"submitted", submitted.String(),
		"computed", computed.StringFixed(2),
	)
}

func (s *OrderService) logRejected(ctx context.Context, op string, orderID uuid.UUID, err error) {
	if apperr.Is(err, apperr.InvalidStateTransition) || apperr.Is(err, apperr.NotFound) {
		slog.InfoContext(ctx, "Order transition rejected", "op", op, "order_id", orderID, "reason", err)

		return
	}

	slog.ErrorContext(ctx, "Failed to update order", "op", op, "order_id", orderID, "error", err)
}
