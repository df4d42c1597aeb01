package modifyorder

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/ledger/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/actor"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/converters"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/request"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/response"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type service interface {
	Modify(
		ctx context.Context,
		orderID uuid.UUID,
		actorID string,
		modType auditlog.ModificationType,
		patch order.Patch,
	) (order.Order, error)
}

type modifyOrderRequest struct {
	ModificationType string                   `json:"modificationType" validate:"omitempty,oneof=item_added item_removed quantity_changed item_replaced multiple_changes"`
	CustomerName     *string                  `json:"customerName" validate:"omitempty,max=200"`
	Items            []converters.ItemRequest `json:"items" validate:"omitempty,dive"`
	TotalAmount      *decimal.Decimal         `json:"totalAmount"`
}

func (req *modifyOrderRequest) ToPatch() order.Patch {
	return order.Patch{
		CustomerName: req.CustomerName,
		Items:        converters.ItemsFromRequest(req.Items),
		TotalAmount:  req.TotalAmount,
	}
}

// ModifyOrder applies a partial update; the modification type is inferred when omitted.
func ModifyOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := request.PathUUID(r, "id")
	if err != nil {
		response.Error(w, r, err)

		return
	}
	req := &modifyOrderRequest{}
	if err := request.DecodeJSON(r, req); err != nil {
		response.Error(w, r, err)

		return
	}

	o, err := service.Modify(
		r.Context(),
		id,
		actor.FromContext(r.Context()).ID,
		auditlog.ModificationType(req.ModificationType),
		req.ToPatch(),
	)
	if err != nil {
		response.Error(w, r, err)

		return
	}

	response.JSON(w, r, http.StatusOK, converters.OrderToResponse(o))
}
