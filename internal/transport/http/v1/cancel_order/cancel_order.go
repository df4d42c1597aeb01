package cancelorder

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/actor"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/converters"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/request"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/response"
	"github.com/google/uuid"
)

type service interface {
	Cancel(ctx context.Context, orderID uuid.UUID, actorID, reason string) (order.Order, error)
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// CancelOrder voids an order. The body with a reason is optional.
func CancelOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := request.PathUUID(r, "id")
	if err != nil {
		response.Error(w, r, err)

		return
	}
	req := &cancelOrderRequest{}
	if r.ContentLength != 0 {
		if err := request.DecodeJSON(r, req); err != nil {
			response.Error(w, r, err)

			return
		}
	}

	o, err := service.Cancel(r.Context(), id, actor.FromContext(r.Context()).ID, req.Reason)
	if err != nil {
		response.Error(w, r, err)

		return
	}

	response.JSON(w, r, http.StatusOK, converters.OrderToResponse(o))
}
