package getorder

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/converters"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/request"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/response"
	"github.com/google/uuid"
)

type service interface {
	Get(ctx context.Context, orderID uuid.UUID) (order.Order, error)
}

func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := request.PathUUID(r, "id")
	if err != nil {
		response.Error(w, r, err)

		return
	}

	o, err := service.Get(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)

		return
	}

	response.JSON(w, r, http.StatusOK, converters.OrderToResponse(o))
}
