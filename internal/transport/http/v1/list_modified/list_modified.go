package listmodified

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/converters"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/response"
)

type service interface {
	ListModified(ctx context.Context) ([]order.Order, error)
}

func ListModified(w http.ResponseWriter, r *http.Request, service service) {
	orders, err := service.ListModified(r.Context())
	if err != nil {
		response.Error(w, r, err)

		return
	}

	response.JSON(w, r, http.StatusOK, converters.OrdersToResponse(orders))
}
