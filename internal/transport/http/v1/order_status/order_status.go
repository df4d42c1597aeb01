package orderstatus

import (
	"context"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/request"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/response"
	"github.com/google/uuid"
)

type service interface {
	StatusAt(ctx context.Context, orderID uuid.UUID, t time.Time) (order.Status, error)
}

type statusRequest struct {
	At time.Time `schema:"at"`
}

type statusResponse struct {
	OrderID uuid.UUID `json:"orderId"`
	At      time.Time `json:"at"`
	Status  string    `json:"status"`
}

// OrderStatus replays the audit history of an order up to ?at= (default now).
func OrderStatus(w http.ResponseWriter, r *http.Request, service service) {
	id, err := request.PathUUID(r, "id")
	if err != nil {
		response.Error(w, r, err)

		return
	}
	query := &statusRequest{}
	if err := request.DecodeQuery(r, query); err != nil {
		response.Error(w, r, err)

		return
	}
	if query.At.IsZero() {
		query.At = time.Now().UTC()
	}

	status, err := service.StatusAt(r.Context(), id, query.At)
	if err != nil {
		response.Error(w, r, err)

		return
	}

	response.JSON(w, r, http.StatusOK, statusResponse{OrderID: id, At: query.At, Status: status.String()})
}
