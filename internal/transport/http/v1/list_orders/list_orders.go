package listorders

import (
	"context"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/converters"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/request"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/response"
	"github.com/corray333/backend-labs/ledger/pkg/pagination"
)

type service interface {
	List(ctx context.Context, query order.QueryOrdersModel) (pagination.Result[order.Order], error)
}

type queryOrdersRequest struct {
	Status       string    `schema:"status" validate:"omitempty,oneof=completed modified canceled"`
	CreatedBy    string    `schema:"createdBy"`
	CustomerName string    `schema:"customerName"`
	From         time.Time `schema:"from"`
	To           time.Time `schema:"to"`
	Page         *int      `schema:"page"`
	Limit        *int      `schema:"limit"`
}

func (q *queryOrdersRequest) ToModel() order.QueryOrdersModel {
	return order.QueryOrdersModel{
		Filter: order.Filter{
			Status:       order.Status(q.Status),
			CreatedBy:    q.CreatedBy,
			CustomerName: q.CustomerName,
			From:         q.From,
			To:           q.To,
		},
		Params: request.Page(q.Page, q.Limit),
	}
}

// ListOrders returns one page of orders, newest first.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	query := &queryOrdersRequest{}
	if err := request.DecodeQuery(r, query); err != nil {
		response.Error(w, r, err)

		return
	}

	page, err := service.List(r.Context(), query.ToModel())
	if err != nil {
		response.Error(w, r, err)

		return
	}

	response.JSON(w, r, http.StatusOK, converters.PageToResponse(page, converters.OrderToResponse))
}
