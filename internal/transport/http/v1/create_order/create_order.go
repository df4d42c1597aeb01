package createorder

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/actor"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/converters"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/request"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/response"
	"github.com/shopspring/decimal"
)

// service is an interface for the service layer.
type service interface {
	Create(ctx context.Context, model ordersvc.CreateOrderModel) (order.Order, error)
}

type createOrderRequest struct {
	CustomerName  string                   `json:"customerName" validate:"max=200"`
	Items         []converters.ItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string                   `json:"paymentMethod" validate:"required,oneof=cash card mixed delivery"`
	// TotalAmount is advisory and only compared with the computed total.
	TotalAmount *decimal.Decimal `json:"totalAmount,omitempty"`
}

func (req *createOrderRequest) ToModel(createdBy string) ordersvc.CreateOrderModel {
	return ordersvc.CreateOrderModel{
		CustomerName:  req.CustomerName,
		Items:         converters.ItemsFromRequest(req.Items),
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
		TotalAmount:   req.TotalAmount,
		CreatedBy:     createdBy,
	}
}

// CreateOrder records a completed sale.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	req := &createOrderRequest{}
	if err := request.DecodeJSON(r, req); err != nil {
		response.Error(w, r, err)

		return
	}

	o, err := service.Create(r.Context(), req.ToModel(actor.FromContext(r.Context()).ID))
	if err != nil {
		response.Error(w, r, err)

		return
	}

	response.JSON(w, r, http.StatusCreated, converters.OrderToResponse(o))
}
