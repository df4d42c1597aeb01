package receiptqr

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/corray333/backend-labs/ledger/internal/service/services/compliancesvc"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/converters"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/request"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/response"
	"github.com/google/uuid"
)

type service interface {
	BuildForOrder(ctx context.Context, orderID uuid.UUID, opts compliancesvc.BuildOptions) (compliancesvc.Payload, error)
}

type receiptQRRequest struct {
	Format string `schema:"format" validate:"omitempty,oneof=json png"`
	// Hash overrides the computed invoice hash.
	Hash string `schema:"hash" validate:"omitempty,max=128"`
}

// ReceiptQR returns the compliance code of an order as JSON, or as image/png with ?format=png.
func ReceiptQR(w http.ResponseWriter, r *http.Request, service service) {
	id, err := request.PathUUID(r, "id")
	if err != nil {
		response.Error(w, r, err)

		return
	}
	query := &receiptQRRequest{}
	if err := request.DecodeQuery(r, query); err != nil {
		response.Error(w, r, err)

		return
	}

	p, err := service.BuildForOrder(r.Context(), id, compliancesvc.BuildOptions{InvoiceHash: query.Hash})
	if err != nil {
		response.Error(w, r, err)

		return
	}

	if query.Format != "png" {
		response.JSON(w, r, http.StatusOK, converters.ReceiptQRToResponse(p))

		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(p.PNG)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(p.PNG); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write receipt QR", "order_id", id, "error", err)
	}
}
