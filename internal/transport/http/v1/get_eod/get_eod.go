package geteod

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/ledger/internal/service/models/report"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/converters"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/request"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/response"
	"github.com/google/uuid"
)

type service interface {
	Get(ctx context.Context, id uuid.UUID) (report.EODReport, error)
}

func GetEOD(w http.ResponseWriter, r *http.Request, service service) {
	id, err := request.PathUUID(r, "id")
	if err != nil {
		response.Error(w, r, err)

		return
	}

	rep, err := service.Get(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)

		return
	}

	response.JSON(w, r, http.StatusOK, converters.ReportToResponse(rep))
}
