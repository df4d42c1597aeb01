package generateeod

import (
	"context"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/report"
	"github.com/corray333/backend-labs/ledger/internal/service/services/reportsvc"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/actor"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/converters"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/request"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/response"
)

type service interface {
	Generate(ctx context.Context, model reportsvc.GenerateModel) (report.EODReport, error)
	GeneratePreset(
		ctx context.Context,
		preset report.Preset,
		includeComparison, persist bool,
		requestedBy string,
	) (report.EODReport, error)
}

// generateRequest takes either a preset or an explicit window.
type generateRequest struct {
	Preset            string     `json:"preset" validate:"omitempty,oneof=today yesterday last-7-days"`
	PeriodStart       *time.Time `json:"periodStart" validate:"required_without=Preset,excluded_with=Preset"`
	PeriodEnd         *time.Time `json:"periodEnd" validate:"required_without=Preset,excluded_with=Preset"`
	IncludeComparison bool       `json:"includeComparison"`
	Persist           bool       `json:"persist"`
}

func GenerateEOD(w http.ResponseWriter, r *http.Request, service service) {
	req := &generateRequest{}
	if err := request.DecodeJSON(r, req); err != nil {
		response.Error(w, r, err)

		return
	}
	requestedBy := actor.FromContext(r.Context()).ID

	var (
		rep report.EODReport
		err error
	)
	if req.Preset != "" {
		rep, err = service.GeneratePreset(r.Context(), report.Preset(req.Preset), req.IncludeComparison, req.Persist, requestedBy)
	} else {
		rep, err = service.Generate(r.Context(), reportsvc.GenerateModel{
			PeriodStart:       *req.PeriodStart,
			PeriodEnd:         *req.PeriodEnd,
			IncludeComparison: req.IncludeComparison,
			Persist:           req.Persist,
			RequestedBy:       requestedBy,
		})
	}
	if err != nil {
		response.Error(w, r, err)

		return
	}

	status := http.StatusOK
	if rep.Persisted {
		status = http.StatusCreated
	}
	response.JSON(w, r, status, converters.ReportToResponse(rep))
}
