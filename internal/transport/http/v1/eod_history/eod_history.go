package eodhistory

import (
	"context"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/report"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/converters"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/request"
	"github.com/corray333/backend-labs/ledger/internal/transport/http/v1/response"
	"github.com/corray333/backend-labs/ledger/pkg/pagination"
)

type service interface {
	History(ctx context.Context, query report.HistoryQuery) (pagination.Result[report.EODReport], error)
}

type historyRequest struct {
	From  time.Time `schema:"from"`
	To    time.Time `schema:"to"`
	Page  *int      `schema:"page"`
	Limit *int      `schema:"limit"`
}

// EODHistory lists persisted reports.
func EODHistory(w http.ResponseWriter, r *http.Request, service service) {
	query := &historyRequest{}
	if err := request.DecodeQuery(r, query); err != nil {
		response.Error(w, r, err)

		return
	}

	page, err := service.History(r.Context(), report.HistoryQuery{
		Params: request.Page(query.Page, query.Limit),
		From:   query.From,
		To:     query.To,
	})
	if err != nil {
		response.Error(w, r, err)

		return
	}

	response.JSON(w, r, http.StatusOK, converters.PageToResponse(page, converters.ReportToResponse))
}
