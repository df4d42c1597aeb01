package ireportrepo

import (
	"context"

	"github.com/corray333/backend-labs/ledger/internal/service/models/report"
	"github.com/google/uuid"
)

// IReportRepository stores persisted EOD reports. Reports are insert-only.
type IReportRepository interface {
	Insert(ctx context.Context, r report.EODReport) error
	Get(ctx context.Context, id uuid.UUID) (report.EODReport, error)
	// List returns one page of reports, newest window first, and the number of matches.
	List(ctx context.Context, query report.HistoryQuery) ([]report.EODReport, int, error)
}
