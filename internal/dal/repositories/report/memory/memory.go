package memory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/ireportrepo"
	"github.com/corray333/backend-labs/ledger/internal/service/models/report"
	"github.com/corray333/backend-labs/ledger/pkg/apperr"
	"github.com/corray333/backend-labs/ledger/pkg/pagination"
	"github.com/google/uuid"
)

var ErrDuplicateReport = errors.New("report already exists")

// ReportRepository keeps persisted reports in process memory.
type ReportRepository struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]report.EODReport
	numbers map[int64]struct{}
}

var _ ireportrepo.IReportRepository = (*ReportRepository)(nil)

// NewReportRepository creates an empty repository.
func NewReportRepository() *ReportRepository {
	return &ReportRepository{
		reports: make(map[uuid.UUID]report.EODReport),
		numbers: make(map[int64]struct{}),
	}
}

// Insert stores r. An existing id or report number is never overwritten.
func (r *ReportRepository) Insert(ctx context.Context, rep report.EODReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reports[rep.ID]; ok {
		return apperr.StorageErr("failed to insert report", ErrDuplicateReport)
	}
	if _, ok := r.numbers[rep.ReportNumber]; ok {
		return apperr.StorageErr("failed to insert report", ErrDuplicateReport)
	}
	if err := ctx.Err(); err != nil {
		return apperr.StorageErr("operation aborted", err)
	}

	r.reports[rep.ID] = clone(rep)
	r.numbers[rep.ReportNumber] = struct{}{}

	return nil
}

// Get returns one report.
func (r *ReportRepository) Get(_ context.Context, id uuid.UUID) (report.EODReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rep, ok := r.reports[id]
	if !ok {
		return report.EODReport{}, apperr.NotFoundErr("report not found")
	}

	return clone(rep), nil
}

// List returns one page of reports, newest window first.
func (r *ReportRepository) List(ctx context.Context, query report.HistoryQuery) ([]report.EODReport, int, error) {
	if err := query.Params.Validate(); err != nil {
		return nil, 0, apperr.ValidationErr(err.Error(), map[string]string{"pagination": err.Error()})
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, apperr.StorageErr("operation aborted", err)
	}

	r.mu.RLock()
	matched := make([]report.EODReport, 0, len(r.reports))
	for _, rep := range r.reports {
		if query.Match(rep) {
			matched = append(matched, clone(rep))
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b report.EODReport) int {
		if c := b.PeriodStart.Compare(a.PeriodStart); c != 0 {
			return c
		}

		return cmp.Compare(b.ReportNumber, a.ReportNumber)
	})

	return pagination.Slice(matched, query.Params), len(matched), nil
}

func clone(rep report.EODReport) report.EODReport {
	rep.PaymentMethodBreakdown = cloneMap(rep.PaymentMethodBreakdown)
	if rep.PreviousPeriod != nil {
		prev := *rep.PreviousPeriod
		prev.PaymentMethodBreakdown = cloneMap(prev.PaymentMethodBreakdown)
		rep.PreviousPeriod = &prev
	}
	if rep.Changes != nil {
		ch := *rep.Changes
		rep.Changes = &ch
	}

	return rep
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}
