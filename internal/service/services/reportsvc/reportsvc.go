package reportsvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/iorderstore"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/ireportrepo"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/isequence"
	"github.com/corray333/backend-labs/ledger/internal/service/models/order"
	"github.com/corray333/backend-labs/ledger/internal/service/models/report"
	"github.com/corray333/backend-labs/ledger/pkg/apperr"
	"github.com/corray333/backend-labs/ledger/pkg/pagination"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ReportService builds end-of-day reports from the order store.
type ReportService struct {
	store      iorderstore.IOrderStore
	reportRepo ireportrepo.IReportRepository
	reportSeq  isequence.ISequence
	vat        VAT
	loc        *time.Location
	now        func() time.Time
}

// option is a function that configures the ReportService.
type option func(*ReportService)

// MustNewReportService creates a new ReportService.
func MustNewReportService(opts ...option) *ReportService {
	s := &ReportService{loc: time.UTC, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil || s.reportRepo == nil || s.reportSeq == nil {
		panic("report service requires an order store, a report repository and a report sequence")
	}

	return s
}

// WithOrderStore sets the order store the reports read from.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderStore(store iorderstore.IOrderStore) option {
	return func(s *ReportService) {
		s.store = store
	}
}

// WithReportRepository sets where persisted reports are kept.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithReportRepository(repo ireportrepo.IReportRepository) option {
	return func(s *ReportService) {
		s.reportRepo = repo
	}
}

// WithReportSequence sets the source of report numbers.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithReportSequence(seq isequence.ISequence) option {
	return func(s *ReportService) {
		s.reportSeq = seq
	}
}

// WithVAT sets the VAT rate and whether order totals include it.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithVAT(vat VAT) option {
	return func(s *ReportService) {
		s.vat = vat
	}
}

// WithLocation sets the time zone used for presets.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithLocation(loc *time.Location) option {
	return func(s *ReportService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides time.Now.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *ReportService) {
		s.now = now
	}
}

// fail marks the span as failed with the error kind and returns err.
func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(apperr.KindOf(err)))

	return err
}

// GenerateModel is the input of Generate.
type GenerateModel struct {
	PeriodStart       time.Time
	PeriodEnd         time.Time
	IncludeComparison bool
	Persist           bool
	RequestedBy       string
}

// Generate aggregates the orders created in [PeriodStart, PeriodEnd). With IncludeComparison
// the window of equal length right before it is summarized as well. With Persist the report
// gets the next report number and is stored; it is never overwritten afterwards.
func (s *ReportService) Generate(ctx context.Context, model GenerateModel) (report.EODReport, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.GenerateEODReport")
	defer span.End()

	problems := map[string]string{}
	if model.PeriodStart.IsZero() || model.PeriodEnd.IsZero() {
		problems["period"] = "start and end are required"
	} else if !model.PeriodStart.Before(model.PeriodEnd) {
		problems["periodStart"] = "must be before periodEnd"
	}
	if model.RequestedBy == "" {
		problems["requestedBy"] = "is required"
	}
	if len(problems) > 0 {
		return report.EODReport{}, fail(span, apperr.ValidationErr("invalid report request", problems))
	}

	span.SetAttributes(
		attribute.String("report.period_start", model.PeriodStart.UTC().Format(time.RFC3339)),
		attribute.String("report.period_end", model.PeriodEnd.UTC().Format(time.RFC3339)),
		attribute.Bool("report.comparison", model.IncludeComparison),
	)

	var (
		cur, prev report.Summary
		length    = model.PeriodEnd.Sub(model.PeriodStart)
		prevStart = model.PeriodStart.Add(-length)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cur, err = s.summarize(gctx, model.PeriodStart, model.PeriodEnd)

		return err
	})
	if model.IncludeComparison {
		g.Go(func() error {
			var err error
			prev, err = s.summarize(gctx, prevStart, model.PeriodStart)

			return err
		})
	}
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Failed to read orders for EOD report", "error", err)

		return report.EODReport{}, fail(span, err)
	}

	rep := report.EODReport{
		ID:               uuid.New(),
		Summary:          cur,
		VatRate:          s.vat.Rate,
		PricesIncludeVat: s.vat.PricesInclude,
		GeneratedBy:      model.RequestedBy,
		GeneratedAt:      s.now().UTC(),
	}
	if model.IncludeComparison {
		rep.PreviousPeriod = &prev
		rep.Changes = compare(cur, prev)
	}

	if model.Persist {
		if err := s.persist(ctx, &rep); err != nil {
			return report.EODReport{}, fail(span, err)
		}
	}

	slog.InfoContext(ctx, "EOD report generated",
		"report_id", rep.ID,
		"report_number", rep.ReportNumber,
		"period_start", rep.PeriodStart,
		"period_end", rep.PeriodEnd,
		"total_orders", rep.TotalOrders,
		"total_with_vat", rep.TotalWithVat.StringFixed(2),
		"persisted", rep.Persisted,
		"generated_by", rep.GeneratedBy,
	)

	return rep, nil
}

// GeneratePreset generates the report of a named window computed from the current time.
func (s *ReportService) GeneratePreset(
	ctx context.Context,
	preset report.Preset,
	includeComparison, persist bool,
	requestedBy string,
) (report.EODReport, error) {
	start, end, err := preset.Window(s.now(), s.loc)
	if err != nil {
		return report.EODReport{}, apperr.ValidationErr(err.Error(), map[string]string{"preset": err.Error()})
	}

	return s.Generate(ctx, GenerateModel{
		PeriodStart:       start,
		PeriodEnd:         end,
		IncludeComparison: includeComparison,
		Persist:           persist,
		RequestedBy:       requestedBy,
	})
}

// History returns one page of persisted reports, newest window first.
func (s *ReportService) History(ctx context.Context, query report.HistoryQuery) (pagination.Result[report.EODReport], error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.GetEODReportHistory")
	defer span.End()

	if err := query.Params.Validate(); err != nil {
		return pagination.Result[report.EODReport]{}, fail(span, apperr.ValidationErr(err.Error(), map[string]string{"pagination": err.Error()}))
	}
	if !query.From.IsZero() && !query.To.IsZero() && !query.From.Before(query.To) {
		return pagination.Result[report.EODReport]{}, fail(span, apperr.ValidationErr("invalid date range", map[string]string{"from": "must be before to"}))
	}

	reports, total, err := s.reportRepo.List(ctx, query)
	if err != nil {
		return pagination.Result[report.EODReport]{}, fail(span, err)
	}

	return pagination.NewResult(reports, query.Params, total), nil
}

// Get returns one persisted report.
func (s *ReportService) Get(ctx context.Context, id uuid.UUID) (report.EODReport, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "Service.GetEODReport")
	defer span.End()

	rep, err := s.reportRepo.Get(ctx, id)
	if err != nil {
		return report.EODReport{}, fail(span, err)
	}

	return rep, nil
}

func (s *ReportService) summarize(ctx context.Context, start, end time.Time) (report.Summary, error) {
	orders, err := s.store.Find(ctx, order.Filter{From: start, To: end})
	if err != nil {
		return report.Summary{}, err
	}

	return summarize(orders, start, end, s.vat), nil
}

func (s *ReportService) persist(ctx context.Context, rep *report.EODReport) error {
	n, err := s.reportSeq.Next(ctx)
	if err != nil {
		return apperr.StorageErr("failed to assign report number", err)
	}
	rep.ReportNumber = n
	rep.Persisted = true

	if err := s.reportRepo.Insert(ctx, *rep); err != nil {
		slog.ErrorContext(ctx, "Failed to persist EOD report", "report_number", n, "error", err)
		if _, ok := apperr.As(err); ok {
			return err
		}

		return apperr.StorageErr(fmt.Sprintf("failed to persist report %d", n), err)
	}

	return nil
}
