package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/ledger/internal/dal/interfaces/ireportrepo"
	"github.com/corray333/backend-labs/ledger/internal/dal/postgres"
	"github.com/corray333/backend-labs/ledger/internal/service/models/report"
	"github.com/corray333/backend-labs/ledger/pkg/apperr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrDuplicateReport = errors.New("report already exists")

// ReportRepository stores EOD reports as immutable JSONB snapshots.
type ReportRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

var _ ireportrepo.IReportRepository = (*ReportRepository)(nil)

// NewReportRepository creates a new report repository.
func NewReportRepository(conn postgres.GenericConn) *ReportRepository {
	return &ReportRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert stores a persisted report.
func (r *ReportRepository) Insert(ctx context.Context, rep report.EODReport) error {
	payload, err := json.Marshal(rep)
	if err != nil {
		return apperr.StorageErr("failed to insert report", fmt.Errorf("failed to marshal report: %w", err))
	}

	query, args, err := r.sb.Insert("eod_reports").
		Columns(
			"id",
			"report_number",
			"period_start",
			"period_end",
			"generated_by",
			"generated_at",
			"payload",
		).
		Values(
			rep.ID.String(),
			rep.ReportNumber,
			rep.PeriodStart,
			rep.PeriodEnd,
			rep.GeneratedBy,
			rep.GeneratedAt,
			payload,
		).
		ToSql()
	if err != nil {
		return apperr.StorageErr("failed to insert report", fmt.Errorf("failed to build insert query: %w", err))
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperr.StorageErr("failed to insert report", fmt.Errorf("%w: %w", ErrDuplicateReport, err))
		}

		return apperr.StorageErr("failed to insert report", err)
	}

	return nil
}

// Get returns one report.
func (r *ReportRepository) Get(ctx context.Context, id uuid.UUID) (report.EODReport, error) {
	query, args, err := r.sb.Select("payload").
		From("eod_reports").
		Where(sq.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return report.EODReport{}, apperr.StorageErr("failed to get report", err)
	}

	var payload []byte
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return report.EODReport{}, apperr.NotFoundErr("report not found")
		}

		return report.EODReport{}, apperr.StorageErr("failed to get report", err)
	}

	return decode(payload)
}

// List returns one page of reports, newest window first.
func (r *ReportRepository) List(ctx context.Context, q report.HistoryQuery) ([]report.EODReport, int, error) {
	if err := q.Params.Validate(); err != nil {
		return nil, 0, apperr.ValidationErr(err.Error(), map[string]string{"pagination": err.Error()})
	}

	countQuery, countArgs, err := applyRange(r.sb.Select("COUNT(*)").From("eod_reports"), q).ToSql()
	if err != nil {
		return nil, 0, apperr.StorageErr("failed to list reports", err)
	}
	var total int
	if err := r.conn.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, apperr.StorageErr("failed to count reports", err)
	}

	query, args, err := applyRange(r.sb.Select("payload").From("eod_reports"), q).
		OrderBy("period_start DESC", "report_number DESC").
		Limit(uint64(q.PageSize)).
		Offset(uint64(q.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, apperr.StorageErr("failed to list reports", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.StorageErr("failed to list reports", err)
	}
	defer rows.Close()

	reports := make([]report.EODReport, 0, q.PageSize)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, 0, apperr.StorageErr("failed to scan report", err)
		}
		rep, err := decode(payload)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.StorageErr("failed to list reports", err)
	}

	return reports, total, nil
}

func applyRange(b sq.SelectBuilder, q report.HistoryQuery) sq.SelectBuilder {
	if !q.From.IsZero() {
		b = b.Where(sq.GtOrEq{"period_start": q.From})
	}
	if !q.To.IsZero() {
		b = b.Where(sq.Lt{"period_start": q.To})
	}

	return b
}

func decode(payload []byte) (report.EODReport, error) {
	var rep report.EODReport
	if err := json.Unmarshal(payload, &rep); err != nil {
		return report.EODReport{}, apperr.StorageErr("failed to decode report", err)
	}

	return rep, nil
}
