package eod

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/ledger/internal/service/models/report"
	"github.com/go-co-op/gocron/v2"
)

// Actor is recorded as generatedBy on scheduled reports.
const Actor = "system:eod-scheduler"

const runTimeout = 2 * time.Minute

type generator interface {
	GeneratePreset(
		ctx context.Context,
		preset report.Preset,
		includeComparison, persist bool,
		requestedBy string,
	) (report.EODReport, error)
}

// Scheduler persists yesterday's report once a day.
type Scheduler struct {
	gen       generator
	hour      uint
	minute    uint
	loc       *time.Location
	scheduler gocron.Scheduler
}

// ParseAt parses an "HH:MM" wall clock time.
func ParseAt(at string) (uint, uint, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid schedule time %q: %w", at, err)
	}

	return uint(t.Hour()), uint(t.Minute()), nil
}

// NewScheduler prepares a daily job at the given "HH:MM" in loc.
func NewScheduler(gen generator, at string, loc *time.Location) (*Scheduler, error) {
	hour, minute, err := ParseAt(at)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{gen: gen, hour: hour, minute: minute, loc: loc}, nil
}

// Start registers the job and starts the scheduler.
func (s *Scheduler) Start() error {
	sched, err := gocron.NewScheduler(gocron.WithLocation(s.loc))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DailyJob(
			1,
			gocron.NewAtTimes(
				gocron.NewAtTime(s.hour, s.minute, 0),
			),
		),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
			defer cancel()
			_ = s.runOnce(ctx)
		}),
		gocron.WithName("eod-report"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule eod report: %w", err)
	}

	s.scheduler = sched
	sched.Start()
	slog.Info("EOD scheduler started", "at", fmt.Sprintf("%02d:%02d", s.hour, s.minute), "location", s.loc.String())

	return nil
}

// Shutdown stops the scheduler and waits for a running job.
func (s *Scheduler) Shutdown() error {
	if s.scheduler == nil {
		return nil
	}

	return s.scheduler.Shutdown()
}

func (s *Scheduler) runOnce(ctx context.Context) error {
	rep, err := s.gen.GeneratePreset(ctx, report.PresetYesterday, true, true, Actor)
	if err != nil {
		slog.ErrorContext(ctx, "Scheduled EOD report failed", "error", err)

		return err
	}

	slog.InfoContext(ctx, "Scheduled EOD report persisted",
		"report_number", rep.ReportNumber,
		"period_start", rep.PeriodStart,
	)

	return nil
}
