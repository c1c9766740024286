package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/observability"
)

const runTimeout = 5 * time.Minute

// Reports is the reporting surface the monthly close drives.
type Reports interface {
	PreviousMonth() string
	ActiveUsers(ctx context.Context, month string) ([]string, error)
	MonthlyReport(ctx context.Context, userID, month string) (models.MonthlyReport, error)
}

// Exporter publishes closed reports outside the store.
type Exporter interface {
	Export(ctx context.Context, reports []models.MonthlyReport) (int, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	reports  Reports
	exporter Exporter
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewScheduler creates a scheduler that closes the previous month on the given
// standard cron schedule, evaluated in loc. exporter may be nil.
func NewScheduler(schedule string, loc *time.Location, reports Reports, exporter Exporter, metrics *observability.Metrics, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		schedule: schedule,
		reports:  reports,
		exporter: exporter,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))

	if _, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		_, _ = s.RunMonthlyClose(ctx)
	}); err != nil {
		return fmt.Errorf("schedule monthly close: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// RunMonthlyClose materializes the previous month's report for every user
// active in it, then exports them. A failing user does not stop the others.
func (s *Scheduler) RunMonthlyClose(ctx context.Context) ([]models.MonthlyReport, error) {
	month := s.reports.PreviousMonth()
	logger := s.logger.With(zap.String("month", month))
	logger.Info("running monthly close")

	users, err := s.reports.ActiveUsers(ctx, month)
	if err != nil {
		s.metrics.ScheduledReportRuns.WithLabelValues("error").Inc()
		logger.Error("failed to list active users", zap.Error(err))
		return nil, err
	}

	reports := make([]models.MonthlyReport, 0, len(users))
	var failed int
	for _, userID := range users {
		report, err := s.reports.MonthlyReport(ctx, userID, month)
		if err != nil {
			failed++
			logger.Error("failed to close report", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		reports = append(reports, report)
	}

	var exportErr error
	if s.exporter != nil {
		exported, err := s.exporter.Export(ctx, reports)
		if err != nil {
			exportErr = fmt.Errorf("export reports: %w", err)
			logger.Error("failed to export reports", zap.Error(err))
		} else {
			logger.Info("reports exported", zap.Int("rows", exported))
		}
	}

	if failed > 0 || exportErr != nil {
		s.metrics.ScheduledReportRuns.WithLabelValues("error").Inc()
	} else {
		s.metrics.ScheduledReportRuns.WithLabelValues("ok").Inc()
	}
	logger.Info("monthly close finished", zap.Int("users", len(users)), zap.Int("reports", len(reports)), zap.Int("failed", failed))

	if exportErr != nil {
		return reports, exportErr
	}
	if failed > 0 {
		return reports, fmt.Errorf("%d of %d reports failed", failed, len(users))
	}
	return reports, nil
}
