package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/agriscore/internal/apperr"
	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/observability"
	"github.com/mamadbah2/agriscore/internal/repository"
	"github.com/mamadbah2/agriscore/internal/service/scoring"
)

const (
	monthLayout = "2006-01"
	dateLayout  = "2006-01-02"
	areaUnit    = "hectares"
)

// Store is the persistence the aggregator needs.
type Store interface {
	GetMonthlyReport(ctx context.Context, userID, month string) (models.MonthlyReport, error)
	InsertMonthlyReport(ctx context.Context, r models.MonthlyReport) error
	DeleteMonthlyReport(ctx context.Context, userID, month string) error
	CountActions(ctx context.Context, f repository.ActionFilter) (int64, error)
	FindActions(ctx context.Context, f repository.ActionFilter) ([]models.Action, error)
	FindScores(ctx context.Context, f repository.ScoreFilter, limit int) ([]models.Score, error)
	ActiveUsers(ctx context.Context, from, to time.Time) ([]string, error)
}

// Service computes and caches monthly reports.
type Service struct {
	store   Store
	clock   clockwork.Clock
	loc     *time.Location
	metrics *observability.Metrics
	logger  *zap.Logger
	locks   *keyedMutex
}

// NewService wires a new reporting service instance.
func NewService(store Store, clock clockwork.Clock, loc *time.Location, metrics *observability.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &Service{
		store:   store,
		clock:   clock,
		loc:     loc,
		metrics: metrics,
		logger:  logger.Named("svc.reporting"),
		locks:   newKeyedMutex(),
	}
}

// MonthlyReport returns the cached report for the month, generating it on
// first request. An empty month means the current month.
func (s *Service) MonthlyReport(ctx context.Context, userID, month string) (models.MonthlyReport, error) {
	return s.report(ctx, userID, month, false)
}

// Regenerate discards any cached report for the month and computes a fresh one.
func (s *Service) Regenerate(ctx context.Context, userID, month string) (models.MonthlyReport, error) {
	return s.report(ctx, userID, month, true)
}

// CurrentMonth returns the YYYY-MM label of the clock's month in the
// configured location.
func (s *Service) CurrentMonth() string {
	return s.clock.Now().In(s.loc).Format(monthLayout)
}

// PreviousMonth returns the label of the month before the current one.
func (s *Service) PreviousMonth() string {
	now := s.clock.Now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	return start.AddDate(0, -1, 0).Format(monthLayout)
}

// ActiveUsers lists the users that logged at least one action in month.
func (s *Service) ActiveUsers(ctx context.Context, month string) ([]string, error) {
	start, _, err := ParseMonth(month, s.clock.Now(), s.loc)
	if err != nil {
		return nil, err
	}
	users, err := s.store.ActiveUsers(ctx, start, start.AddDate(0, 1, 0))
	if err != nil {
		return nil, apperr.Persistence("Failed to list active users", err)
	}
	return users, nil
}

func (s *Service) report(ctx context.Context, userID, month string, force bool) (models.MonthlyReport, error) {
	if userID == "" {
		return models.MonthlyReport{}, apperr.Unauthorized()
	}
	start, label, err := ParseMonth(month, s.clock.Now(), s.loc)
	if err != nil {
		return models.MonthlyReport{}, err
	}

	unlock := s.locks.Lock(userID + "|" + label)
	defer unlock()

	outcome := "generated"
	if force {
		if err := s.store.DeleteMonthlyReport(ctx, userID, label); err != nil {
			return models.MonthlyReport{}, apperr.Persistence("Failed to generate report", err)
		}
		outcome = "regenerated"
	} else {
		existing, err := s.store.GetMonthlyReport(ctx, userID, label)
		switch {
		case err == nil:
			s.metrics.ReportRequests.WithLabelValues("cached").Inc()
			return existing, nil
		case !errors.Is(err, repository.ErrNotFound):
			return models.MonthlyReport{}, apperr.Persistence("Failed to fetch report", err)
		}
	}

	summary, err := s.summarize(ctx, userID, start)
	if err != nil {
		return models.MonthlyReport{}, apperr.Persistence("Failed to generate report", err)
	}

	report := models.MonthlyReport{
		ID:          uuid.NewString(),
		UserID:      userID,
		Month:       label,
		Summary:     summary,
		RewardsTier: RewardsTierFor(summary),
		GeneratedAt: s.clock.Now().UTC().Truncate(time.Millisecond),
	}

	if err := s.store.InsertMonthlyReport(ctx, report); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return models.MonthlyReport{}, apperr.Persistence("Failed to generate report", err)
		}
		// Another process won the insert; serve its copy.
		winner, getErr := s.store.GetMonthlyReport(ctx, userID, label)
		if getErr != nil {
			return models.MonthlyReport{}, apperr.Persistence("Failed to fetch report", getErr)
		}
		s.logger.Info("report generated concurrently elsewhere", zap.String("user_id", userID), zap.String("month", label))
		s.metrics.ReportRequests.WithLabelValues("cached").Inc()
		return winner, nil
	}

	s.metrics.ReportRequests.WithLabelValues(outcome).Inc()
	s.logger.Info("monthly report stored",
		zap.String("user_id", userID),
		zap.String("month", label),
		zap.String("tier", string(report.RewardsTier)),
		zap.Bool("forced", force),
	)
	return report, nil
}

func (s *Service) summarize(ctx context.Context, userID string, start time.Time) (models.ReportSummary, error) {
	end := start.AddDate(0, 1, 0)

	var (
		total      int64
		irrigation []models.Action
		scores     []models.Score
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountActions(gctx, repository.ActionFilter{UserID: userID, From: start, To: end})
		if err != nil {
			return fmt.Errorf("count actions: %w", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		actions, err := s.store.FindActions(gctx, repository.ActionFilter{UserID: userID, Type: models.ActionIrrigation, From: start, To: end})
		if err != nil {
			return fmt.Errorf("load irrigation actions: %w", err)
		}
		irrigation = actions
		return nil
	})
	g.Go(func() error {
		found, err := s.store.FindScores(gctx, repository.ScoreFilter{
			UserID:   userID,
			FromDate: start.Format(dateLayout),
			ToDate:   end.Format(dateLayout),
		}, 0)
		if err != nil {
			return fmt.Errorf("load scores: %w", err)
		}
		scores = found
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.ReportSummary{}, err
	}

	soil, irr, weed := AverageScores(scores)
	return models.ReportSummary{
		TotalActions:       total,
		AverageSoilHealth:  soil,
		AverageWeedRisk:    weed,
		AverageIrrigation:  irr,
		TotalIrrigatedArea: IrrigatedArea(irrigation),
		Unit:               areaUnit,
	}, nil
}

// ParseMonth resolves a YYYY-MM label to the first instant of that month in
// loc. An empty label resolves to the month containing now.
func ParseMonth(month string, now time.Time, loc *time.Location) (time.Time, string, error) {
	month = strings.TrimSpace(month)
	if month == "" {
		local := now.In(loc)
		start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.Format(monthLayout), nil
	}
	start, err := time.ParseInLocation(monthLayout, month, loc)
	if err != nil {
		return time.Time{}, "", apperr.Validation("Invalid month format. Use YYYY-MM")
	}
	return start, start.Format(monthLayout), nil
}

// AverageScores returns the rounded means of the three score series, zero
// for an empty input.
func AverageScores(scores []models.Score) (soil, irrigation, weed int) {
	if len(scores) == 0 {
		return 0, 0, 0
	}
	var sumSoil, sumIrr, sumWeed float64
	for _, sc := range scores {
		sumSoil += float64(sc.SoilHealthScore)
		sumIrr += float64(sc.IrrigationScore)
		sumWeed += float64(sc.WeedRiskScore)
	}
	n := float64(len(scores))
	return scoring.Round(sumSoil / n), scoring.Round(sumIrr / n), scoring.Round(sumWeed / n)
}

// IrrigatedArea sums the quantity of irrigation actions recorded in hectares.
func IrrigatedArea(actions []models.Action) float64 {
	var total float64
	for _, a := range actions {
		if a.Type != models.ActionIrrigation || a.Quantity == nil {
			continue
		}
		if isHectares(a.Unit) {
			total += *a.Quantity
		}
	}
	return total
}

func isHectares(unit string) bool {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "ha", "hectare", "hectares":
		return true
	}
	return false
}

// RewardsTierFor classifies a summary by its combined score.
func RewardsTierFor(summary models.ReportSummary) models.RewardsTier {
	combined := float64(summary.AverageSoilHealth+summary.AverageIrrigation+(100-summary.AverageWeedRisk)) / 3
	return TierForCombined(combined)
}

// TierForCombined maps a combined score onto a tier. Thresholds are inclusive.
func TierForCombined(combined float64) models.RewardsTier {
	switch {
	case combined >= 85:
		return models.TierGold
	case combined >= 70:
		return models.TierSilver
	case combined >= 60:
		return models.TierBronze
	default:
		return models.TierNone
	}
}
