// Package actions logs farm activities and derives their scores and alerts.
package actions

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/agriscore/internal/apperr"
	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/observability"
	"github.com/mamadbah2/agriscore/internal/repository"
	"github.com/mamadbah2/agriscore/internal/service/access"
	"github.com/mamadbah2/agriscore/internal/service/scoring"
)

const (
	dateLayout       = "2006-01-02"
	irrigationWindow = 7 * 24 * time.Hour

	defaultHumidity    = 60
	defaultTemperature = 25
	defaultSoilType    = "unknown"
	defaultWeedRisk    = 25
	trendThreshold     = 5
)

// Store is the persistence the action log needs.
type Store interface {
	access.CropOwnershipStore
	InsertAction(ctx context.Context, a models.Action) error
	DeleteAction(ctx context.Context, id string) error
	CountActions(ctx context.Context, f repository.ActionFilter) (int64, error)
	InsertScore(ctx context.Context, sc models.Score) error
	DeleteScore(ctx context.Context, id string) error
	FindScores(ctx context.Context, f repository.ScoreFilter, limit int) ([]models.Score, error)
	InsertAlert(ctx context.Context, a models.Alert) error
	DeleteAlert(ctx context.Context, id string) error
	LatestReadings(ctx context.Context, f repository.ReadingFilter, limit int) ([]models.SensorReading, error)
}

// Notifier forwards alerts to people outside the app.
type Notifier interface {
	NotifyAlert(ctx context.Context, alert models.Alert)
}

// Service orchestrates the action log.
type Service struct {
	store    Store
	notifier Notifier
	clock    clockwork.Clock
	loc      *time.Location
	metrics  *observability.Metrics
	logger   *zap.Logger

	inflight sync.WaitGroup
}

// NewService wires the action service. notifier may be nil.
func NewService(store Store, notifier Notifier, clock clockwork.Clock, loc *time.Location, metrics *observability.Metrics, logger *zap.Logger) *Service {
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
		store:    store,
		notifier: notifier,
		clock:    clock,
		loc:      loc,
		metrics:  metrics,
		logger:   logger.Named("svc.actions"),
	}
}

// LogAction stores the action, scores it and raises any alerts. Either all
// of the records are stored or none are.
func (s *Service) LogAction(ctx context.Context, userID string, req models.LogActionRequest) (models.LogActionResult, error) {
	if userID == "" {
		return models.LogActionResult{}, apperr.Unauthorized()
	}
	actionType, err := models.ParseActionType(req.ActionType)
	if err != nil {
		return models.LogActionResult{}, apperr.Validation("Invalid action type")
	}

	start := s.clock.Now()
	defer func() { s.metrics.ActionLogDuration.Observe(s.clock.Since(start).Seconds()) }()
	started := storedTime(start)

	action := models.Action{
		ID:        uuid.NewString(),
		UserID:    userID,
		FarmID:    strings.TrimSpace(req.FarmID),
		FieldID:   strings.TrimSpace(req.FieldID),
		CropID:    strings.TrimSpace(req.CropID),
		Type:      actionType,
		Timestamp: started,
		Quantity:  req.Quantity,
		Unit:      strings.TrimSpace(req.Unit),
		Notes:     req.Notes,
		CreatedAt: started,
	}
	if req.ActionTimestamp != nil && !req.ActionTimestamp.IsZero() {
		action.Timestamp = storedTime(*req.ActionTimestamp)
	}

	in, err := s.gatherInputs(ctx, action, started)
	if err != nil {
		return models.LogActionResult{}, err
	}

	risk := scoring.EstimateWeedRisk(in.weedRisk)
	condition := scoring.ScoreFieldCondition(in.reading, actionType)
	drafts := scoring.EvaluateAlerts(risk, in.reading)

	tx := newSaga(s.metrics, s.logger)

	if err := s.store.InsertAction(ctx, action); err != nil {
		return models.LogActionResult{}, apperr.Persistence("Failed to log action", err)
	}
	tx.onRollback("action", func(ctx context.Context) error { return s.store.DeleteAction(ctx, action.ID) })

	score := models.Score{
		ID:              uuid.NewString(),
		UserID:          userID,
		FarmID:          action.FarmID,
		FieldID:         action.FieldID,
		CropID:          action.CropID,
		ActionID:        action.ID,
		Date:            started.In(s.loc).Format(dateLayout),
		SoilHealthScore: condition.SoilHealth,
		IrrigationScore: condition.Irrigation,
		WeedRiskScore:   risk.Score,
		CreatedAt:       started,
	}
	if err := s.store.InsertScore(ctx, score); err != nil {
		tx.rollback(ctx)
		return models.LogActionResult{}, apperr.Persistence("Failed to log action", err)
	}
	tx.onRollback("score", func(ctx context.Context) error { return s.store.DeleteScore(ctx, score.ID) })

	alerts := make([]models.Alert, 0, len(drafts))
	for _, d := range drafts {
		alert := models.Alert{
			ID:              uuid.NewString(),
			UserID:          userID,
			FarmID:          action.FarmID,
			FieldID:         action.FieldID,
			CropID:          action.CropID,
			ActionID:        action.ID,
			Type:            d.Type,
			Severity:        d.Severity,
			RiskScore:       d.RiskScore,
			Message:         d.Message,
			SuggestedAction: d.SuggestedAction,
			CreatedAt:       started,
		}
		if err := s.store.InsertAlert(ctx, alert); err != nil {
			tx.rollback(ctx)
			return models.LogActionResult{}, apperr.Persistence("Failed to log action", err)
		}
		tx.onRollback("alert", func(ctx context.Context) error { return s.store.DeleteAlert(ctx, alert.ID) })
		alerts = append(alerts, alert)
	}

	s.metrics.ActionsLogged.WithLabelValues(string(actionType)).Inc()
	for _, a := range alerts {
		s.metrics.AlertsRaised.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
	}
	s.logger.Info("action logged",
		zap.String("user_id", userID),
		zap.String("action_id", action.ID),
		zap.String("type", string(actionType)),
		zap.Int("weed_risk", risk.Score),
		zap.Int("alerts", len(alerts)),
	)

	s.notify(ctx, alerts)

	return models.LogActionResult{
		ActionID: action.ID,
		Scores: models.ActionScores{
			SoilHealth: condition.SoilHealth,
			Irrigation: condition.Irrigation,
			WeedRisk:   models.WeedRiskSummary{Score: risk.Score, Level: risk.Level},
		},
		Alerts: alerts,
	}, nil
}

type scoringInputs struct {
	reading  *models.SensorReading
	weedRisk scoring.WeedRiskInput
}

// gatherInputs runs the reads that feed scoring concurrently, before anything
// is written. The irrigation count is taken over the trailing window and
// includes the action being logged.
func (s *Service) gatherInputs(ctx context.Context, action models.Action, now time.Time) (scoringInputs, error) {
	var (
		field      models.Field
		cropField  models.Field
		hasField   = action.FieldID != ""
		reading    *models.SensorReading
		irrigation int64
	)

	g, gctx := errgroup.WithContext(ctx)
	if action.FarmID != "" {
		g.Go(func() error {
			_, err := access.OwnedFarm(gctx, s.store, action.UserID, action.FarmID)
			return err
		})
	}
	if action.CropID != "" {
		g.Go(func() error {
			_, f, err := access.OwnedCrop(gctx, s.store, action.UserID, action.CropID, action.FieldID)
			if err != nil {
				return err
			}
			cropField = f
			return nil
		})
	}
	if hasField {
		g.Go(func() error {
			f, err := access.OwnedField(gctx, s.store, action.UserID, action.FieldID)
			if err != nil {
				return err
			}
			field = f
			return nil
		})
		g.Go(func() error {
			readings, err := s.store.LatestReadings(gctx, repository.ReadingFilter{FieldIDs: []string{action.FieldID}}, 1)
			if err != nil {
				return apperr.Persistence("Failed to log action", fmt.Errorf("latest reading: %w", err))
			}
			if len(readings) > 0 {
				reading = &readings[0]
			}
			return nil
		})
	}
	since := now.Add(-irrigationWindow)
	g.Go(func() error {
		n, err := s.store.CountActions(gctx, repository.ActionFilter{
			UserID: action.UserID,
			Type:   models.ActionIrrigation,
			From:   since,
		})
		if err != nil {
			return apperr.Persistence("Failed to log action", fmt.Errorf("irrigation count: %w", err))
		}
		irrigation = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return scoringInputs{}, err
	}
	if action.FarmID != "" {
		if hasField && field.FarmID != action.FarmID {
			return scoringInputs{}, apperr.Forbidden(fmt.Errorf("field %s is not on farm %s", action.FieldID, action.FarmID))
		}
		if action.CropID != "" && cropField.FarmID != action.FarmID {
			return scoringInputs{}, apperr.Forbidden(fmt.Errorf("crop %s is not on farm %s", action.CropID, action.FarmID))
		}
	}

	if action.Type == models.ActionIrrigation && !action.Timestamp.Before(since) {
		irrigation++
	}

	in := scoring.WeedRiskInput{
		Humidity:            defaultHumidity,
		Temperature:         defaultTemperature,
		SoilType:            defaultSoilType,
		CropSpacing:         scoring.SpacingMedium,
		IrrigationFrequency: int(irrigation),
	}
	if reading != nil {
		in.Humidity = reading.Humidity
		in.Temperature = reading.Temperature
	}
	if field.SoilType != "" {
		in.SoilType = field.SoilType
	}
	return scoringInputs{reading: reading, weedRisk: in}, nil
}

// notify forwards high-severity alerts in the background on a context
// detached from the request, so a slow provider never delays the response.
func (s *Service) notify(ctx context.Context, alerts []models.Alert) {
	if s.notifier == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	for _, a := range alerts {
		if a.Severity != models.SeverityHigh {
			continue
		}
		s.inflight.Add(1)
		go func(alert models.Alert) {
			defer s.inflight.Done()
			s.notifier.NotifyAlert(detached, alert)
		}(a)
	}
}

// Drain blocks until every background notification has finished.
func (s *Service) Drain() {
	s.inflight.Wait()
}

// storedTime drops what the store cannot keep, so a response carries the
// same instants a later read returns.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// WeedRiskStatus reports the user's latest weed-risk score and its trend.
func (s *Service) WeedRiskStatus(ctx context.Context, userID string) (models.WeedRiskStatus, error) {
	if userID == "" {
		return models.WeedRiskStatus{}, apperr.Unauthorized()
	}

	scores, err := s.store.FindScores(ctx, repository.ScoreFilter{UserID: userID}, 2)
	if err != nil {
		return models.WeedRiskStatus{}, apperr.Persistence("Failed to get weed risk", err)
	}

	status := models.WeedRiskStatus{
		CurrentScore: defaultWeedRisk,
		Trend:        models.TrendStable,
		LastUpdated:  s.clock.Now(),
	}
	if len(scores) > 0 {
		status.CurrentScore = scores[0].WeedRiskScore
		status.LastUpdated = scores[0].CreatedAt
	}
	if len(scores) == 2 {
		status.Trend = trend(scores[0].WeedRiskScore, scores[1].WeedRiskScore)
	}
	status.Level = scoring.LevelForScore(status.CurrentScore)
	return status, nil
}

func trend(current, previous int) models.Trend {
	switch {
	case current > previous+trendThreshold:
		return models.TrendIncreasing
	case current < previous-trendThreshold:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}
