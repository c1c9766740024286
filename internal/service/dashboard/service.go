// Package dashboard composes the home-screen summary from readings, actions,
// scores and alerts.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/agriscore/internal/apperr"
	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/repository"
	"github.com/mamadbah2/agriscore/internal/service/reporting"
)

// SensorScope selects which readings feed the weather and soil tiles.
type SensorScope string

const (
	// ScopeGlobal reads the most recent readings across all fields.
	ScopeGlobal SensorScope = "global"
	// ScopeUser restricts readings to fields on the caller's farms.
	ScopeUser SensorScope = "user"
)

// ParseSensorScope validates a configured scope.
func ParseSensorScope(v string) (SensorScope, error) {
	switch SensorScope(v) {
	case ScopeGlobal, ScopeUser:
		return SensorScope(v), nil
	case "":
		return ScopeGlobal, nil
	}
	return "", fmt.Errorf("unknown dashboard sensor scope %q", v)
}

const (
	moodWindow  = 5
	alertWindow = 3
	dateLayout  = "2006-01-02"
	forecast    = "Clear skies expected for the next 24 hours."
)

var defaultScores = models.DashboardScores{SoilHealth: 75, Irrigation: 75, WeedRisk: 25}

// Store is the persistence the dashboard reads.
type Store interface {
	LatestReadings(ctx context.Context, f repository.ReadingFilter, limit int) ([]models.SensorReading, error)
	FieldsForUser(ctx context.Context, userID string) ([]models.Field, error)
	CountActions(ctx context.Context, f repository.ActionFilter) (int64, error)
	FindScores(ctx context.Context, f repository.ScoreFilter, limit int) ([]models.Score, error)
	FindAlerts(ctx context.Context, f repository.AlertFilter, limit int) ([]models.Alert, error)
}

// Service builds dashboard summaries.
type Service struct {
	store  Store
	scope  SensorScope
	clock  clockwork.Clock
	loc    *time.Location
	logger *zap.Logger
}

// NewService wires a dashboard service.
func NewService(store Store, scope SensorScope, clock clockwork.Clock, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	if scope == "" {
		scope = ScopeGlobal
	}
	return &Service{store: store, scope: scope, clock: clock, loc: loc, logger: logger.Named("svc.dashboard")}
}

// Summary returns the dashboard for userID. Identical store state and clock
// yield identical summaries.
func (s *Service) Summary(ctx context.Context, userID string) (models.DashboardSummary, error) {
	if userID == "" {
		return models.DashboardSummary{}, apperr.Unauthorized()
	}

	now := s.clock.Now().In(s.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	monthStart, _, err := reporting.ParseMonth("", now, s.loc)
	if err != nil {
		return models.DashboardSummary{}, err
	}

	filter, err := s.readingFilter(ctx, userID)
	if err != nil {
		return models.DashboardSummary{}, apperr.Persistence("Internal Server Error", err)
	}

	var (
		readings    []models.SensorReading
		actionCount int64
		scores      []models.Score
		alerts      []models.Alert
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.store.LatestReadings(gctx, filter, moodWindow)
		if err != nil {
			return fmt.Errorf("latest readings: %w", err)
		}
		readings = found
		return nil
	})
	g.Go(func() error {
		n, err := s.store.CountActions(gctx, repository.ActionFilter{UserID: userID, From: midnight})
		if err != nil {
			return fmt.Errorf("count actions: %w", err)
		}
		actionCount = n
		return nil
	})
	g.Go(func() error {
		found, err := s.store.FindScores(gctx, repository.ScoreFilter{
			UserID:   userID,
			FromDate: monthStart.Format(dateLayout),
			ToDate:   monthStart.AddDate(0, 1, 0).Format(dateLayout),
		}, 0)
		if err != nil {
			return fmt.Errorf("month scores: %w", err)
		}
		scores = found
		return nil
	})
	g.Go(func() error {
		found, err := s.store.FindAlerts(gctx, repository.AlertFilter{UserID: userID, OpenOnly: true}, alertWindow)
		if err != nil {
			return fmt.Errorf("open alerts: %w", err)
		}
		alerts = found
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.DashboardSummary{}, apperr.Persistence("Internal Server Error", err)
	}

	if alerts == nil {
		alerts = []models.Alert{}
	}

	return models.DashboardSummary{
		Weather:     WeatherFrom(readings),
		SoilMood:    SoilMoodFrom(readings),
		ActionCount: actionCount,
		Scores:      scoreTiles(scores),
		Alerts:      alerts,
	}, nil
}

func (s *Service) readingFilter(ctx context.Context, userID string) (repository.ReadingFilter, error) {
	if s.scope != ScopeUser {
		return repository.ReadingFilter{}, nil
	}
	fields, err := s.store.FieldsForUser(ctx, userID)
	if err != nil {
		return repository.ReadingFilter{}, fmt.Errorf("user fields: %w", err)
	}
	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		ids = append(ids, f.ID)
	}
	return repository.ReadingFilter{FieldIDs: ids}, nil
}

// WeatherFrom derives the weather tile from readings sorted newest first.
func WeatherFrom(readings []models.SensorReading) models.Weather {
	w := models.Weather{Temp: 25, Humidity: 60, Condition: "Sunny", Forecast: forecast}
	if len(readings) == 0 {
		return w
	}
	latest := readings[0]
	w.Temp = latest.Temperature
	w.Humidity = latest.Humidity
	if latest.Humidity > 70 {
		w.Condition = "Cloudy"
	}
	return w
}

// SoilMoodFrom classifies the average moisture and pH of readings.
func SoilMoodFrom(readings []models.SensorReading) models.SoilMood {
	if len(readings) == 0 {
		return models.SoilMood{Label: "Neutral", Icon: "leaf", Color: "gray"}
	}

	var moisture, ph float64
	for _, r := range readings {
		moisture += r.SoilMoisture
		ph += r.SoilPh
	}
	n := float64(len(readings))
	moisture /= n
	ph /= n

	switch {
	case moisture > 60 && ph >= 6 && ph <= 7.5:
		return models.SoilMood{Label: "Happy", Icon: "leaf", Color: "green"}
	case moisture < 30 || ph < 5.5 || ph > 8:
		return models.SoilMood{Label: "Stressed", Icon: "leaf", Color: "red"}
	default:
		return models.SoilMood{Label: "Moderate", Icon: "leaf", Color: "yellow"}
	}
}

func scoreTiles(scores []models.Score) models.DashboardScores {
	if len(scores) == 0 {
		return defaultScores
	}
	soil, irrigation, weed := reporting.AverageScores(scores)
	return models.DashboardScores{SoilHealth: soil, Irrigation: irrigation, WeedRisk: weed}
}
