// Package crops advises on crop switches and compares candidate crops for a
// farmer's fields.
package crops

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/agriscore/internal/apperr"
	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/repository"
	"github.com/mamadbah2/agriscore/internal/service/access"
)

const (
	historyWindow      = 5
	candidateLimit     = 3
	defaultRiskLevel   = 50
	highRiskThreshold  = 70
	defaultSoilType    = "unknown"
	defaultSuitability = 50
)

// Store is the persistence the advisor needs.
type Store interface {
	GetField(ctx context.Context, id string) (models.Field, error)
	GetFarm(ctx context.Context, id string) (models.Farm, error)
	FieldsForUser(ctx context.Context, userID string) ([]models.Field, error)
	LatestCrop(ctx context.Context, fieldID string) (models.Crop, error)
	FindScores(ctx context.Context, f repository.ScoreFilter, limit int) ([]models.Score, error)
	FindAlerts(ctx context.Context, f repository.AlertFilter, limit int) ([]models.Alert, error)
	GetCropReference(ctx context.Context, name string) (models.CropReference, error)
	FindCropReferences(ctx context.Context, f repository.CropReferenceFilter, limit int) ([]models.CropReference, error)
	LatestMarketPrices(ctx context.Context, names []string) ([]models.MarketPrice, error)
}

// Service implements the crop-switch advisor and crop comparison.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService wires a crops service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger.Named("svc.crops")}
}

// SwitchSuggestion decides whether the crop currently on fieldID should be
// replaced and by what.
func (s *Service) SwitchSuggestion(ctx context.Context, userID, fieldID string) (models.SwitchSuggestion, error) {
	if userID == "" {
		return models.SwitchSuggestion{}, apperr.Unauthorized()
	}
	if strings.TrimSpace(fieldID) == "" {
		return models.SwitchSuggestion{}, apperr.Validation("Field ID is required")
	}

	field, err := access.OwnedField(ctx, s.store, userID, fieldID)
	if err != nil {
		return models.SwitchSuggestion{}, err
	}

	crop, err := s.store.LatestCrop(ctx, field.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.SwitchSuggestion{ShouldSwitch: false, Message: "No crop found for this field."}, nil
	}
	if err != nil {
		return models.SwitchSuggestion{}, apperr.Persistence("Failed to get crop switch suggestion", err)
	}

	var (
		scores  []models.Score
		alerts  []models.Alert
		riskRef = defaultRiskLevel
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := s.store.FindScores(gctx, repository.ScoreFilter{FieldID: field.ID, CropID: crop.ID}, historyWindow)
		if err != nil {
			return fmt.Errorf("load scores: %w", err)
		}
		scores = found
		return nil
	})
	g.Go(func() error {
		found, err := s.store.FindAlerts(gctx, repository.AlertFilter{FieldID: field.ID, CropID: crop.ID, OpenOnly: true}, historyWindow)
		if err != nil {
			return fmt.Errorf("load alerts: %w", err)
		}
		alerts = found
		return nil
	})
	g.Go(func() error {
		ref, err := s.store.GetCropReference(gctx, crop.Name)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil
		case err != nil:
			return fmt.Errorf("load crop reference: %w", err)
		}
		riskRef = ref.RiskOr(defaultRiskLevel)
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.SwitchSuggestion{}, apperr.Persistence("Failed to get crop switch suggestion", err)
	}

	signals := Signals{
		AverageWeedRisk:  averageWeedRisk(scores),
		HasHighRiskAlert: hasHighRiskAlert(alerts),
		CurrentRiskLevel: riskRef,
	}
	if !signals.ShouldSwitch() {
		return models.SwitchSuggestion{ShouldSwitch: false, Message: "Current crop is doing well."}, nil
	}

	candidates, err := s.store.FindCropReferences(ctx, repository.CropReferenceFilter{
		ExcludeName: crop.Name,
		RiskBelow:   &signals.CurrentRiskLevel,
	}, candidateLimit)
	if err != nil {
		return models.SwitchSuggestion{}, apperr.Persistence("Failed to get crop switch suggestion", err)
	}

	best, ok := SelectAlternative(candidates, soilTypeOf(field))
	if !ok {
		return models.SwitchSuggestion{ShouldSwitch: false, Message: "No better alternatives found at this time."}, nil
	}

	s.logger.Info("crop switch suggested",
		zap.String("user_id", userID),
		zap.String("field_id", field.ID),
		zap.String("from", crop.Name),
		zap.String("to", best.Name),
	)

	return models.SwitchSuggestion{
		ShouldSwitch:  true,
		CurrentCrop:   crop.Name,
		SuggestedCrop: best.Name,
		Reason:        fmt.Sprintf("Switch from %s to %s - %s", crop.Name, best.Name, signals.Why()),
	}, nil
}

// Signals are the facts the switch decision is made from.
type Signals struct {
	AverageWeedRisk  float64
	HasHighRiskAlert bool
	CurrentRiskLevel int
}

// ShouldSwitch reports whether any signal crosses the high-risk threshold.
func (sg Signals) ShouldSwitch() bool {
	return sg.HasHighRiskAlert || sg.AverageWeedRisk > highRiskThreshold || sg.CurrentRiskLevel > highRiskThreshold
}

// Why picks the reason wording by signal priority.
func (sg Signals) Why() string {
	switch {
	case sg.HasHighRiskAlert:
		return "high risk alerts detected."
	case sg.AverageWeedRisk > highRiskThreshold:
		return "elevated weed risk."
	default:
		return "lower risk alternative available."
	}
}

// SelectAlternative picks the first candidate unless a later one has a
// strictly higher preference for soilType. Candidates must already be in
// ascending risk order.
func SelectAlternative(candidates []models.CropReference, soilType string) (models.CropReference, bool) {
	if len(candidates) == 0 {
		return models.CropReference{}, false
	}
	best := candidates[0]
	bestScore := best.Suitability(soilType)
	for _, c := range candidates[1:] {
		if score := c.Suitability(soilType); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, true
}

func averageWeedRisk(scores []models.Score) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, sc := range scores {
		sum += float64(sc.WeedRiskScore)
	}
	return sum / float64(len(scores))
}

func hasHighRiskAlert(alerts []models.Alert) bool {
	for _, a := range alerts {
		if a.Severity == models.SeverityHigh || (a.RiskScore != nil && *a.RiskScore > highRiskThreshold) {
			return true
		}
	}
	return false
}

func soilTypeOf(field models.Field) string {
	if field.SoilType == "" {
		return defaultSoilType
	}
	return field.SoilType
}
