package crops

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/agriscore/internal/apperr"
	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/repository"
	"github.com/mamadbah2/agriscore/internal/service/scoring"
)

const unknown = "Unknown"

// CompareCrops builds a side-by-side view of the named crops for the user's
// soil. Rows come back in request order; unknown names still get a row.
func (s *Service) CompareCrops(ctx context.Context, userID string, names []string) ([]models.CropComparison, error) {
	if userID == "" {
		return nil, apperr.Unauthorized()
	}
	names = cleanNames(names)
	if len(names) == 0 {
		return nil, apperr.Validation("Crops array is required")
	}

	soilType := defaultSoilType
	fields, err := s.store.FieldsForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence("Comparison failed", err)
	}
	if len(fields) > 0 {
		soilType = soilTypeOf(fields[0])
	}

	refs, err := s.store.FindCropReferences(ctx, repository.CropReferenceFilter{Names: names}, 0)
	if err != nil {
		return nil, apperr.Persistence("Comparison failed", err)
	}
	prices, err := s.store.LatestMarketPrices(ctx, names)
	if err != nil {
		return nil, apperr.Persistence("Comparison failed", err)
	}

	rows := make([]models.CropComparison, 0, len(names))
	for _, name := range names {
		rows = append(rows, compareOne(name, findReference(refs, name), latestPrice(prices, name), soilType))
	}

	s.logger.Debug("crops compared", zap.String("user_id", userID), zap.Int("crops", len(rows)), zap.String("soil_type", soilType))
	return rows, nil
}

func compareOne(name string, ref *models.CropReference, price *float64, soilType string) models.CropComparison {
	row := models.CropComparison{
		Name:            name,
		ProfitRange:     unknown,
		RiskLevel:       unknown,
		WaterNeed:       unknown,
		SoilSuitability: defaultSuitability,
		MarketPrice:     price,
	}
	if ref == nil {
		return row
	}

	if ref.BaseProfitPerHectare != nil && *ref.BaseProfitPerHectare != 0 {
		base := *ref.BaseProfitPerHectare
		row.ProfitRange = fmt.Sprintf("₹%dk-%dk", scoring.Round(base*0.8/1000), scoring.Round(base*1.2/1000))
	}
	if ref.BaseRiskLevel != nil {
		row.RiskLevel = string(compareRiskLevel(*ref.BaseRiskLevel))
	}
	if ref.WaterNeedLevel != "" {
		row.WaterNeed = ref.WaterNeedLevel
	}
	if soilType != defaultSoilType {
		if pref := ref.Suitability(soilType); pref != 0 {
			row.SoilSuitability = pref
		}
	}
	return row
}

// compareRiskLevel uses inclusive bounds, unlike the weed-risk levels.
func compareRiskLevel(risk int) models.RiskLevel {
	switch {
	case risk >= 70:
		return models.RiskHigh
	case risk >= 40:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func findReference(refs []models.CropReference, name string) *models.CropReference {
	for i := range refs {
		if strings.EqualFold(refs[i].Name, name) {
			return &refs[i]
		}
	}
	return nil
}

// latestPrice expects prices newest first.
func latestPrice(prices []models.MarketPrice, name string) *float64 {
	for _, p := range prices {
		if !strings.EqualFold(p.CropName, name) {
			continue
		}
		if p.PricePerQuintal == 0 {
			return nil
		}
		v := p.PricePerQuintal
		return &v
	}
	return nil
}

func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
