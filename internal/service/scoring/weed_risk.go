// Package scoring holds the pure agronomic rules: weed risk, field condition
// and alert thresholds. Nothing here touches storage or the clock.
package scoring

import (
	"fmt"
	"math"

	"github.com/mamadbah2/agriscore/internal/domain/models"
)

// CropSpacing is the row spacing of a planting.
type CropSpacing string

const (
	SpacingNarrow CropSpacing = "narrow"
	SpacingMedium CropSpacing = "medium"
	SpacingWide   CropSpacing = "wide"
)

// WeedRiskInput gathers the environmental and behavioural factors of the estimate.
type WeedRiskInput struct {
	Humidity            float64
	Temperature         float64
	SoilType            string
	CropSpacing         CropSpacing
	IrrigationFrequency int // irrigation actions in the trailing 7 days
}

// WeedRisk is the estimator output.
type WeedRisk struct {
	Score   int
	Level   models.RiskLevel
	Message string
}

// EstimateWeedRisk sums the point rules and caps the total at 100.
func EstimateWeedRisk(in WeedRiskInput) WeedRisk {
	score := 0

	switch {
	case in.Humidity > 80:
		score += 30
	case in.Humidity > 60:
		score += 15
	}

	if in.Temperature >= 20 && in.Temperature <= 30 {
		score += 20
	}

	switch {
	case in.IrrigationFrequency > 3:
		score += 25
	case in.IrrigationFrequency > 1:
		score += 10
	}

	if in.CropSpacing == SpacingNarrow {
		score += 10
	}

	if in.SoilType == "loamy" {
		score += 15
	}

	score = clamp(score)
	level := LevelForScore(score)

	return WeedRisk{Score: score, Level: level, Message: weedRiskMessage(score, level)}
}

// LevelForScore maps a risk score onto its level.
func LevelForScore(score int) models.RiskLevel {
	switch {
	case score > 70:
		return models.RiskHigh
	case score > 40:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func weedRiskMessage(score int, level models.RiskLevel) string {
	advice := "Low risk currently."
	switch level {
	case models.RiskHigh:
		advice = "Early weeding required."
	case models.RiskMedium:
		advice = "Monitor field closely."
	}
	return fmt.Sprintf("Weed Risk: %d/100 (%s) - %s", score, level, advice)
}

func clamp(score int) int {
	return max(0, min(100, score))
}

// Round rounds half away from zero for the non-negative values scores take,
// i.e. 67.5 becomes 68.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}
