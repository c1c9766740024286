package scoring

import (
	"math"

	"github.com/mamadbah2/agriscore/internal/domain/models"
)

const defaultConditionScore = 75

// FieldCondition holds the soil-health and irrigation-efficiency scores.
type FieldCondition struct {
	SoilHealth int
	Irrigation int
}

// ScoreFieldCondition derives condition scores from the latest reading of the
// field and the action just logged. A nil reading yields the defaults.
func ScoreFieldCondition(reading *models.SensorReading, actionType models.ActionType) FieldCondition {
	if reading == nil {
		return FieldCondition{SoilHealth: defaultConditionScore, Irrigation: defaultConditionScore}
	}

	moisture := reading.SoilMoisture
	moistureScore := math.Max(0, math.Min(100, moisture))
	soilHealth := clamp(Round((moistureScore + phScore(reading.SoilPh)) / 2))

	return FieldCondition{
		SoilHealth: soilHealth,
		Irrigation: irrigationScore(moisture, actionType),
	}
}

func phScore(ph float64) float64 {
	if ph >= 6 && ph <= 7.5 {
		return 100
	}
	return math.Max(50, 100-math.Abs(7-ph)*20)
}

func irrigationScore(moisture float64, actionType models.ActionType) int {
	switch actionType {
	case models.ActionIrrigation:
		if moisture < 40 {
			return 90
		}
		return 70
	case models.ActionFertilization, models.ActionWeeding, models.ActionPesticide, models.ActionScouting:
		if moisture >= 40 && moisture <= 80 {
			return 85
		}
		return 65
	default:
		// Unreachable for parsed action types.
		return defaultConditionScore
	}
}
