package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/agriscore/internal/domain/models"
)

func reading(moisture, ph float64) *models.SensorReading {
	return &models.SensorReading{SoilMoisture: moisture, SoilPh: ph, Humidity: 50, Temperature: 22}
}

func TestScoreFieldCondition_NoReadingUsesDefaults(t *testing.T) {
	got := ScoreFieldCondition(nil, models.ActionIrrigation)

	assert.Equal(t, FieldCondition{SoilHealth: 75, Irrigation: 75}, got)
}

func TestScoreFieldCondition_SoilHealthRoundsHalfUp(t *testing.T) {
	got := ScoreFieldCondition(reading(35, 7.0), models.ActionScouting)

	assert.Equal(t, 68, got.SoilHealth)
}

func TestScoreFieldCondition_PhPenalty(t *testing.T) {
	tests := []struct {
		name string
		ph   float64
		want int
	}{
		{"lower bound of neutral band", 6.0, 100},
		{"upper bound of neutral band", 7.5, 100},
		{"slightly alkaline", 8.0, 90},    // (100 + 80) / 2
		{"acidic floors at 50", 3.0, 75}, // (100 + 50) / 2
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreFieldCondition(reading(100, tt.ph), models.ActionWeeding)
			assert.Equal(t, tt.want, got.SoilHealth)
		})
	}
}

func TestScoreFieldCondition_MoistureCappedAt100(t *testing.T) {
	got := ScoreFieldCondition(reading(140, 7), models.ActionWeeding)

	assert.Equal(t, 100, got.SoilHealth)
}

func TestScoreFieldCondition_Irrigation(t *testing.T) {
	tests := []struct {
		name     string
		moisture float64
		action   models.ActionType
		want     int
	}{
		{"irrigating dry soil", 39, models.ActionIrrigation, 90},
		{"irrigating moist soil", 40, models.ActionIrrigation, 70},
		{"other action, moisture in band low edge", 40, models.ActionFertilization, 85},
		{"other action, moisture in band high edge", 80, models.ActionPesticide, 85},
		{"other action, too dry", 39.9, models.ActionScouting, 65},
		{"other action, too wet", 80.1, models.ActionWeeding, 65},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreFieldCondition(reading(tt.moisture, 7), tt.action)
			assert.Equal(t, tt.want, got.Irrigation)
		})
	}
}
