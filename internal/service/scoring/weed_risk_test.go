package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/agriscore/internal/domain/models"
)

func TestEstimateWeedRisk_AllFactorsCapped(t *testing.T) {
	risk := EstimateWeedRisk(WeedRiskInput{
		Humidity:            85,
		Temperature:         25,
		SoilType:            "loamy",
		CropSpacing:         SpacingNarrow,
		IrrigationFrequency: 4,
	})

	assert.Equal(t, 100, risk.Score)
	assert.Equal(t, models.RiskHigh, risk.Level)
	assert.Equal(t, "Weed Risk: 100/100 (high) - Early weeding required.", risk.Message)
}

func TestEstimateWeedRisk_NoFactors(t *testing.T) {
	risk := EstimateWeedRisk(WeedRiskInput{
		Humidity:            50,
		Temperature:         10,
		SoilType:            "sandy",
		CropSpacing:         SpacingWide,
		IrrigationFrequency: 0,
	})

	assert.Equal(t, 0, risk.Score)
	assert.Equal(t, models.RiskLow, risk.Level)
	assert.Equal(t, "Weed Risk: 0/100 (low) - Low risk currently.", risk.Message)
}

func TestEstimateWeedRisk_Rules(t *testing.T) {
	tests := []struct {
		name string
		in   WeedRiskInput
		want int
	}{
		{"humidity exactly 80 is moderate", WeedRiskInput{Humidity: 80}, 15},
		{"humidity exactly 60 adds nothing", WeedRiskInput{Humidity: 60}, 0},
		{"temperature lower bound inclusive", WeedRiskInput{Temperature: 20}, 20},
		{"temperature upper bound inclusive", WeedRiskInput{Temperature: 30}, 20},
		{"temperature above range", WeedRiskInput{Temperature: 30.1}, 0},
		{"irrigation three times", WeedRiskInput{IrrigationFrequency: 3}, 10},
		{"irrigation once", WeedRiskInput{IrrigationFrequency: 1}, 0},
		{"medium spacing", WeedRiskInput{CropSpacing: SpacingMedium}, 0},
		{"soil type is case sensitive", WeedRiskInput{SoilType: "Loamy"}, 0},
		{"medium band", WeedRiskInput{Humidity: 70, Temperature: 25, IrrigationFrequency: 2}, 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateWeedRisk(tt.in).Score)
		})
	}
}

func TestEstimateWeedRisk_LevelAgreesWithScore(t *testing.T) {
	humidities := []float64{0, 61, 81}
	temperatures := []float64{0, 25}
	frequencies := []int{0, 2, 4}
	spacings := []CropSpacing{SpacingNarrow, SpacingMedium, SpacingWide}
	soils := []string{"loamy", "clay"}

	for _, h := range humidities {
		for _, temp := range temperatures {
			for _, f := range frequencies {
				for _, sp := range spacings {
					for _, soil := range soils {
						in := WeedRiskInput{Humidity: h, Temperature: temp, SoilType: soil, CropSpacing: sp, IrrigationFrequency: f}
						risk := EstimateWeedRisk(in)

						assert.GreaterOrEqual(t, risk.Score, 0)
						assert.LessOrEqual(t, risk.Score, 100)
						assert.Equal(t, LevelForScore(risk.Score), risk.Level)
						assert.Equal(t, risk, EstimateWeedRisk(in), "estimate must be reproducible")
					}
				}
			}
		}
	}
}

func TestLevelForScore_Boundaries(t *testing.T) {
	assert.Equal(t, models.RiskLow, LevelForScore(40))
	assert.Equal(t, models.RiskMedium, LevelForScore(41))
	assert.Equal(t, models.RiskMedium, LevelForScore(70))
	assert.Equal(t, models.RiskHigh, LevelForScore(71))
}

func TestRound_HalfUp(t *testing.T) {
	assert.Equal(t, 68, Round(67.5))
	assert.Equal(t, 67, Round(67.49))
	assert.Equal(t, 0, Round(0))
}
