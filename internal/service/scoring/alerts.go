package scoring

import (
	"fmt"
	"strconv"

	"github.com/mamadbah2/agriscore/internal/domain/models"
)

const waterStressMoisture = 30

// AlertDraft is an alert before it is bound to a user, action and ID.
type AlertDraft struct {
	Type            models.AlertType
	Severity        models.Severity
	RiskScore       *int
	Message         string
	SuggestedAction string
}

// EvaluateAlerts applies the alert thresholds. The weed and water rules are
// independent, so zero, one or two drafts come back.
func EvaluateAlerts(risk WeedRisk, reading *models.SensorReading) []AlertDraft {
	var drafts []AlertDraft

	switch {
	case risk.Score > 70:
		drafts = append(drafts, weedAlert(risk, models.SeverityHigh, "Schedule weeding activity immediately"))
	case risk.Score > 40:
		drafts = append(drafts, weedAlert(risk, models.SeverityMedium, "Monitor field closely for weed growth"))
	}

	if reading != nil && reading.SoilMoisture < waterStressMoisture {
		drafts = append(drafts, AlertDraft{
			Type:            models.AlertWaterStress,
			Severity:        models.SeverityMedium,
			Message:         fmt.Sprintf("Low soil moisture detected (%s%%) - consider irrigation", strconv.FormatFloat(reading.SoilMoisture, 'f', -1, 64)),
			SuggestedAction: "Schedule irrigation within 24 hours",
		})
	}

	return drafts
}

func weedAlert(risk WeedRisk, severity models.Severity, suggestion string) AlertDraft {
	score := risk.Score
	return AlertDraft{
		Type:            models.AlertWeedRisk,
		Severity:        severity,
		RiskScore:       &score,
		Message:         risk.Message,
		SuggestedAction: suggestion,
	}
}
