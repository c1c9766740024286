package models

import "time"

// AlertType identifies the condition that raised an alert.
type AlertType string

const (
	AlertWeedRisk    AlertType = "weed_risk"
	AlertWaterStress AlertType = "water_stress"
)

// Severity ranks alert urgency.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert is a threshold breach raised while logging an action.
type Alert struct {
	ID              string    `bson:"_id" json:"id"`
	UserID          string    `bson:"user_id" json:"userId"`
	FarmID          string    `bson:"farm_id,omitempty" json:"farmId,omitempty"`
	FieldID         string    `bson:"field_id,omitempty" json:"fieldId,omitempty"`
	CropID          string    `bson:"crop_id,omitempty" json:"cropId,omitempty"`
	ActionID        string    `bson:"action_id,omitempty" json:"actionId,omitempty"`
	Type            AlertType `bson:"type" json:"type"`
	Severity        Severity  `bson:"severity" json:"severity"`
	RiskScore       *int      `bson:"risk_score,omitempty" json:"riskScore,omitempty"`
	Message         string    `bson:"message" json:"message"`
	SuggestedAction string    `bson:"suggested_action" json:"suggestedAction"`
	Acknowledged    bool      `bson:"acknowledged" json:"acknowledged"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
}
