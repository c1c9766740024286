package models

import "time"

// RiskLevel buckets a 0-100 risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Trend describes how the latest weed-risk score moved against the previous one.
type Trend string

const (
	TrendStable     Trend = "stable"
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
)

// Score is the derived per-action record. Exactly one exists per Action.
type Score struct {
	ID              string    `bson:"_id" json:"id"`
	UserID          string    `bson:"user_id" json:"userId"`
	FarmID          string    `bson:"farm_id,omitempty" json:"farmId,omitempty"`
	FieldID         string    `bson:"field_id,omitempty" json:"fieldId,omitempty"`
	CropID          string    `bson:"crop_id,omitempty" json:"cropId,omitempty"`
	ActionID        string    `bson:"action_id" json:"actionId"`
	Date            string    `bson:"date" json:"date"` // YYYY-MM-DD
	SoilHealthScore int       `bson:"soil_health_score" json:"soilHealthScore"`
	IrrigationScore int       `bson:"smart_irrigation_score" json:"irrigationScore"`
	WeedRiskScore   int       `bson:"weed_risk_score" json:"weedRiskScore"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
}

// WeedRiskStatus is the read model served by the weed-risk endpoint.
type WeedRiskStatus struct {
	CurrentScore int       `json:"currentScore"`
	Level        RiskLevel `json:"level"`
	Trend        Trend     `json:"trend"`
	LastUpdated  time.Time `json:"lastUpdated"`
}
