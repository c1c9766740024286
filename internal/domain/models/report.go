package models

import "time"

// RewardsTier is the monthly incentive classification.
type RewardsTier string

const (
	TierNone   RewardsTier = "none"
	TierBronze RewardsTier = "bronze"
	TierSilver RewardsTier = "silver"
	TierGold   RewardsTier = "gold"
)

// ReportSummary holds the monthly aggregates.
type ReportSummary struct {
	TotalActions       int64   `bson:"total_actions" json:"totalActions"`
	AverageSoilHealth  int     `bson:"average_soil_health" json:"averageSoilHealth"`
	AverageWeedRisk    int     `bson:"average_weed_risk" json:"averageWeedRisk"`
	AverageIrrigation  int     `bson:"average_irrigation" json:"averageIrrigation"`
	TotalIrrigatedArea float64 `bson:"total_irrigated_area" json:"totalIrrigatedArea"`
	Unit               string  `bson:"unit" json:"unit"`
}

// MonthlyReport is the cached per-user monthly roll-up. One per (user, month).
type MonthlyReport struct {
	ID          string        `bson:"_id" json:"id"`
	UserID      string        `bson:"user_id" json:"userId"`
	Month       string        `bson:"month" json:"month"` // YYYY-MM
	Summary     ReportSummary `bson:"summary_json" json:"summary"`
	RewardsTier RewardsTier   `bson:"rewards_tier" json:"rewardsTier"`
	GeneratedAt time.Time     `bson:"generated_at" json:"generatedAt"`
}
