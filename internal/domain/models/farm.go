package models

import "time"

// Farm is the ownership root: every field and crop belongs to a user through a farm.
type Farm struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"userId"`
	Name      string    `bson:"name" json:"name"`
	Location  string    `bson:"location_text,omitempty" json:"locationText,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// Field is a parcel of a farm.
type Field struct {
	ID             string    `bson:"_id" json:"id"`
	FarmID         string    `bson:"farm_id" json:"farmId"`
	Name           string    `bson:"name" json:"name"`
	AreaHectares   *float64  `bson:"area_hectares,omitempty" json:"areaHectares,omitempty"`
	SoilType       string    `bson:"soil_type" json:"soilType"`
	IrrigationType string    `bson:"irrigation_type" json:"irrigationType"`
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
}

// Crop is a planting on a field. The most recently created crop is the current one.
type Crop struct {
	ID        string    `bson:"_id" json:"id"`
	FieldID   string    `bson:"field_id" json:"fieldId"`
	Name      string    `bson:"name" json:"name"`
	Variety   string    `bson:"variety,omitempty" json:"variety,omitempty"`
	Stage     string    `bson:"current_stage,omitempty" json:"currentStage,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// CropReference is static agronomic data for a crop species.
type CropReference struct {
	Name                 string         `bson:"name" json:"name"`
	BaseProfitPerHectare *float64       `bson:"base_profit_per_hectare,omitempty" json:"baseProfitPerHectare,omitempty"`
	BaseRiskLevel        *int           `bson:"base_risk_level,omitempty" json:"baseRiskLevel,omitempty"`
	WaterNeedLevel       string         `bson:"water_need_level,omitempty" json:"waterNeedLevel,omitempty"`
	SoilPreference       map[string]int `bson:"soil_preference,omitempty" json:"soilPreference,omitempty"`
}

// RiskOr returns the base risk level, or fallback when the reference has none.
func (c CropReference) RiskOr(fallback int) int {
	if c.BaseRiskLevel == nil {
		return fallback
	}
	return *c.BaseRiskLevel
}

// Suitability returns the preference score for soilType, 0 when unknown.
func (c CropReference) Suitability(soilType string) int {
	return c.SoilPreference[soilType]
}

// MarketPrice is a dated price quote for a crop.
type MarketPrice struct {
	CropName        string    `bson:"crop_name" json:"cropName"`
	PricePerQuintal float64   `bson:"price_per_quintal" json:"pricePerQuintal"`
	Date            time.Time `bson:"date" json:"date"`
}

// SwitchSuggestion is the crop-switch advisor's answer for a field.
type SwitchSuggestion struct {
	ShouldSwitch  bool   `json:"shouldSwitch"`
	CurrentCrop   string `json:"currentCrop,omitempty"`
	SuggestedCrop string `json:"suggestedCrop,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Message       string `json:"message,omitempty"`
}

// CropComparison is one row of a side-by-side crop comparison.
type CropComparison struct {
	Name            string   `json:"name"`
	ProfitRange     string   `json:"profitRange"`
	RiskLevel       string   `json:"riskLevel"`
	WaterNeed       string   `json:"waterNeed"`
	SoilSuitability int      `json:"soilSuitability"`
	MarketPrice     *float64 `json:"marketPrice"`
}
