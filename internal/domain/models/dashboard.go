package models

// Weather is the dashboard's current-conditions tile.
type Weather struct {
	Temp      float64 `json:"temp"`
	Condition string  `json:"condition"`
	Humidity  float64 `json:"humidity"`
	Forecast  string  `json:"forecast"`
}

// SoilMood classifies recent soil readings for display.
type SoilMood struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// DashboardScores are the month-to-date score averages.
type DashboardScores struct {
	SoilHealth int `json:"soilHealth"`
	Irrigation int `json:"irrigation"`
	WeedRisk   int `json:"weedRisk"`
}

// DashboardSummary is the composed dashboard read model.
type DashboardSummary struct {
	Weather     Weather         `json:"weather"`
	SoilMood    SoilMood        `json:"soilMood"`
	ActionCount int64           `json:"actionCount"`
	Scores      DashboardScores `json:"scores"`
	Alerts      []Alert         `json:"alerts"`
}
