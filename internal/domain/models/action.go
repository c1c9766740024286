package models

import (
	"fmt"
	"strings"
	"time"
)

// ActionType enumerates the farm activities a user can log.
type ActionType string

const (
	ActionIrrigation    ActionType = "irrigation"
	ActionFertilization ActionType = "fertilization"
	ActionWeeding       ActionType = "weeding"
	ActionPesticide     ActionType = "pesticide"
	ActionScouting      ActionType = "scouting"
)

// ActionTypes lists every supported action type.
var ActionTypes = []ActionType{
	ActionIrrigation,
	ActionFertilization,
	ActionWeeding,
	ActionPesticide,
	ActionScouting,
}

// ParseActionType maps free-form input onto the closed ActionType set.
func ParseActionType(value string) (ActionType, error) {
	normalized := ActionType(strings.ToLower(strings.TrimSpace(value)))
	for _, t := range ActionTypes {
		if t == normalized {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown action type %q", value)
}

// Action is a single logged farm activity. It is never mutated once stored.
type Action struct {
	ID        string     `bson:"_id" json:"id"`
	UserID    string     `bson:"user_id" json:"userId"`
	FarmID    string     `bson:"farm_id,omitempty" json:"farmId,omitempty"`
	FieldID   string     `bson:"field_id,omitempty" json:"fieldId,omitempty"`
	CropID    string     `bson:"crop_id,omitempty" json:"cropId,omitempty"`
	Type      ActionType `bson:"action_type" json:"actionType"`
	Timestamp time.Time  `bson:"action_timestamp" json:"actionTimestamp"`
	Quantity  *float64   `bson:"quantity,omitempty" json:"quantity,omitempty"`
	Unit      string     `bson:"unit,omitempty" json:"unit,omitempty"`
	Notes     string     `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
}

// LogActionRequest is the payload accepted when a user logs an action.
type LogActionRequest struct {
	ActionType      string     `json:"actionType" binding:"required"`
	FarmID          string     `json:"farmId"`
	FieldID         string     `json:"fieldId"`
	CropID          string     `json:"cropId"`
	ActionTimestamp *time.Time `json:"actionTimestamp"`
	Quantity        *float64   `json:"quantity"`
	Unit            string     `json:"unit"`
	Notes           string     `json:"notes"`
}

// WeedRiskSummary is the compact weed-risk view embedded in action results.
type WeedRiskSummary struct {
	Score int       `json:"score"`
	Level RiskLevel `json:"level"`
}

// ActionScores groups the scores derived from a logged action.
type ActionScores struct {
	SoilHealth int             `json:"soilHealth"`
	Irrigation int             `json:"irrigation"`
	WeedRisk   WeedRiskSummary `json:"weedRisk"`
}

// LogActionResult is returned once an action and its derived records are stored.
type LogActionResult struct {
	ActionID string       `json:"actionId"`
	Scores   ActionScores `json:"scores"`
	Alerts   []Alert      `json:"alerts"`
}
