// Package repository declares the query vocabulary shared by the store
// implementations. Services declare the narrow interfaces they consume.
package repository

import (
	"errors"
	"time"

	"github.com/mamadbah2/agriscore/internal/domain/models"
)

var (
	// ErrNotFound is returned by single-record lookups that match nothing.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// ActionFilter selects actions. Zero values do not constrain.
type ActionFilter struct {
	UserID string
	Type   models.ActionType
	From   time.Time // inclusive
	To     time.Time // exclusive
}

// ScoreFilter selects scores. Dates are YYYY-MM-DD strings.
type ScoreFilter struct {
	UserID   string
	FieldID  string
	CropID   string
	FromDate string // inclusive
	ToDate   string // exclusive
}

// AlertFilter selects alerts.
type AlertFilter struct {
	UserID   string
	FieldID  string
	CropID   string
	OpenOnly bool
}

// ReadingFilter selects sensor readings. A nil FieldIDs slice means every
// field; an empty non-nil slice matches nothing.
type ReadingFilter struct {
	FieldIDs []string
}

// CropReferenceFilter selects crop references.
type CropReferenceFilter struct {
	Names       []string // case-insensitive; empty means all
	ExcludeName string
	RiskBelow   *int // base_risk_level strictly below
}
