package mongodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/repository"
)

// InsertAction stores an action.
func (s *Store) InsertAction(ctx context.Context, a models.Action) error {
	return s.insert(ctx, collActions, a)
}

// DeleteAction removes an action by ID.
func (s *Store) DeleteAction(ctx context.Context, id string) error {
	return s.deleteByID(ctx, collActions, id)
}

// CountActions counts actions matching f.
func (s *Store) CountActions(ctx context.Context, f repository.ActionFilter) (int64, error) {
	n, err := s.db.Collection(collActions).CountDocuments(ctx, actionQuery(f))
	if err != nil {
		return 0, fmt.Errorf("failed to count actions: %w", err)
	}
	return n, nil
}

// FindActions returns actions matching f, newest first.
func (s *Store) FindActions(ctx context.Context, f repository.ActionFilter) ([]models.Action, error) {
	return findMany[models.Action](ctx, s.db.Collection(collActions), actionQuery(f), newestFirst("action_timestamp", 0))
}

// ActiveUsers returns the distinct users with actions in [from, to), sorted.
func (s *Store) ActiveUsers(ctx context.Context, from, to time.Time) ([]string, error) {
	values, err := s.db.Collection(collActions).Distinct(ctx, "user_id", actionQuery(repository.ActionFilter{From: from, To: to}))
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	users := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			users = append(users, id)
		}
	}
	sort.Strings(users)
	return users, nil
}

func actionQuery(f repository.ActionFilter) bson.M {
	q := bson.M{}
	if f.UserID != "" {
		q["user_id"] = f.UserID
	}
	if f.Type != "" {
		q["action_type"] = f.Type
	}
	window := bson.M{}
	if !f.From.IsZero() {
		window["$gte"] = f.From
	}
	if !f.To.IsZero() {
		window["$lt"] = f.To
	}
	if len(window) > 0 {
		q["action_timestamp"] = window
	}
	return q
}

// InsertScore stores a score.
func (s *Store) InsertScore(ctx context.Context, sc models.Score) error {
	return s.insert(ctx, collScores, sc)
}

// DeleteScore removes a score by ID.
func (s *Store) DeleteScore(ctx context.Context, id string) error {
	return s.deleteByID(ctx, collScores, id)
}

// FindScores returns scores matching f, newest first.
func (s *Store) FindScores(ctx context.Context, f repository.ScoreFilter, limit int) ([]models.Score, error) {
	q := bson.M{}
	if f.UserID != "" {
		q["user_id"] = f.UserID
	}
	if f.FieldID != "" {
		q["field_id"] = f.FieldID
	}
	if f.CropID != "" {
		q["crop_id"] = f.CropID
	}
	dates := bson.M{}
	if f.FromDate != "" {
		dates["$gte"] = f.FromDate
	}
	if f.ToDate != "" {
		dates["$lt"] = f.ToDate
	}
	if len(dates) > 0 {
		q["date"] = dates
	}
	return findMany[models.Score](ctx, s.db.Collection(collScores), q, newestFirst("created_at", limit))
}

// InsertAlert stores an alert.
func (s *Store) InsertAlert(ctx context.Context, a models.Alert) error {
	return s.insert(ctx, collAlerts, a)
}

// DeleteAlert removes an alert by ID.
func (s *Store) DeleteAlert(ctx context.Context, id string) error {
	return s.deleteByID(ctx, collAlerts, id)
}

// FindAlerts returns alerts matching f, newest first.
func (s *Store) FindAlerts(ctx context.Context, f repository.AlertFilter, limit int) ([]models.Alert, error) {
	q := bson.M{}
	if f.UserID != "" {
		q["user_id"] = f.UserID
	}
	if f.FieldID != "" {
		q["field_id"] = f.FieldID
	}
	if f.CropID != "" {
		q["crop_id"] = f.CropID
	}
	if f.OpenOnly {
		q["acknowledged"] = false
	}
	return findMany[models.Alert](ctx, s.db.Collection(collAlerts), q, newestFirst("created_at", limit))
}

// GetMonthlyReport returns the cached report for (userID, month).
func (s *Store) GetMonthlyReport(ctx context.Context, userID, month string) (models.MonthlyReport, error) {
	return findOne[models.MonthlyReport](ctx, s.db.Collection(collMonthlyReports), bson.M{"user_id": userID, "month": month})
}

// InsertMonthlyReport stores a report. The unique (user_id, month) index
// turns a concurrent second insert into repository.ErrDuplicate.
func (s *Store) InsertMonthlyReport(ctx context.Context, r models.MonthlyReport) error {
	return s.insert(ctx, collMonthlyReports, r)
}

// DeleteMonthlyReport removes the report for (userID, month), if any.
func (s *Store) DeleteMonthlyReport(ctx context.Context, userID, month string) error {
	if _, err := s.db.Collection(collMonthlyReports).DeleteOne(ctx, bson.M{"user_id": userID, "month": month}); err != nil {
		return fmt.Errorf("failed to delete monthly report: %w", err)
	}
	return nil
}
