// Package memory is an in-process store for local runs and tests. It honours
// the same ordering and uniqueness rules as the MongoDB store.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/repository"
)

// Store keeps every collection in memory, guarded by one lock.
type Store struct {
	mu sync.RWMutex

	farms      map[string]models.Farm
	fields     map[string]models.Field
	crops      []models.Crop
	references []models.CropReference
	prices     []models.MarketPrice
	readings   []models.SensorReading
	actions    []models.Action
	scores     []models.Score
	alerts     []models.Alert
	reports    []models.MonthlyReport

	failures map[string]error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		farms:    make(map[string]models.Farm),
		fields:   make(map[string]models.Field),
		failures: make(map[string]error),
	}
}

// FailOn makes every later call of the named operation return err. A nil err
// clears the failure.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) failure(op string) error {
	return s.failures[op]
}

// PutFarm seeds a farm.
func (s *Store) PutFarm(f models.Farm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.farms[f.ID] = f
}

// PutField seeds a field.
func (s *Store) PutField(f models.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields[f.ID] = f
}

// PutCrop seeds a crop.
func (s *Store) PutCrop(c models.Crop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crops = append(s.crops, c)
}

// PutCropReference seeds reference data.
func (s *Store) PutCropReference(c models.CropReference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.references = append(s.references, c)
}

// PutMarketPrice seeds a market quote.
func (s *Store) PutMarketPrice(p models.MarketPrice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = append(s.prices, p)
}

// PutReading seeds a sensor reading.
func (s *Store) PutReading(r models.SensorReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, r)
}

// InsertAction stores an action.
func (s *Store) InsertAction(_ context.Context, a models.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("InsertAction"); err != nil {
		return err
	}
	s.actions = append(s.actions, a)
	return nil
}

// DeleteAction removes an action by ID.
func (s *Store) DeleteAction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("DeleteAction"); err != nil {
		return err
	}
	s.actions = slices.DeleteFunc(s.actions, func(a models.Action) bool { return a.ID == id })
	return nil
}

// CountActions counts actions matching f.
func (s *Store) CountActions(ctx context.Context, f repository.ActionFilter) (int64, error) {
	actions, err := s.FindActions(ctx, f)
	if err != nil {
		return 0, err
	}
	return int64(len(actions)), nil
}

// FindActions returns actions matching f, newest first.
func (s *Store) FindActions(_ context.Context, f repository.ActionFilter) ([]models.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("FindActions"); err != nil {
		return nil, err
	}

	var out []models.Action
	for _, a := range newestFirst(s.actions) {
		if matchAction(a, f) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// ActiveUsers returns the distinct users with actions in [from, to), sorted.
func (s *Store) ActiveUsers(ctx context.Context, from, to time.Time) ([]string, error) {
	actions, err := s.FindActions(ctx, repository.ActionFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var users []string
	for _, a := range actions {
		if _, ok := seen[a.UserID]; ok {
			continue
		}
		seen[a.UserID] = struct{}{}
		users = append(users, a.UserID)
	}
	sort.Strings(users)
	return users, nil
}

func matchAction(a models.Action, f repository.ActionFilter) bool {
	if f.UserID != "" && a.UserID != f.UserID {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if !f.From.IsZero() && a.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !a.Timestamp.Before(f.To) {
		return false
	}
	return true
}

// InsertScore stores a score.
func (s *Store) InsertScore(_ context.Context, sc models.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("InsertScore"); err != nil {
		return err
	}
	s.scores = append(s.scores, sc)
	return nil
}

// DeleteScore removes a score by ID.
func (s *Store) DeleteScore(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("DeleteScore"); err != nil {
		return err
	}
	s.scores = slices.DeleteFunc(s.scores, func(sc models.Score) bool { return sc.ID == id })
	return nil
}

// FindScores returns scores matching f, newest first, at most limit when limit > 0.
func (s *Store) FindScores(_ context.Context, f repository.ScoreFilter, limit int) ([]models.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("FindScores"); err != nil {
		return nil, err
	}

	var out []models.Score
	for _, sc := range newestFirst(s.scores) {
		if matchScore(sc, f) {
			out = append(out, sc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func matchScore(sc models.Score, f repository.ScoreFilter) bool {
	switch {
	case f.UserID != "" && sc.UserID != f.UserID:
		return false
	case f.FieldID != "" && sc.FieldID != f.FieldID:
		return false
	case f.CropID != "" && sc.CropID != f.CropID:
		return false
	case f.FromDate != "" && sc.Date < f.FromDate:
		return false
	case f.ToDate != "" && sc.Date >= f.ToDate:
		return false
	}
	return true
}

// InsertAlert stores an alert.
func (s *Store) InsertAlert(_ context.Context, a models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("InsertAlert"); err != nil {
		return err
	}
	s.alerts = append(s.alerts, a)
	return nil
}

// DeleteAlert removes an alert by ID.
func (s *Store) DeleteAlert(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("DeleteAlert"); err != nil {
		return err
	}
	s.alerts = slices.DeleteFunc(s.alerts, func(a models.Alert) bool { return a.ID == id })
	return nil
}

// FindAlerts returns alerts matching f, newest first.
func (s *Store) FindAlerts(_ context.Context, f repository.AlertFilter, limit int) ([]models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("FindAlerts"); err != nil {
		return nil, err
	}

	var out []models.Alert
	for _, a := range newestFirst(s.alerts) {
		switch {
		case f.UserID != "" && a.UserID != f.UserID:
		case f.FieldID != "" && a.FieldID != f.FieldID:
		case f.CropID != "" && a.CropID != f.CropID:
		case f.OpenOnly && a.Acknowledged:
		default:
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

// LatestReadings returns readings matching f, newest first.
func (s *Store) LatestReadings(_ context.Context, f repository.ReadingFilter, limit int) ([]models.SensorReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("LatestReadings"); err != nil {
		return nil, err
	}

	var out []models.SensorReading
	for _, r := range newestFirst(s.readings) {
		if f.FieldIDs != nil && !slices.Contains(f.FieldIDs, r.FieldID) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return truncate(out, limit), nil
}

// GetFarm returns a farm by ID.
func (s *Store) GetFarm(_ context.Context, id string) (models.Farm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("GetFarm"); err != nil {
		return models.Farm{}, err
	}
	farm, ok := s.farms[id]
	if !ok {
		return models.Farm{}, repository.ErrNotFound
	}
	return farm, nil
}

// GetField returns a field by ID.
func (s *Store) GetField(_ context.Context, id string) (models.Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("GetField"); err != nil {
		return models.Field{}, err
	}
	field, ok := s.fields[id]
	if !ok {
		return models.Field{}, repository.ErrNotFound
	}
	return field, nil
}

// FieldsForUser returns the fields on the user's farms, newest first.
func (s *Store) FieldsForUser(_ context.Context, userID string) ([]models.Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("FieldsForUser"); err != nil {
		return nil, err
	}

	var out []models.Field
	for _, field := range s.fields {
		if farm, ok := s.farms[field.FarmID]; ok && farm.UserID == userID {
			out = append(out, field)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetCrop returns a crop by ID.
func (s *Store) GetCrop(_ context.Context, id string) (models.Crop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("GetCrop"); err != nil {
		return models.Crop{}, err
	}
	for _, c := range s.crops {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Crop{}, repository.ErrNotFound
}

// LatestCrop returns the most recently created crop of a field.
func (s *Store) LatestCrop(_ context.Context, fieldID string) (models.Crop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("LatestCrop"); err != nil {
		return models.Crop{}, err
	}

	var (
		latest models.Crop
		found  bool
	)
	for _, c := range s.crops {
		if c.FieldID != fieldID {
			continue
		}
		if !found || !c.CreatedAt.Before(latest.CreatedAt) {
			latest, found = c, true
		}
	}
	if !found {
		return models.Crop{}, repository.ErrNotFound
	}
	return latest, nil
}

// GetCropReference returns reference data for a crop name.
func (s *Store) GetCropReference(_ context.Context, name string) (models.CropReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("GetCropReference"); err != nil {
		return models.CropReference{}, err
	}
	for _, ref := range s.references {
		if ref.Name == name {
			return ref, nil
		}
	}
	return models.CropReference{}, repository.ErrNotFound
}

// FindCropReferences returns references matching f ordered by ascending base
// risk, then name.
func (s *Store) FindCropReferences(_ context.Context, f repository.CropReferenceFilter, limit int) ([]models.CropReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("FindCropReferences"); err != nil {
		return nil, err
	}

	var out []models.CropReference
	for _, ref := range s.references {
		if f.ExcludeName != "" && ref.Name == f.ExcludeName {
			continue
		}
		if f.RiskBelow != nil && (ref.BaseRiskLevel == nil || *ref.BaseRiskLevel >= *f.RiskBelow) {
			continue
		}
		if len(f.Names) > 0 && !containsFold(f.Names, ref.Name) {
			continue
		}
		out = append(out, ref)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].RiskOr(101), out[j].RiskOr(101)
		if ri != rj {
			return ri < rj
		}
		return out[i].Name < out[j].Name
	})
	return truncate(out, limit), nil
}

// LatestMarketPrices returns quotes for the named crops, newest first.
func (s *Store) LatestMarketPrices(_ context.Context, names []string) ([]models.MarketPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("LatestMarketPrices"); err != nil {
		return nil, err
	}

	var out []models.MarketPrice
	for _, p := range s.prices {
		if containsFold(names, p.CropName) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// GetMonthlyReport returns the cached report for (userID, month).
func (s *Store) GetMonthlyReport(_ context.Context, userID, month string) (models.MonthlyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("GetMonthlyReport"); err != nil {
		return models.MonthlyReport{}, err
	}
	for _, r := range s.reports {
		if r.UserID == userID && r.Month == month {
			return r, nil
		}
	}
	return models.MonthlyReport{}, repository.ErrNotFound
}

// InsertMonthlyReport stores a report, rejecting a second one for the same
// (user, month) with repository.ErrDuplicate.
func (s *Store) InsertMonthlyReport(_ context.Context, r models.MonthlyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("InsertMonthlyReport"); err != nil {
		return err
	}
	for _, existing := range s.reports {
		if existing.UserID == r.UserID && existing.Month == r.Month {
			return repository.ErrDuplicate
		}
	}
	s.reports = append(s.reports, r)
	return nil
}

// DeleteMonthlyReport removes the report for (userID, month), if any.
func (s *Store) DeleteMonthlyReport(_ context.Context, userID, month string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("DeleteMonthlyReport"); err != nil {
		return err
	}
	s.reports = slices.DeleteFunc(s.reports, func(r models.MonthlyReport) bool {
		return r.UserID == userID && r.Month == month
	})
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }

func newestFirst[T any](in []T) []T {
	out := slices.Clone(in)
	slices.Reverse(out)
	return out
}

func truncate[T any](in []T, limit int) []T {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}

func containsFold(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
