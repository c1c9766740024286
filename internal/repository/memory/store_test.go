package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/repository"
)

func intPtr(v int) *int { return &v }

func TestStore_InsertMonthlyReportRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	report := models.MonthlyReport{ID: "r1", UserID: "u1", Month: "2024-03"}
	require.NoError(t, s.InsertMonthlyReport(ctx, report))

	err := s.InsertMonthlyReport(ctx, models.MonthlyReport{ID: "r2", UserID: "u1", Month: "2024-03"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := s.GetMonthlyReport(ctx, "u1", "2024-03")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)

	require.NoError(t, s.DeleteMonthlyReport(ctx, "u1", "2024-03"))
	_, err = s.GetMonthlyReport(ctx, "u1", "2024-03")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_FindScoresNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.InsertScore(ctx, models.Score{
			ID: id, UserID: "u1", FieldID: "f1", Date: "2024-03-01",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.InsertScore(ctx, models.Score{ID: "other", UserID: "u2", CreatedAt: base.Add(time.Hour)}))

	scores, err := s.FindScores(ctx, repository.ScoreFilter{UserID: "u1"}, 2)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "c", scores[0].ID)
	assert.Equal(t, "b", scores[1].ID)
}

func TestStore_FindScoresDateRange(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, d := range []string{"2024-02-29", "2024-03-01", "2024-03-31", "2024-04-01"} {
		require.NoError(t, s.InsertScore(ctx, models.Score{ID: d, UserID: "u1", Date: d}))
	}

	scores, err := s.FindScores(ctx, repository.ScoreFilter{UserID: "u1", FromDate: "2024-03-01", ToDate: "2024-04-01"}, 0)
	require.NoError(t, err)
	assert.Len(t, scores, 2)
}

func TestStore_CountActionsWindow(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	for i, ts := range []time.Time{from.Add(-time.Second), from, to.Add(-time.Second), to} {
		require.NoError(t, s.InsertAction(ctx, models.Action{
			ID: string(rune('a' + i)), UserID: "u1", Type: models.ActionIrrigation, Timestamp: ts,
		}))
	}

	n, err := s.CountActions(ctx, repository.ActionFilter{UserID: "u1", From: from, To: to})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	users, err := s.ActiveUsers(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, users)
}

func TestStore_FindCropReferencesOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	s.PutCropReference(models.CropReference{Name: "wheat", BaseRiskLevel: intPtr(30)})
	s.PutCropReference(models.CropReference{Name: "barley", BaseRiskLevel: intPtr(30)})
	s.PutCropReference(models.CropReference{Name: "millet", BaseRiskLevel: intPtr(10)})
	s.PutCropReference(models.CropReference{Name: "rice", BaseRiskLevel: intPtr(80)})
	s.PutCropReference(models.CropReference{Name: "unrated"})

	refs, err := s.FindCropReferences(ctx, repository.CropReferenceFilter{ExcludeName: "rice", RiskBelow: intPtr(80)}, 3)
	require.NoError(t, err)

	var names []string
	for _, r := range refs {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"millet", "barley", "wheat"}, names)
}

func TestStore_LatestReadingsScope(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s.PutReading(models.SensorReading{ID: "1", FieldID: "f1", Timestamp: base})
	s.PutReading(models.SensorReading{ID: "2", FieldID: "f2", Timestamp: base.Add(time.Hour)})

	all, err := s.LatestReadings(ctx, repository.ReadingFilter{}, 5)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2", all[0].ID)

	scoped, err := s.LatestReadings(ctx, repository.ReadingFilter{FieldIDs: []string{"f1"}}, 5)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "1", scoped[0].ID)

	none, err := s.LatestReadings(ctx, repository.ReadingFilter{FieldIDs: []string{}}, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_FailOn(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	boom := errors.New("boom")

	s.FailOn("InsertScore", boom)
	assert.ErrorIs(t, s.InsertScore(ctx, models.Score{ID: "x"}), boom)

	s.FailOn("InsertScore", nil)
	assert.NoError(t, s.InsertScore(ctx, models.Score{ID: "x"}))
}
