package actions

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mamadbah2/agriscore/internal/apperr"
	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/observability"
	"github.com/mamadbah2/agriscore/internal/repository"
	"github.com/mamadbah2/agriscore/internal/repository/memory"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (r *recordingNotifier) NotifyAlert(_ context.Context, a models.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

type fixture struct {
	svc      *Service
	store    *memory.Store
	clock    *clockwork.FakeClock
	metrics  *observability.Metrics
	notifier *recordingNotifier
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore()
	store.PutFarm(models.Farm{ID: "farm-1", UserID: "u1"})
	store.PutField(models.Field{ID: "f1", FarmID: "farm-1", SoilType: "loamy"})
	store.PutFarm(models.Farm{ID: "farm-2", UserID: "u2"})
	store.PutField(models.Field{ID: "f2", FarmID: "farm-2"})
	store.PutField(models.Field{ID: "f3", FarmID: "farm-1"})
	store.PutCrop(models.Crop{ID: "c1", FieldID: "f1", Name: "Maize"})
	store.PutCrop(models.Crop{ID: "crop-u2", FieldID: "f2", Name: "Rice"})

	clock := clockwork.NewFakeClockAt(now)
	metrics := observability.NewMetricsForTesting()
	notifier := &recordingNotifier{}
	return fixture{
		svc:      NewService(store, notifier, clock, time.UTC, metrics, nil),
		store:    store,
		clock:    clock,
		metrics:  metrics,
		notifier: notifier,
	}
}

func TestLogAction_DefaultsWithoutField(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.LogAction(context.Background(), "u1", models.LogActionRequest{ActionType: "Scouting"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.ActionID)
	assert.Equal(t, models.ActionScores{
		SoilHealth: 75,
		Irrigation: 75,
		// humidity 60 adds nothing, temperature 25 adds 20
		WeedRisk: models.WeedRiskSummary{Score: 20, Level: models.RiskLow},
	}, res.Scores)
	assert.Empty(t, res.Alerts)

	scores, err := f.store.FindScores(context.Background(), repository.ScoreFilter{UserID: "u1"}, 0)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, res.ActionID, scores[0].ActionID)
	assert.Equal(t, "2024-03-10", scores[0].Date)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActionsLogged.WithLabelValues("scouting")))
}

func TestLogAction_HighRiskRaisesAlertsAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.PutReading(models.SensorReading{ID: "r1", FieldID: "f1", Timestamp: now.Add(-time.Hour), Humidity: 85, Temperature: 25, SoilMoisture: 25, SoilPh: 7})
	for i := 1; i <= 3; i++ {
		require.NoError(t, f.store.InsertAction(ctx, models.Action{
			ID: "prev-" + string(rune('0'+i)), UserID: "u1", Type: models.ActionIrrigation, Timestamp: now.Add(-time.Duration(i) * 24 * time.Hour),
		}))
	}
	// Outside the 7-day window.
	require.NoError(t, f.store.InsertAction(ctx, models.Action{ID: "old", UserID: "u1", Type: models.ActionIrrigation, Timestamp: now.Add(-8 * 24 * time.Hour)}))

	res, err := f.svc.LogAction(ctx, "u1", models.LogActionRequest{ActionType: "irrigation", FarmID: "farm-1", FieldID: "f1", CropID: "c1"})
	require.NoError(t, err)

	// 30 humidity + 20 temperature + 25 frequency (4 incl. this one) + 15 loamy
	assert.Equal(t, models.WeedRiskSummary{Score: 90, Level: models.RiskHigh}, res.Scores.WeedRisk)
	assert.Equal(t, 63, res.Scores.SoilHealth)
	assert.Equal(t, 90, res.Scores.Irrigation)

	require.Len(t, res.Alerts, 2)
	assert.Equal(t, models.AlertWeedRisk, res.Alerts[0].Type)
	assert.Equal(t, models.SeverityHigh, res.Alerts[0].Severity)
	require.NotNil(t, res.Alerts[0].RiskScore)
	assert.Equal(t, 90, *res.Alerts[0].RiskScore)
	assert.Equal(t, "Weed Risk: 90/100 (high) - Early weeding required.", res.Alerts[0].Message)
	assert.Equal(t, models.AlertWaterStress, res.Alerts[1].Type)
	assert.Equal(t, "Low soil moisture detected (25%) - consider irrigation", res.Alerts[1].Message)
	for _, a := range res.Alerts {
		assert.Equal(t, res.ActionID, a.ActionID)
		assert.Equal(t, "c1", a.CropID)
	}

	f.svc.Drain()
	require.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, res.Alerts[0].ID, f.notifier.alerts[0].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AlertsRaised.WithLabelValues("water_stress", "medium")))
}

func TestLogAction_UsesRequestTimestamp(t *testing.T) {
	f := newFixture(t)
	ts := now.Add(-48 * time.Hour)

	res, err := f.svc.LogAction(context.Background(), "u1", models.LogActionRequest{ActionType: "weeding", ActionTimestamp: &ts})
	require.NoError(t, err)

	actions, err := f.store.FindActions(context.Background(), repository.ActionFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, res.ActionID, actions[0].ID)
	assert.Equal(t, ts, actions[0].Timestamp)
}

func TestLogAction_CompensatesOnAlertFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.PutReading(models.SensorReading{ID: "r1", FieldID: "f1", Timestamp: now, Humidity: 50, Temperature: 25, SoilMoisture: 20, SoilPh: 7})
	f.store.FailOn("InsertAlert", errors.New("write conflict"))

	_, err := f.svc.LogAction(ctx, "u1", models.LogActionRequest{ActionType: "weeding", FieldID: "f1"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
	assert.Equal(t, "Failed to log action", apperr.MessageOf(err, "Failed to log action"))

	n, err := f.store.CountActions(ctx, repository.ActionFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Zero(t, n)
	scores, err := f.store.FindScores(ctx, repository.ScoreFilter{UserID: "u1"}, 0)
	require.NoError(t, err)
	assert.Empty(t, scores)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SagaCompensations.WithLabelValues("score", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SagaCompensations.WithLabelValues("action", "ok")))
	assert.Empty(t, f.notifier.alerts)
}

func TestLogAction_CompensationSurvivesCancelledContext(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn("InsertScore", errors.New("boom"))

	ctx, cancel := context.WithCancel(context.Background())
	cancelOnInsert := &cancellingStore{Store: f.store, cancel: cancel}
	svc := NewService(cancelOnInsert, nil, f.clock, time.UTC, f.metrics, nil)

	_, err := svc.LogAction(ctx, "u1", models.LogActionRequest{ActionType: "scouting"})
	require.Error(t, err)

	n, err := f.store.CountActions(context.Background(), repository.ActionFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, cancelOnInsert.deleteSawLiveContext)
}

// cancellingStore cancels the request context once the action is written.
type cancellingStore struct {
	*memory.Store
	cancel               context.CancelFunc
	deleteSawLiveContext bool
}

func (c *cancellingStore) InsertAction(ctx context.Context, a models.Action) error {
	err := c.Store.InsertAction(ctx, a)
	c.cancel()
	return err
}

func (c *cancellingStore) DeleteAction(ctx context.Context, id string) error {
	c.deleteSawLiveContext = ctx.Err() == nil
	return c.Store.DeleteAction(ctx, id)
}

func TestLogAction_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.LogAction(ctx, "", models.LogActionRequest{ActionType: "irrigation"})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = f.svc.LogAction(ctx, "u1", models.LogActionRequest{ActionType: "harvest"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	forbidden := map[string]models.LogActionRequest{
		"foreign field":         {ActionType: "irrigation", FieldID: "f2"},
		"foreign farm":          {ActionType: "weeding", FarmID: "farm-2"},
		"missing farm":          {ActionType: "weeding", FarmID: "farm-9"},
		"foreign crop":          {ActionType: "weeding", CropID: "crop-u2"},
		"missing crop":          {ActionType: "weeding", CropID: "c9"},
		"foreign farm and crop": {ActionType: "weeding", FarmID: "farm-2", CropID: "crop-u2"},
		"crop on other field":   {ActionType: "weeding", FieldID: "f3", CropID: "c1"},
		"field on other farm":   {ActionType: "weeding", FarmID: "farm-2", FieldID: "f1"},
	}
	for name, req := range forbidden {
		_, err := f.svc.LogAction(ctx, "u1", req)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), name)
	}

	n, err := f.store.CountActions(ctx, repository.ActionFilter{})
	require.NoError(t, err)
	assert.Zero(t, n, "rejected requests must not write")
	scores, err := f.store.FindScores(ctx, repository.ScoreFilter{}, 0)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestLogAction_OwnedFarmAndCrop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.LogAction(ctx, "u1", models.LogActionRequest{ActionType: "weeding", FarmID: "farm-1", CropID: "c1"})
	require.NoError(t, err)

	scores, err := f.store.FindScores(ctx, repository.ScoreFilter{UserID: "u1"}, 0)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, "farm-1", scores[0].FarmID)
	assert.Equal(t, "c1", scores[0].CropID)
}

func TestLogAction_OwnershipStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn("GetCrop", errors.New("timeout"))

	_, err := f.svc.LogAction(context.Background(), "u1", models.LogActionRequest{ActionType: "weeding", CropID: "c1"})
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))

	f.store.FailOn("GetCrop", nil)
	f.store.FailOn("GetFarm", errors.New("timeout"))
	_, err = f.svc.LogAction(context.Background(), "u1", models.LogActionRequest{ActionType: "weeding", FarmID: "farm-1"})
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
}

func TestLogAction_ResponseMatchesStoredRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clock = clockwork.NewFakeClockAt(time.Date(2024, 3, 10, 12, 0, 0, 123456789, time.UTC))
	f.svc = NewService(f.store, nil, f.clock, time.UTC, f.metrics, nil)
	f.store.PutReading(models.SensorReading{ID: "r1", FieldID: "f1", Timestamp: now, Humidity: 50, Temperature: 25, SoilMoisture: 20, SoilPh: 7})
	ts := time.Date(2024, 3, 9, 8, 30, 0, 987654321, time.FixedZone("IST", 5*3600+1800))

	res, err := f.svc.LogAction(ctx, "u1", models.LogActionRequest{ActionType: "weeding", FieldID: "f1", ActionTimestamp: &ts})
	require.NoError(t, err)
	require.NotEmpty(t, res.Alerts)

	for _, a := range res.Alerts {
		raw, err := bson.Marshal(a)
		require.NoError(t, err)
		var stored models.Alert
		require.NoError(t, bson.Unmarshal(raw, &stored))

		want, err := json.Marshal(a)
		require.NoError(t, err)
		got, err := json.Marshal(stored)
		require.NoError(t, err)
		assert.JSONEq(t, string(want), string(got))
	}

	actions, err := f.store.FindActions(ctx, repository.ActionFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, time.Date(2024, 3, 9, 3, 0, 0, 987000000, time.UTC), actions[0].Timestamp)
	assert.Equal(t, time.Date(2024, 3, 10, 12, 0, 0, 123000000, time.UTC), actions[0].CreatedAt)
}

// blockingNotifier holds every notification until release is closed.
type blockingNotifier struct {
	release chan struct{}
	sent    chan models.Alert
}

func (b *blockingNotifier) NotifyAlert(_ context.Context, a models.Alert) {
	<-b.release
	b.sent <- a
}

func TestLogAction_NotificationDoesNotBlockResponse(t *testing.T) {
	f := newFixture(t)
	f.store.PutReading(models.SensorReading{ID: "r1", FieldID: "f1", Timestamp: now, Humidity: 85, Temperature: 25, SoilMoisture: 40, SoilPh: 7})
	require.NoError(t, f.store.InsertAction(context.Background(), models.Action{ID: "prev", UserID: "u1", Type: models.ActionIrrigation, Timestamp: now.Add(-24 * time.Hour)}))
	notifier := &blockingNotifier{release: make(chan struct{}), sent: make(chan models.Alert, 4)}
	svc := NewService(f.store, notifier, f.clock, time.UTC, f.metrics, nil)

	// 30 humidity + 20 temperature + 10 frequency + 15 loamy
	res, err := svc.LogAction(context.Background(), "u1", models.LogActionRequest{ActionType: "irrigation", FieldID: "f1"})
	require.NoError(t, err)
	assert.Empty(t, notifier.sent, "response returned before the notifier finished")

	close(notifier.release)
	svc.Drain()
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, res.Alerts[0].ID, (<-notifier.sent).ID)
}

func TestWeedRiskStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, err := f.svc.WeedRiskStatus(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.WeedRiskStatus{CurrentScore: 25, Level: models.RiskLow, Trend: models.TrendStable, LastUpdated: now}, status)

	require.NoError(t, f.store.InsertScore(ctx, models.Score{ID: "s1", UserID: "u1", WeedRiskScore: 40, CreatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, f.store.InsertScore(ctx, models.Score{ID: "s2", UserID: "u1", WeedRiskScore: 46, CreatedAt: now.Add(-time.Hour)}))

	status, err = f.svc.WeedRiskStatus(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 46, status.CurrentScore)
	assert.Equal(t, models.RiskMedium, status.Level)
	assert.Equal(t, models.TrendIncreasing, status.Trend)
	assert.Equal(t, now.Add(-time.Hour), status.LastUpdated)

	_, err = f.svc.WeedRiskStatus(ctx, "")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestTrend(t *testing.T) {
	assert.Equal(t, models.TrendStable, trend(45, 40))
	assert.Equal(t, models.TrendIncreasing, trend(46, 40))
	assert.Equal(t, models.TrendStable, trend(35, 40))
	assert.Equal(t, models.TrendDecreasing, trend(34, 40))
}
