package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/agriscore/internal/apperr"
	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/observability"
	"github.com/mamadbah2/agriscore/internal/repository/memory"
)

func TestListOpen(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertAlert(ctx, models.Alert{ID: "old", UserID: "u1", CreatedAt: base}))
	require.NoError(t, store.InsertAlert(ctx, models.Alert{ID: "new", UserID: "u1", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, store.InsertAlert(ctx, models.Alert{ID: "ack", UserID: "u1", Acknowledged: true, CreatedAt: base.Add(2 * time.Hour)}))
	require.NoError(t, store.InsertAlert(ctx, models.Alert{ID: "other", UserID: "u2", CreatedAt: base}))

	svc := NewService(store, nil)

	alerts, err := svc.ListOpen(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "new", alerts[0].ID)
	assert.Equal(t, "old", alerts[1].ID)

	empty, err := svc.ListOpen(ctx, "u3")
	require.NoError(t, err)
	assert.NotNil(t, empty)

	_, err = svc.ListOpen(ctx, "")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

type fakeSender struct {
	to, body string
	err      error
}

func (f *fakeSender) SendText(_ context.Context, to, body string) (string, error) {
	f.to, f.body = to, body
	return "wamid.1", f.err
}

func TestWhatsAppNotifier(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	sender := &fakeSender{}
	n := NewWhatsAppNotifier(sender, "919800000000", metrics, nil)
	score := 82

	n.NotifyAlert(context.Background(), models.Alert{
		ID:              "a1",
		FieldID:         "f1",
		Type:            models.AlertWeedRisk,
		Severity:        models.SeverityHigh,
		RiskScore:       &score,
		Message:         "Weed Risk: 82/100 (high) - Early weeding required.",
		SuggestedAction: "Schedule weeding activity immediately",
	})

	assert.Equal(t, "919800000000", sender.to)
	assert.Equal(t, "[HIGH] weed risk alert on field f1\nWeed Risk: 82/100 (high) - Early weeding required.\nSuggested: Schedule weeding activity immediately", sender.body)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Notifications.WithLabelValues("sent")))

	sender.err = errors.New("rate limited")
	n.NotifyAlert(context.Background(), models.Alert{ID: "a2"})
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Notifications.WithLabelValues("error")))
}
