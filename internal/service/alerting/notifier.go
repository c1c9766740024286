package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agriscore/internal/domain/models"
	"github.com/mamadbah2/agriscore/internal/observability"
	"github.com/mamadbah2/agriscore/pkg/clients/whatsapp"
)

const notifyTimeout = 10 * time.Second

// WhatsAppNotifier pushes alerts to a fixed operations recipient. Delivery is
// best effort: failures are logged and counted, never returned.
type WhatsAppNotifier struct {
	sender  whatsapp.Sender
	to      string
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewWhatsAppNotifier wires a notifier that messages to.
func NewWhatsAppNotifier(sender whatsapp.Sender, to string, metrics *observability.Metrics, logger *zap.Logger) *WhatsAppNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &WhatsAppNotifier{sender: sender, to: to, metrics: metrics, logger: logger.Named("alert.notifier")}
}

// NotifyAlert sends one alert.
func (n *WhatsAppNotifier) NotifyAlert(ctx context.Context, alert models.Alert) {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	id, err := n.sender.SendText(ctx, n.to, FormatAlert(alert))
	if err != nil {
		n.metrics.Notifications.WithLabelValues("error").Inc()
		n.logger.Warn("alert notification failed", zap.String("alert_id", alert.ID), zap.Error(err))
		return
	}
	n.metrics.Notifications.WithLabelValues("sent").Inc()
	n.logger.Info("alert notification sent", zap.String("alert_id", alert.ID), zap.String("message_id", id))
}

// FormatAlert renders an alert as a short text message.
func FormatAlert(alert models.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s alert", strings.ToUpper(string(alert.Severity)), strings.ReplaceAll(string(alert.Type), "_", " "))
	if alert.FieldID != "" {
		fmt.Fprintf(&b, " on field %s", alert.FieldID)
	}
	fmt.Fprintf(&b, "\n%s\nSuggested: %s", alert.Message, alert.SuggestedAction)
	return b.String()
}
