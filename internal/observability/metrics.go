package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agriscore"

// Metrics holds the Prometheus instruments for the scoring engine.
type Metrics struct {
	ActionsLogged       *prometheus.CounterVec // labels: type
	AlertsRaised        *prometheus.CounterVec // labels: type, severity
	SagaCompensations   *prometheus.CounterVec // labels: step, outcome={ok,error}
	ReportRequests      *prometheus.CounterVec // labels: outcome={cached,generated,regenerated}
	Notifications       *prometheus.CounterVec // labels: outcome={sent,error}
	ActionLogDuration   prometheus.Histogram
	ScheduledReportRuns *prometheus.CounterVec // labels: outcome={ok,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := build()
	prometheus.MustRegister(
		m.ActionsLogged,
		m.AlertsRaised,
		m.SagaCompensations,
		m.ReportRequests,
		m.Notifications,
		m.ActionLogDuration,
		m.ScheduledReportRuns,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they like.
func NewMetricsForTesting() *Metrics {
	return build()
}

func build() *Metrics {
	return &Metrics{
		ActionsLogged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_logged_total",
			Help:      "Actions successfully logged, by action type.",
		}, []string{"type"}),
		AlertsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "Alerts persisted, by alert type and severity.",
		}, []string{"type", "severity"}),
		SagaCompensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saga_compensations_total",
			Help:      "Compensating deletes run after a failed action log.",
		}, []string{"step", "outcome"}),
		ReportRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_requests_total",
			Help:      "Monthly report requests by outcome.",
		}, []string{"outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_notifications_total",
			Help:      "Alert notifications pushed to WhatsApp, by outcome.",
		}, []string{"outcome"}),
		ActionLogDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_log_duration_seconds",
			Help:      "Duration of a complete action log, reads and writes included.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ScheduledReportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_report_runs_total",
			Help:      "Monthly close runs of the report scheduler, by outcome.",
		}, []string{"outcome"}),
	}
}
