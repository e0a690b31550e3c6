// Package metrics provides Prometheus metrics for the reminder service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	StatusChecks      *prometheus.CounterVec
	RemindersRecorded prometheus.Counter
	RemindersRejected prometheus.Counter
	StorageFailures   *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		StatusChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saldo_cooldown_checks_total",
				Help: "Cooldown status checks by result.",
			},
			[]string{"result"},
		),
		RemindersRecorded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "saldo_reminders_recorded_total",
				Help: "Reminders recorded by the cooldown tracker.",
			},
		),
		RemindersRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "saldo_reminders_rejected_total",
				Help: "Reminder attempts refused because of an active cooldown.",
			},
		),
		StorageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saldo_storage_failures_total",
				Help: "Storage medium failures absorbed by the tracker, by operation.",
			},
			[]string{"op"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saldo_events_published_total",
				Help: "Change events handed to publishers, by outcome.",
			},
			[]string{"outcome"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "saldo_http_request_duration_seconds",
				Help:    "HTTP request duration by route and status class.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "status"},
		),
		registry: reg,
	}

	reg.MustRegister(m.StatusChecks)
	reg.MustRegister(m.RemindersRecorded)
	reg.MustRegister(m.RemindersRejected)
	reg.MustRegister(m.StorageFailures)
	reg.MustRegister(m.EventsPublished)
	reg.MustRegister(m.RequestDuration)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry, for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) StatusChecked(onCooldown bool) {
	result := "idle"
	if onCooldown {
		result = "cooldown"
	}
	m.StatusChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) ReminderRecorded() {
	m.RemindersRecorded.Inc()
}

func (m *Metrics) ReminderRejected() {
	m.RemindersRejected.Inc()
}

func (m *Metrics) StorageFailed(op string) {
	m.StorageFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) EventPublished(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.EventsPublished.WithLabelValues(outcome).Inc()
}

// ObserveRequest records a request duration.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	m.RequestDuration.WithLabelValues(route, statusClass(status)).Observe(d.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
