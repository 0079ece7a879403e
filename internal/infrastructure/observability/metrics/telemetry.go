package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "monitoring_core"

// Telemetry bundles prometheus collectors of the monitoring core.
// Implements port.Telemetry.
type Telemetry struct {
	SubscriberLag          prometheus.Counter
	SubscriberDisconnects  *prometheus.CounterVec
	Subscribers            prometheus.Gauge
	PersistenceFailures    *prometheus.CounterVec
	SourceFailures         *prometheus.CounterVec
	SourceSampleDuration   *prometheus.HistogramVec
	AlertTransitions       *prometheus.CounterVec
	NotificationFailures   *prometheus.CounterVec
	ReportRuns             *prometheus.CounterVec
	HistoryDroppedSamples  *prometheus.CounterVec
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDurationSec *prometheus.HistogramVec
}

func New(registry prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		SubscriberLag: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriber_dropped_events_total",
			Help:      "Events dropped from lagging subscriber queues.",
		}),
		SubscriberDisconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriber_disconnects_total",
			Help:      "Subscriber disconnects by reason.",
		}, []string{"reason"}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Currently connected live feed subscribers.",
		}),
		PersistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Failed repository writes by operation.",
		}, []string{"operation"}),
		SourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Failed sampling attempts by source.",
		}, []string{"source"}),
		SourceSampleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_sample_duration_seconds",
			Help:      "Duration of successful sampling attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		AlertTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_transitions_total",
			Help:      "Alert lifecycle transitions by kind.",
		}, []string{"kind"}),
		NotificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Failed alert notifications by channel.",
		}, []string{"channel"}),
		ReportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_runs_total",
			Help:      "Report runs by result.",
		}, []string{"result"}),
		HistoryDroppedSamples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_dropped_samples_total",
			Help:      "Samples not folded into history by reason.",
		}, []string{"reason"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of admin API requests.",
		}, []string{"route", "method", "status"}),
		HTTPRequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Admin API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	registry.MustRegister(
		t.SubscriberLag,
		t.SubscriberDisconnects,
		t.Subscribers,
		t.PersistenceFailures,
		t.SourceFailures,
		t.SourceSampleDuration,
		t.AlertTransitions,
		t.NotificationFailures,
		t.ReportRuns,
		t.HistoryDroppedSamples,
		t.HTTPRequestsTotal,
		t.HTTPRequestDurationSec,
	)

	return t
}

func (t *Telemetry) SubscriberLagged() { t.SubscriberLag.Inc() }

func (t *Telemetry) SubscriberDisconnected(reason string) {
	t.SubscriberDisconnects.WithLabelValues(reason).Inc()
}

func (t *Telemetry) SubscribersActive(n int) { t.Subscribers.Set(float64(n)) }

func (t *Telemetry) PersistenceFailed(operation string) {
	t.PersistenceFailures.WithLabelValues(operation).Inc()
}

func (t *Telemetry) SourceFailed(sourceID string) {
	t.SourceFailures.WithLabelValues(sourceID).Inc()
}

func (t *Telemetry) SourceSampled(sourceID string, seconds float64) {
	t.SourceSampleDuration.WithLabelValues(sourceID).Observe(seconds)
}

func (t *Telemetry) AlertTransition(kind string) {
	t.AlertTransitions.WithLabelValues(kind).Inc()
}

func (t *Telemetry) NotificationFailed(channel string) {
	t.NotificationFailures.WithLabelValues(channel).Inc()
}

func (t *Telemetry) ReportRun(result string) { t.ReportRuns.WithLabelValues(result).Inc() }

func (t *Telemetry) HistorySampleDropped(reason string) {
	t.HistoryDroppedSamples.WithLabelValues(reason).Inc()
}

// ObserveHTTP records one admin API request.
func (t *Telemetry) ObserveHTTP(route, method, status string, seconds float64) {
	t.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	t.HTTPRequestDurationSec.WithLabelValues(route, method, status).Observe(seconds)
}
