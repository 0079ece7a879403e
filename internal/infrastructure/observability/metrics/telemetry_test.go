package metrics

import (
	"testing"

	"github.com/dreschagin/monitoring-core/internal/application/port"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ port.Telemetry = (*Telemetry)(nil)

func TestTelemetry_Counters(t *testing.T) {
	tel := New(prometheus.NewRegistry())

	tel.SubscriberLagged()
	tel.SubscriberLagged()
	tel.SubscriberDisconnected("overflow")
	tel.SubscribersActive(3)
	tel.PersistenceFailed("save_alert")
	tel.AlertTransition("opened")
	tel.AlertTransition("opened")
	tel.ReportRun("partial")
	tel.HistorySampleDropped("late")
	tel.ObserveHTTP("/api/v1/alerts", "GET", "200", 0.01)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"lag", testutil.ToFloat64(tel.SubscriberLag), 2},
		{"overflow", testutil.ToFloat64(tel.SubscriberDisconnects.WithLabelValues("overflow")), 1},
		{"subscribers", testutil.ToFloat64(tel.Subscribers), 3},
		{"persistence", testutil.ToFloat64(tel.PersistenceFailures.WithLabelValues("save_alert")), 1},
		{"opened", testutil.ToFloat64(tel.AlertTransitions.WithLabelValues("opened")), 2},
		{"report", testutil.ToFloat64(tel.ReportRuns.WithLabelValues("partial")), 1},
		{"late", testutil.ToFloat64(tel.HistoryDroppedSamples.WithLabelValues("late")), 1},
		{"http", testutil.ToFloat64(tel.HTTPRequestsTotal.WithLabelValues("/api/v1/alerts", "GET", "200")), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestNew_RegistersOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	New(registry)

	defer func() {
		if recover() == nil {
			t.Error("registering twice on the same registry must panic")
		}
	}()
	New(registry)
}
