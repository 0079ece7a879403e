package collector

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

type staticCollector struct {
	readings map[valueobject.MetricKey]valueobject.Reading
	err      error
}

func (c staticCollector) Collect(context.Context) (map[valueobject.MetricKey]valueobject.Reading, error) {
	return c.readings, c.err
}

func TestSystemSource_PartialFailureKeepsReadings(t *testing.T) {
	source := NewSystemSourceWith("host",
		staticCollector{readings: map[valueobject.MetricKey]valueobject.Reading{
			"cpu_usage": valueobject.MustNumeric(12),
		}},
		staticCollector{err: errors.New("no disk")},
	)

	snapshot, err := source.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if snapshot.SourceID() != "host" || snapshot.Len() != 1 {
		t.Errorf("unexpected snapshot %+v", snapshot.Readings())
	}
}

func TestSystemSource_AllCollectorsFail(t *testing.T) {
	source := NewSystemSourceWith("host",
		staticCollector{err: errors.New("cpu")},
		staticCollector{err: errors.New("mem")},
	)

	if _, err := source.Sample(context.Background()); !errors.Is(err, errs.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestHTTPProbeSource(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantStatus string
		wantUp     float64
	}{
		{name: "healthy adapter", status: http.StatusOK, wantStatus: StatusUp, wantUp: 1},
		{name: "failing adapter", status: http.StatusServiceUnavailable, wantStatus: StatusDegraded, wantUp: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			source := NewHTTPProbeSource("chain", server.URL, server.Client())
			snapshot, err := source.Sample(context.Background())
			if err != nil {
				t.Fatalf("Sample() error = %v", err)
			}

			status, ok := snapshot.Get("adapter_status:chain")
			if !ok || status.Label() != tt.wantStatus {
				t.Errorf("adapter_status = %+v, want %s", status, tt.wantStatus)
			}
			up, _ := snapshot.Get("adapter_up:chain")
			if up.Value() != tt.wantUp {
				t.Errorf("adapter_up = %v, want %v", up.Value(), tt.wantUp)
			}
			if _, ok := snapshot.Get("adapter_latency_ms:chain"); !ok {
				t.Error("latency reading missing")
			}
		})
	}
}

func TestHTTPProbeSource_TimeoutIsSourceFailure(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPProbeSource("slow", server.URL, server.Client()).Sample(ctx)
	if !errors.Is(err, errs.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

type fakePinger struct {
	err   error
	stats sql.DBStats
}

func (p fakePinger) PingContext(context.Context) error { return p.err }
func (p fakePinger) Stats() sql.DBStats { return p.stats }

func TestDatabaseSource(t *testing.T) {
	source := NewDatabaseSource("main", fakePinger{stats: sql.DBStats{OpenConnections: 4, InUse: 1}})
	snapshot, err := source.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if open, _ := snapshot.Get("database_open_conns"); open.Value() != 4 {
		t.Errorf("database_open_conns = %v, want 4", open.Value())
	}

	_, err = NewDatabaseSource("main", fakePinger{err: errors.New("refused")}).Sample(context.Background())
	if !errors.Is(err, errs.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}
