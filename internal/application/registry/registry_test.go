package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

func snap(source string, ts time.Time, readings map[valueobject.MetricKey]float64) valueobject.MetricSnapshot {
	m := make(map[valueobject.MetricKey]valueobject.Reading, len(readings))
	for k, v := range readings {
		m[k] = valueobject.MustNumeric(v)
	}
	return valueobject.NewMetricSnapshot(source, ts, m)
}

func TestRegistry_RingDropsOldest(t *testing.T) {
	r := New(3)
	base := time.Unix(1000, 0)
	r.WithClock(func() time.Time { return base.Add(time.Hour) })

	for i := 0; i < 5; i++ {
		r.Ingest(snap("sys", base.Add(time.Duration(i)*time.Second), map[valueobject.MetricKey]float64{"cpu": float64(i)}))
	}

	if n := r.Len("cpu"); n != 3 {
		t.Fatalf("expected 3 samples, got %d", n)
	}

	window := r.RecentWindow("cpu", 2*time.Hour)
	if len(window) != 3 {
		t.Fatalf("expected 3 samples in window, got %d", len(window))
	}
	for i, want := range []float64{2, 3, 4} {
		if got := window[i].Reading.Value(); got != want {
			t.Errorf("window[%d] = %v, want %v", i, got, want)
		}
	}

	current, ok := r.CurrentValue("cpu")
	if !ok || current.Reading.Value() != 4 {
		t.Errorf("CurrentValue() = %v, %v", current, ok)
	}
}

func TestRegistry_RecentWindowFiltersByTime(t *testing.T) {
	now := time.Unix(10_000, 0)
	r := New(10).WithClock(func() time.Time { return now })

	r.Ingest(snap("sys", now.Add(-10*time.Minute), map[valueobject.MetricKey]float64{"cpu": 1}))
	r.Ingest(snap("sys", now.Add(-30*time.Second), map[valueobject.MetricKey]float64{"cpu": 2}))

	window := r.RecentWindow("cpu", time.Minute)
	if len(window) != 1 || window[0].Reading.Value() != 2 {
		t.Fatalf("unexpected window: %+v", window)
	}

	if w := r.RecentWindow("unknown", time.Minute); w != nil {
		t.Errorf("expected nil for unknown key, got %+v", w)
	}
}

func TestRegistry_LatestSkipsStale(t *testing.T) {
	now := time.Unix(10_000, 0)
	r := New(10).WithClock(func() time.Time { return now })

	r.Ingest(snap("a", now.Add(-time.Hour), map[valueobject.MetricKey]float64{"old": 1}))
	r.Ingest(snap("b", now.Add(-time.Second), map[valueobject.MetricKey]float64{"fresh": 2}))

	latest := r.Latest(time.Minute)
	if _, ok := latest["old"]; ok {
		t.Error("stale key must be skipped")
	}
	if s, ok := latest["fresh"]; !ok || s.Reading.Value() != 2 {
		t.Errorf("expected fresh key, got %+v", latest)
	}
}

func TestRegistry_ObserverCalledPerReading(t *testing.T) {
	r := New(10)
	var mu sync.Mutex
	seen := map[valueobject.MetricKey]int{}
	r.AddObserver(ObserverFunc(func(key valueobject.MetricKey, _ valueobject.Sample) {
		mu.Lock()
		seen[key]++
		mu.Unlock()
	}))

	r.Ingest(snap("sys", time.Unix(1, 0), map[valueobject.MetricKey]float64{"cpu": 1, "mem": 2}))

	if seen["cpu"] != 1 || seen["mem"] != 1 {
		t.Errorf("unexpected observer calls: %+v", seen)
	}
}

func TestRegistry_ConcurrentIngest(t *testing.T) {
	r := New(50)
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				readings := map[valueobject.MetricKey]float64{"shared": float64(i)}
				readings[valueobject.MetricKey("own:"+string(rune('a'+g)))] = float64(i)
				r.Ingest(snap("sys", time.Unix(int64(i), 0), readings))
				r.CurrentValue("shared")
				r.Keys()
			}
		}(g)
	}
	wg.Wait()

	if n := r.Len("shared"); n != 50 {
		t.Errorf("expected full buffer of 50, got %d", n)
	}
	if keys := r.Keys(); len(keys) != 9 {
		t.Errorf("expected 9 keys, got %d", len(keys))
	}
}
