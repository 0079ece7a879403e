package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/alerting"
	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/application/history"
	"github.com/dreschagin/monitoring-core/internal/application/port"
	"github.com/dreschagin/monitoring-core/internal/application/registry"
	"github.com/dreschagin/monitoring-core/internal/application/thresholds"
	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/event"
	"github.com/dreschagin/monitoring-core/internal/domain/service"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-core/internal/infrastructure/persistence/memory"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

type fakeSource struct {
	id    string
	mu    sync.Mutex
	value float64
	err   error
	delay time.Duration
}

func (s *fakeSource) ID() string { return s.id }

func (s *fakeSource) set(value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
}

func (s *fakeSource) Sample(ctx context.Context) (valueobject.MetricSnapshot, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return valueobject.MetricSnapshot{}, ctx.Err()
		}
	}
	if s.err != nil {
		return valueobject.MetricSnapshot{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return valueobject.NewMetricSnapshot(s.id, time.Now(), map[valueobject.MetricKey]valueobject.Reading{
		"cpu_usage": valueobject.MustNumeric(s.value),
	}), nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *eventRecorder) Publish(ev event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) alertEvents() []event.AlertEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []event.AlertEvent
	for _, ev := range r.events {
		if ae, ok := ev.(event.AlertEvent); ok {
			result = append(result, ae)
		}
	}
	return result
}

type pipeline struct {
	source   *fakeSource
	registry *registry.Registry
	events   *eventRecorder
	store    *thresholds.Store
	alerts   *alerting.Manager
	collect  *CollectMetricsUseCase
	evaluate *EvaluateThresholdsUseCase
}

func newPipeline(t *testing.T, sources ...port.MetricSource) *pipeline {
	t.Helper()
	log := logger.Nop()
	p := &pipeline{
		source:   &fakeSource{id: "host"},
		registry: registry.New(registry.DefaultCapacity),
		events:   &eventRecorder{},
		store:    thresholds.NewStore(memory.NewThresholdRepository(), log),
	}
	if len(sources) == 0 {
		sources = []port.MetricSource{p.source}
	}

	cfg, err := entity.NewThresholdConfig(entity.ThresholdParams{
		MetricKey:     "cpu_usage",
		WarningLevel:  80,
		CriticalLevel: 90,
		HysteresisPct: 5,
	})
	if err != nil {
		t.Fatalf("NewThresholdConfig() error = %v", err)
	}
	if _, err := p.store.Put(context.Background(), cfg, thresholds.AnyVersion); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	p.alerts = alerting.NewManager(memory.NewAlertRepository(), p.events, nil, nil, alerting.DefaultConfig(), log)
	p.collect = NewCollectMetricsUseCase(sources, p.registry, p.events, nil,
		service.NewMetricValidator(time.Minute), nil,
		CollectMetricsConfig{Timeout: 50 * time.Millisecond}, log)
	p.evaluate = NewEvaluateThresholdsUseCase(p.registry, p.store, service.NewThresholdEvaluator(), p.alerts,
		time.Second, time.Minute, log)
	return p
}

func (p *pipeline) step(ctx context.Context, value float64) {
	p.source.set(value)
	p.collect.ExecuteAll(ctx)
	p.evaluate.Execute(ctx)
}

func TestPipeline_ReopenAfterResolveGetsNewID(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)

	p.step(ctx, 95)
	open := p.alerts.OpenAlerts()
	if len(open) != 1 || open[0].Severity() != valueobject.SeverityCritical {
		t.Fatalf("expected one critical alert, got %+v", open)
	}
	firstID := open[0].ID()

	p.step(ctx, 40)
	if len(p.alerts.OpenAlerts()) != 0 {
		t.Fatal("alert must auto-resolve at 40")
	}

	p.step(ctx, 95)
	open = p.alerts.OpenAlerts()
	if len(open) != 1 {
		t.Fatalf("expected a new open alert, got %d", len(open))
	}
	if open[0].ID() == firstID {
		t.Error("reopened alert must get a new id")
	}

	var kinds []event.Kind
	for _, ev := range p.events.alertEvents() {
		kinds = append(kinds, ev.Kind())
	}
	want := []event.Kind{event.KindAlertOpened, event.KindAlertAutoResolved, event.KindAlertOpened}
	if len(kinds) != len(want) {
		t.Fatalf("alert events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("alert events = %v, want %v", kinds, want)
		}
	}
}

func TestCollectMetrics_SourceFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	healthy := &fakeSource{id: "healthy", value: 10}
	broken := &fakeSource{id: "broken", err: errors.New("connection refused")}
	slow := &fakeSource{id: "slow", delay: time.Second}
	p := newPipeline(t, healthy, broken, slow)

	started := time.Now()
	results := p.collect.ExecuteAll(ctx)
	if elapsed := time.Since(started); elapsed > 500*time.Millisecond {
		t.Fatalf("slow source stalled collection for %s", elapsed)
	}

	byID := map[string]*dto.SourceCheckDTO{}
	for _, r := range results {
		byID[r.SourceID] = r
	}
	if !byID["healthy"].OK || byID["healthy"].Readings != 1 {
		t.Errorf("unexpected healthy result %+v", byID["healthy"])
	}
	for _, id := range []string{"broken", "slow"} {
		if byID[id].OK || byID[id].Error == "" {
			t.Errorf("expected failure for %s, got %+v", id, byID[id])
		}
	}

	tests := []struct {
		source string
		want   float64
	}{
		{"healthy", 1},
		{"broken", 0},
		{"slow", 0},
	}
	for _, tt := range tests {
		sample, ok := p.registry.CurrentValue(valueobject.SourceUpKey(tt.source))
		if !ok || sample.Reading.Value() != tt.want {
			t.Errorf("source_up:%s = %+v, want %v", tt.source, sample, tt.want)
		}
	}
}

func TestCollectMetrics_DropsUnreasonableReadings(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.source.set(250)

	result := p.collect.Execute(ctx, p.source)
	if !result.OK || result.Readings != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, ok := p.registry.CurrentValue("cpu_usage"); ok {
		t.Error("unreasonable percentage must not reach the registry")
	}
}

func TestEvaluateThresholds_StaleKeysKeepAlertOpen(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)

	p.step(ctx, 95)
	if len(p.alerts.OpenAlerts()) != 1 {
		t.Fatal("expected open alert")
	}

	p.registry.WithClock(func() time.Time { return time.Now().Add(time.Hour) })
	_, signals := p.evaluate.Execute(ctx)
	if signals != 0 {
		t.Errorf("stale values must not produce signals, got %d", signals)
	}
	if len(p.alerts.OpenAlerts()) != 1 {
		t.Error("alert must stay open while values are stale")
	}
}

func TestRunHealthCheck(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.source.set(85)

	uc := NewRunHealthCheckUseCase(p.collect, p.evaluate, logger.Nop())
	result := uc.Execute(ctx)

	if len(result.Sources) != 1 || !result.Sources[0].OK {
		t.Fatalf("unexpected sources %+v", result.Sources)
	}
	if result.Tick == 0 || result.Signals != 1 {
		t.Errorf("unexpected tick/signals: %d/%d", result.Tick, result.Signals)
	}
	if open := p.alerts.OpenAlerts(); len(open) != 1 || open[0].Severity() != valueobject.SeverityWarning {
		t.Errorf("expected warning alert, got %+v", open)
	}
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets chan string
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string][]byte{}, sets: make(chan string, 10)}
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return port.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = raw
	c.mu.Unlock()
	c.sets <- key
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *mapCache) DeletePattern(context.Context, string) error { return nil }
func (c *mapCache) Close() error                                { return nil }

func TestGetMetricHistory_CachesOnlyFinalRanges(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	now := base.Add(10 * time.Minute)

	agg := history.New(history.Config{Resolution: time.Minute}, memory.NewHistoryRepository(), nil, logger.Nop()).
		WithClock(func() time.Time { return now })
	for i := 0; i < 10; i++ {
		agg.OnIngest("cpu_usage", valueobject.Sample{
			SourceID:  "host",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Reading:   valueobject.MustNumeric(float64(i)),
		})
	}

	cache := newMapCache()
	uc := NewGetMetricHistoryUseCase(agg, cache, logger.Nop())

	closed, _ := valueobject.NewTimeRange(base, base.Add(5*time.Minute))
	first, err := uc.Execute(ctx, "cpu_usage", closed, time.Minute)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if first.Cached || !first.AllFinal() {
		t.Fatalf("unexpected first response %+v", first)
	}

	select {
	case <-cache.sets:
	case <-time.After(time.Second):
		t.Fatal("final range was not cached")
	}

	second, err := uc.Execute(ctx, "cpu_usage", closed, time.Minute)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !second.Cached || len(second.Buckets) != 5 {
		t.Errorf("expected cached response with 5 buckets, got %+v", second)
	}

	open, _ := valueobject.NewTimeRange(base.Add(5*time.Minute), base.Add(11*time.Minute))
	partial, err := uc.Execute(ctx, "cpu_usage", open, time.Minute)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if partial.AllFinal() {
		t.Fatal("range touching the open bucket must not be final")
	}
	select {
	case key := <-cache.sets:
		t.Errorf("partial range must not be cached, got %s", key)
	case <-time.After(50 * time.Millisecond):
	}
}
