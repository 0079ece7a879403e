package service

import (
	"testing"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

func mustConfig(t *testing.T, p entity.ThresholdParams) *entity.ThresholdConfig {
	t.Helper()
	cfg, err := entity.NewThresholdConfig(p)
	if err != nil {
		t.Fatalf("NewThresholdConfig() error = %v", err)
	}
	return cfg
}

func snapshotOf(key valueobject.MetricKey, value float64) valueobject.MetricSnapshot {
	return valueobject.NewMetricSnapshot("test", time.Unix(1000, 0), map[valueobject.MetricKey]valueobject.Reading{
		key: valueobject.MustNumeric(value),
	})
}

func TestEvaluate_HysteresisHoldsUntilMarginCrossed(t *testing.T) {
	e := NewThresholdEvaluator()
	key := valueobject.MetricKey("cpu_usage")
	configs := map[valueobject.MetricKey]*entity.ThresholdConfig{
		key: mustConfig(t, entity.ThresholdParams{
			MetricKey:     key,
			WarningLevel:  75,
			CriticalLevel: 80,
			Comparison:    valueobject.Above,
			HysteresisPct: 10,
		}),
	}

	held := map[valueobject.MetricKey]valueobject.Severity{}

	steps := []struct {
		value        float64
		wantBreached bool
		wantSeverity valueobject.Severity
	}{
		{85, true, valueobject.SeverityCritical},
		{76, true, valueobject.SeverityCritical},
		{71, false, valueobject.SeverityNone},
	}

	for i, step := range steps {
		signals := e.Evaluate(snapshotOf(key, step.value), configs, held)
		if len(signals) != 1 {
			t.Fatalf("step %d: expected 1 signal, got %d", i, len(signals))
		}
		s := signals[0]
		if s.Breached != step.wantBreached || s.Severity != step.wantSeverity {
			t.Errorf("step %d (value %v): got breached=%v severity=%s, want breached=%v severity=%s",
				i, step.value, s.Breached, s.Severity, step.wantBreached, step.wantSeverity)
		}
		if s.Breached {
			held[key] = s.Severity
		} else {
			delete(held, key)
		}
	}
}

func TestEvaluate_InclusiveBoundaryAndHighestSeverity(t *testing.T) {
	e := NewThresholdEvaluator()
	key := valueobject.MetricKey("memory_usage")
	info := 50.0
	cfg := mustConfig(t, entity.ThresholdParams{
		MetricKey:     key,
		InfoLevel:     &info,
		WarningLevel:  80,
		CriticalLevel: 90,
		Comparison:    valueobject.Above,
	})

	tests := []struct {
		name  string
		value float64
		want  valueobject.Severity
		emit  bool
	}{
		{"below info", 49.9, valueobject.SeverityNone, false},
		{"exactly info", 50, valueobject.SeverityInfo, true},
		{"exactly warning", 80, valueobject.SeverityWarning, true},
		{"exactly critical", 90, valueobject.SeverityCritical, true},
		{"far above", 150, valueobject.SeverityCritical, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := e.EvaluateValue(cfg, tt.value, valueobject.SeverityNone)
			if ok != tt.emit {
				t.Fatalf("emit = %v, want %v", ok, tt.emit)
			}
			if ok && s.Severity != tt.want {
				t.Errorf("severity = %s, want %s", s.Severity, tt.want)
			}
		})
	}
}

func TestEvaluate_BelowComparison(t *testing.T) {
	e := NewThresholdEvaluator()
	key := valueobject.MetricKey("disk_free_percent")
	cfg := mustConfig(t, entity.ThresholdParams{
		MetricKey:          key,
		WarningLevel:       20,
		CriticalLevel:      10,
		Comparison:         valueobject.Below,
		HysteresisAbsolute: 2,
	})

	s, ok := e.EvaluateValue(cfg, 9, valueobject.SeverityNone)
	if !ok || s.Severity != valueobject.SeverityCritical {
		t.Fatalf("expected critical, got %+v (emit=%v)", s, ok)
	}

	// 11 выше критического уровня, но внутри отступа 2
	s, ok = e.EvaluateValue(cfg, 11, valueobject.SeverityCritical)
	if !ok || s.Severity != valueobject.SeverityCritical {
		t.Fatalf("expected held critical, got %+v", s)
	}

	// 12 пересекает отступ и попадает в warning
	s, ok = e.EvaluateValue(cfg, 12, valueobject.SeverityCritical)
	if !ok || s.Severity != valueobject.SeverityWarning || !s.Breached {
		t.Fatalf("expected de-escalation to warning, got %+v", s)
	}

	s, ok = e.EvaluateValue(cfg, 30, valueobject.SeverityWarning)
	if !ok || s.Breached {
		t.Fatalf("expected clear, got %+v", s)
	}
}

func TestEvaluate_SkipsCategoricalAndUnconfigured(t *testing.T) {
	e := NewThresholdEvaluator()
	status, _ := valueobject.NewCategoricalReading("down")
	snapshot := valueobject.NewMetricSnapshot("probe", time.Unix(1000, 0), map[valueobject.MetricKey]valueobject.Reading{
		"adapter_status:eth0": status,
		"unconfigured":        valueobject.MustNumeric(1000),
	})

	signals := e.Evaluate(snapshot, nil, nil)
	if len(signals) != 0 {
		t.Fatalf("expected no signals, got %+v", signals)
	}
}

func TestEvaluate_ClearsWhenConfigRemoved(t *testing.T) {
	e := NewThresholdEvaluator()
	key := valueobject.MetricKey("cpu_usage")
	held := map[valueobject.MetricKey]valueobject.Severity{key: valueobject.SeverityWarning}

	signals := e.Evaluate(snapshotOf(key, 99), nil, held)
	if len(signals) != 1 || signals[0].Breached {
		t.Fatalf("expected a single clear signal, got %+v", signals)
	}
}

func TestEvaluate_Escalation(t *testing.T) {
	e := NewThresholdEvaluator()
	key := valueobject.MetricKey("cpu_usage")
	cfg := mustConfig(t, entity.ThresholdParams{
		MetricKey:     key,
		WarningLevel:  80,
		CriticalLevel: 90,
		HysteresisPct: 5,
	})

	s, ok := e.EvaluateValue(cfg, 95, valueobject.SeverityWarning)
	if !ok || s.Severity != valueobject.SeverityCritical {
		t.Fatalf("expected escalation to critical, got %+v", s)
	}
}

func TestEvaluate_HoldCarriesRawSeverity(t *testing.T) {
	e := NewThresholdEvaluator()
	cfg := mustConfig(t, entity.ThresholdParams{
		MetricKey:          "cpu_usage",
		WarningLevel:       80,
		CriticalLevel:      90,
		HysteresisAbsolute: 15,
	})

	tests := []struct {
		name  string
		value float64
		raw   valueobject.Severity
	}{
		{"warning inside margin", 85, valueobject.SeverityWarning},
		{"below all levels inside margin", 79, valueobject.SeverityNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := e.EvaluateValue(cfg, tt.value, valueobject.SeverityCritical)
			if !ok || s.Severity != valueobject.SeverityCritical || !s.IsHold() {
				t.Fatalf("expected held critical, got %+v (emit=%v)", s, ok)
			}
			if s.Raw != tt.raw {
				t.Errorf("Raw = %s, want %s", s.Raw, tt.raw)
			}
		})
	}

	s, _ := e.EvaluateValue(cfg, 95, valueobject.SeverityCritical)
	if s.IsHold() {
		t.Errorf("direct breach must not be a hold: %+v", s)
	}
}
