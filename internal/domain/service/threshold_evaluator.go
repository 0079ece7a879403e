package service

import (
	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// ThresholdEvaluator сравнивает snapshot с порогами (Domain Service)
// Чистая функция: результат зависит только от аргументов
type ThresholdEvaluator struct{}

// NewThresholdEvaluator создает новый ThresholdEvaluator
func NewThresholdEvaluator() *ThresholdEvaluator {
	return &ThresholdEvaluator{}
}

// Evaluate возвращает не более одного сигнала на ключ метрики
//
// held содержит уровни открытых alert'ов. Пока значение не пересекло уровень
// удержания с учетом гистерезиса, повторно выдается удерживаемый уровень.
// Категориальные значения и ключи без конфигурации сигналов не дают, кроме
// случая, когда конфигурацию удалили при открытом alert'е: тогда выдается Clear.
func (e *ThresholdEvaluator) Evaluate(
	snapshot valueobject.MetricSnapshot,
	configs map[valueobject.MetricKey]*entity.ThresholdConfig,
	held map[valueobject.MetricKey]valueobject.Severity,
) []valueobject.Signal {
	var signals []valueobject.Signal

	for _, key := range snapshot.Keys() {
		reading, _ := snapshot.Get(key)
		if !reading.IsNumeric() {
			continue
		}
		heldSeverity := held[key]

		cfg, ok := configs[key]
		if !ok || cfg == nil {
			if !heldSeverity.IsNone() {
				signals = append(signals, valueobject.Clear(key, reading.Value()))
			}
			continue
		}

		if signal, emit := e.evaluateOne(cfg, reading.Value(), heldSeverity); emit {
			signals = append(signals, signal)
		}
	}

	return signals
}

// EvaluateValue оценивает одно значение
func (e *ThresholdEvaluator) EvaluateValue(
	cfg *entity.ThresholdConfig,
	value float64,
	held valueobject.Severity,
) (valueobject.Signal, bool) {
	return e.evaluateOne(cfg, value, held)
}

func (e *ThresholdEvaluator) evaluateOne(
	cfg *entity.ThresholdConfig,
	value float64,
	held valueobject.Severity,
) (valueobject.Signal, bool) {
	key := cfg.MetricKey()
	raw := cfg.RawSeverity(value)

	// Эскалация или тот же уровень
	if raw.AtLeast(held) && !raw.IsNone() {
		return valueobject.Breach(key, raw, value), true
	}

	if held.IsNone() {
		// Нет нарушения и нечего закрывать
		return valueobject.Signal{}, false
	}

	// raw ниже удерживаемого уровня: держим, пока не пересечен отступ гистерезиса
	if _, configured := cfg.Level(held); configured && !cfg.Cleared(value, held) {
		return valueobject.Hold(key, held, raw, value), true
	}

	if raw.IsNone() {
		return valueobject.Clear(key, value), true
	}
	return valueobject.Breach(key, raw, value), true
}
