package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// MetricValidator предоставляет сервисы для валидации snapshot'ов (Domain Service)
type MetricValidator struct {
	maxClockSkew time.Duration
}

// NewMetricValidator создает новый MetricValidator
// maxClockSkew ограничивает, насколько время snapshot'а может опережать часы процесса
func NewMetricValidator(maxClockSkew time.Duration) *MetricValidator {
	return &MetricValidator{maxClockSkew: maxClockSkew}
}

// Validate выполняет полную валидацию snapshot'а
func (v *MetricValidator) Validate(snapshot valueobject.MetricSnapshot, now time.Time) error {
	if strings.TrimSpace(snapshot.SourceID()) == "" {
		return errors.New("source id cannot be empty")
	}

	// Проверка времени
	if snapshot.Timestamp().IsZero() {
		return errors.New("snapshot timestamp cannot be zero")
	}

	// Проверка, что snapshot не из будущего
	if snapshot.Timestamp().After(now.Add(v.maxClockSkew)) {
		return fmt.Errorf("snapshot timestamp %s is in the future", snapshot.Timestamp().Format(time.RFC3339))
	}

	for _, key := range snapshot.Keys() {
		if err := key.Validate(); err != nil {
			return err
		}
		if strings.HasPrefix(string(key), valueobject.SourceUpPrefix) {
			return fmt.Errorf("metric key %q uses a reserved prefix", key)
		}
	}

	return nil
}

// IsReasonable проверяет, находится ли значение в разумных пределах для ключа
// Процентные метрики должны быть от 0 до 100
func (v *MetricValidator) IsReasonable(key valueobject.MetricKey, reading valueobject.Reading) bool {
	if !reading.IsNumeric() {
		return true
	}
	if strings.HasSuffix(string(key), "_percent") || strings.HasSuffix(string(key), "_usage") {
		val := reading.Value()
		return val >= 0 && val <= 100
	}
	return true
}
