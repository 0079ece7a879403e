package dto

import (
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// SampleDTO представляет значение метрики для передачи между слоями
// Для категориальных значений заполнен Label, для числовых Value
type SampleDTO struct {
	Key       string    `json:"key"`
	Value     *float64  `json:"value,omitempty"`
	Label     string    `json:"label,omitempty"`
	SourceID  string    `json:"source_id"`
	Timestamp time.Time `json:"timestamp"`
}

// FromSample конвертирует Sample в DTO
func FromSample(key valueobject.MetricKey, s valueobject.Sample) *SampleDTO {
	d := &SampleDTO{
		Key:       key.String(),
		SourceID:  s.SourceID,
		Timestamp: s.Timestamp,
	}
	setReading(s.Reading, &d.Value, &d.Label)
	return d
}

// ToSampleDTOs конвертирует слайс Sample в слайс DTO
func ToSampleDTOs(key valueobject.MetricKey, samples []valueobject.Sample) []*SampleDTO {
	dtos := make([]*SampleDTO, len(samples))
	for i, s := range samples {
		dtos[i] = FromSample(key, s)
	}
	return dtos
}

// MetricWindowDTO представляет последние значения одной метрики
type MetricWindowDTO struct {
	Key     string       `json:"key"`
	Window  string       `json:"window"`
	Samples []*SampleDTO `json:"samples"`
}

// CurrentMetricsDTO представляет текущие значения всех метрик
type CurrentMetricsDTO struct {
	Timestamp time.Time    `json:"timestamp"`
	Metrics   []*SampleDTO `json:"metrics"`
}

func setReading(r valueobject.Reading, value **float64, label *string) {
	if r.IsNumeric() {
		v := r.Value()
		*value = &v
		return
	}
	*label = r.Label()
}
