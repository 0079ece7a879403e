package dto

import (
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
)

// HistoryBucketDTO представляет бакет истории
// Для пустого бакета min/max/avg равны null
type HistoryBucketDTO struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int64     `json:"count"`
	Min   *float64  `json:"min"`
	Max   *float64  `json:"max"`
	Avg   *float64  `json:"avg"`
	Final bool      `json:"final"`
}

// FromHistoryBucket конвертирует бакет в DTO
func FromHistoryBucket(b entity.HistoryBucket) HistoryBucketDTO {
	d := HistoryBucketDTO{
		Start: b.Start,
		End:   b.End(),
		Count: b.Count,
		Final: b.Final,
	}
	if avg, ok := b.Avg(); ok {
		minV, maxV := b.Min, b.Max
		d.Min = &minV
		d.Max = &maxV
		d.Avg = &avg
	}
	return d
}

// MetricHistoryDTO представляет историю метрики с агрегатами
type MetricHistoryDTO struct {
	Key            string             `json:"key"`
	From           time.Time          `json:"from"`
	To             time.Time          `json:"to"`
	BucketDuration string             `json:"bucket_duration"`
	Buckets        []HistoryBucketDTO `json:"buckets"`
	Cached         bool               `json:"cached"`
}

// NewMetricHistoryDTO собирает DTO истории
func NewMetricHistoryDTO(key string, from, to time.Time, bucket time.Duration, buckets []entity.HistoryBucket) *MetricHistoryDTO {
	d := &MetricHistoryDTO{
		Key:            key,
		From:           from,
		To:             to,
		BucketDuration: bucket.String(),
		Buckets:        make([]HistoryBucketDTO, len(buckets)),
	}
	for i, b := range buckets {
		d.Buckets[i] = FromHistoryBucket(b)
	}
	return d
}

// AllFinal проверяет, что все бакеты закрыты
func (d *MetricHistoryDTO) AllFinal() bool {
	for _, b := range d.Buckets {
		if !b.Final {
			return false
		}
	}
	return true
}
