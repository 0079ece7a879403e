package service

import (
	"sort"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// MetricAggregator объединяет бакеты базового разрешения в более крупные (Domain Service)
// Содержит бизнес-логику, которая не принадлежит одной конкретной сущности
type MetricAggregator struct{}

// NewMetricAggregator создает новый MetricAggregator
func NewMetricAggregator() *MetricAggregator {
	return &MetricAggregator{}
}

// ValidateBucketDuration проверяет, что bucket кратен базовому разрешению
func (a *MetricAggregator) ValidateBucketDuration(bucket, resolution time.Duration) error {
	if bucket <= 0 || resolution <= 0 || bucket%resolution != 0 {
		return errs.ErrInvalidBucketDuration
	}
	return nil
}

// MergeRange собирает бакеты длины bucket, покрывающие выровненный диапазон tr
// Бакеты без данных возвращаются с Count == 0. Результат Final только если
// все входящие базовые бакеты закрыты и интервал целиком раньше openFrom.
func (a *MetricAggregator) MergeRange(
	key valueobject.MetricKey,
	base []entity.HistoryBucket,
	tr valueobject.TimeRange,
	bucket time.Duration,
	openFrom time.Time,
) []entity.HistoryBucket {
	aligned := tr.Align(bucket)
	n := int(aligned.Duration() / bucket)
	result := make([]entity.HistoryBucket, n)
	for i := range result {
		result[i] = entity.NewHistoryBucket(key, aligned.Start().Add(time.Duration(i)*bucket), bucket)
		result[i].Final = !result[i].End().After(openFrom)
	}

	for _, b := range base {
		if b.Start.Before(aligned.Start()) || !b.Start.Before(aligned.End()) {
			continue
		}
		idx := int(b.Start.Sub(aligned.Start()) / bucket)
		result[idx].Merge(b)
		if !b.Final {
			result[idx].Final = false
		}
	}

	return result
}

// BucketSummary сводка по набору бакетов
type BucketSummary struct {
	Count int64
	Min   float64
	Max   float64
	Avg   float64
}

// Summarize сворачивает бакеты в одну сводку
func (a *MetricAggregator) Summarize(buckets []entity.HistoryBucket) (BucketSummary, bool) {
	var total entity.HistoryBucket
	for _, b := range buckets {
		total.Merge(b)
	}
	avg, ok := total.Avg()
	if !ok {
		return BucketSummary{}, false
	}
	return BucketSummary{
		Count: total.Count,
		Min:   total.Min,
		Max:   total.Max,
		Avg:   avg,
	}, true
}

// SortByStart сортирует бакеты по времени начала
func (a *MetricAggregator) SortByStart(buckets []entity.HistoryBucket) []entity.HistoryBucket {
	sorted := make([]entity.HistoryBucket, len(buckets))
	copy(sorted, buckets)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	return sorted
}
