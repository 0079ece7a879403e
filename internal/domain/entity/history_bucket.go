package entity

import (
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// HistoryBucket агрегат значений метрики за интервал [Start, Start+Duration)
// Пустой бакет (Count == 0) не имеет min/max/avg
type HistoryBucket struct {
	MetricKey valueobject.MetricKey
	Start     time.Time
	Duration  time.Duration
	Min       float64
	Max       float64
	Sum       float64
	Count     int64
	// Final false означает, что бакет еще принимает значения
	Final bool
}

// NewHistoryBucket создает пустой открытый бакет
func NewHistoryBucket(key valueobject.MetricKey, start time.Time, duration time.Duration) HistoryBucket {
	return HistoryBucket{
		MetricKey: key,
		Start:     start,
		Duration:  duration,
	}
}

// End возвращает конец интервала (не включается)
func (b HistoryBucket) End() time.Time {
	return b.Start.Add(b.Duration)
}

// Contains проверяет, попадает ли t в интервал бакета
func (b HistoryBucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End())
}

// IsEmpty проверяет отсутствие значений
func (b HistoryBucket) IsEmpty() bool {
	return b.Count == 0
}

// Avg возвращает среднее значение
func (b HistoryBucket) Avg() (float64, bool) {
	if b.Count == 0 {
		return 0, false
	}
	return b.Sum / float64(b.Count), true
}

// Add добавляет значение в бакет за O(1)
func (b *HistoryBucket) Add(value float64) {
	if b.Count == 0 {
		b.Min = value
		b.Max = value
	} else {
		if value < b.Min {
			b.Min = value
		}
		if value > b.Max {
			b.Max = value
		}
	}
	b.Sum += value
	b.Count++
}

// Merge добавляет агрегаты другого бакета
// Результат точен: min/max/sum/count объединяются без потерь
func (b *HistoryBucket) Merge(other HistoryBucket) {
	if other.Count == 0 {
		return
	}
	if b.Count == 0 {
		b.Min = other.Min
		b.Max = other.Max
	} else {
		if other.Min < b.Min {
			b.Min = other.Min
		}
		if other.Max > b.Max {
			b.Max = other.Max
		}
	}
	b.Sum += other.Sum
	b.Count += other.Count
}
