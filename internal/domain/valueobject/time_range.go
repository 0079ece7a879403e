package valueobject

import (
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/errs"
)

// TimeRange представляет полуоткрытый временной диапазон [start, end) (Value Object)
// Иммутабельный объект
type TimeRange struct {
	start time.Time
	end   time.Time
}

// NewTimeRange создает новый TimeRange с валидацией
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, errs.ErrInvalidTimeRange
	}

	if !start.Before(end) {
		return TimeRange{}, errs.ErrInvalidTimeRange
	}

	return TimeRange{
		start: start,
		end:   end,
	}, nil
}

// NewTimeRangeFromDuration создает TimeRange длиной duration, заканчивающийся в now
func NewTimeRangeFromDuration(now time.Time, duration time.Duration) (TimeRange, error) {
	if duration <= 0 {
		return TimeRange{}, errs.ErrInvalidTimeRange
	}

	return NewTimeRange(now.Add(-duration), now)
}

// Start возвращает начальное время
func (tr TimeRange) Start() time.Time {
	return tr.start
}

// End возвращает конечное время (не включается)
func (tr TimeRange) End() time.Time {
	return tr.end
}

// Duration возвращает длительность диапазона
func (tr TimeRange) Duration() time.Duration {
	return tr.end.Sub(tr.start)
}

// Contains проверяет, попадает ли указанное время в диапазон
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.start) && t.Before(tr.end)
}

// Overlaps проверяет, пересекаются ли два временных диапазона
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.start.Before(other.end) && other.start.Before(tr.end)
}

// Align расширяет диапазон до границ шага step, отсчитанных от Unix epoch
func (tr TimeRange) Align(step time.Duration) TimeRange {
	start := AlignDown(tr.start, step)
	end := AlignDown(tr.end, step)
	if end.Before(tr.end) {
		end = end.Add(step)
	}
	return TimeRange{start: start, end: end}
}

// AlignDown округляет t вниз до границы шага step, отсчитанной от Unix epoch
func AlignDown(t time.Time, step time.Duration) time.Time {
	if step <= 0 {
		return t
	}
	ns := t.UnixNano()
	mod := ns % int64(step)
	if mod < 0 {
		mod += int64(step)
	}
	return time.Unix(0, ns-mod).In(t.Location())
}
