package valueobject

import "time"

// Sample значение метрики с временем и источником
type Sample struct {
	SourceID  string
	Timestamp time.Time
	Reading   Reading
}

// IsStale проверяет, что значение старше maxAge на момент now
func (s Sample) IsStale(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(s.Timestamp) > maxAge
}
