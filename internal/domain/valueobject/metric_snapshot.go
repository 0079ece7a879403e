package valueobject

import (
	"sort"
	"time"
)

// MetricSnapshot набор значений одного источника на момент времени (Value Object)
// Иммутабелен после создания
type MetricSnapshot struct {
	sourceID  string
	timestamp time.Time
	readings  map[MetricKey]Reading
}

// NewMetricSnapshot создает snapshot, копируя переданные значения
func NewMetricSnapshot(sourceID string, timestamp time.Time, readings map[MetricKey]Reading) MetricSnapshot {
	copied := make(map[MetricKey]Reading, len(readings))
	for k, v := range readings {
		copied[k] = v
	}
	return MetricSnapshot{
		sourceID:  sourceID,
		timestamp: timestamp,
		readings:  copied,
	}
}

// SourceID возвращает идентификатор источника
func (s MetricSnapshot) SourceID() string {
	return s.sourceID
}

// Timestamp возвращает время снятия snapshot'а
func (s MetricSnapshot) Timestamp() time.Time {
	return s.timestamp
}

// Get возвращает значение по ключу
func (s MetricSnapshot) Get(key MetricKey) (Reading, bool) {
	r, ok := s.readings[key]
	return r, ok
}

// Readings возвращает копию значений
func (s MetricSnapshot) Readings() map[MetricKey]Reading {
	result := make(map[MetricKey]Reading, len(s.readings))
	for k, v := range s.readings {
		result[k] = v
	}
	return result
}

// Keys возвращает отсортированный список ключей
func (s MetricSnapshot) Keys() []MetricKey {
	keys := make([]MetricKey, 0, len(s.readings))
	for k := range s.readings {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Len возвращает количество значений
func (s MetricSnapshot) Len() int {
	return len(s.readings)
}

// IsEmpty проверяет отсутствие значений
func (s MetricSnapshot) IsEmpty() bool {
	return len(s.readings) == 0
}
