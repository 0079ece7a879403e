package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// DefaultCapacity емкость буфера одного ключа по умолчанию
const DefaultCapacity = 500

// Observer получает каждое принятое значение после записи в буфер
// Вызывается синхронно из Ingest и не должен блокировать
type Observer interface {
	OnIngest(key valueobject.MetricKey, sample valueobject.Sample)
}

// ObserverFunc адаптер функции к Observer
type ObserverFunc func(key valueobject.MetricKey, sample valueobject.Sample)

// OnIngest вызывает f(key, sample)
func (f ObserverFunc) OnIngest(key valueobject.MetricKey, sample valueobject.Sample) {
	f(key, sample)
}

// Registry хранит последние значения метрик в памяти
// Буферы создаются лениво при первом значении ключа. Индекс ключей защищен
// отдельной RW-блокировкой, каждый буфер имеет собственную блокировку.
type Registry struct {
	capacity int
	clock    func() time.Time

	mu      sync.RWMutex
	buffers map[valueobject.MetricKey]*ring

	observersMu sync.RWMutex
	observers   []Observer
}

// New создает реестр с емкостью capacity на ключ
func New(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		capacity: capacity,
		clock:    time.Now,
		buffers:  make(map[valueobject.MetricKey]*ring),
	}
}

// WithClock подменяет источник времени (для тестов)
func (r *Registry) WithClock(clock func() time.Time) *Registry {
	r.clock = clock
	return r
}

// AddObserver подписывает наблюдателя на новые значения
func (r *Registry) AddObserver(o Observer) {
	r.observersMu.Lock()
	defer r.observersMu.Unlock()
	r.observers = append(r.observers, o)
}

// Ingest записывает все значения snapshot'а
func (r *Registry) Ingest(snapshot valueobject.MetricSnapshot) {
	r.observersMu.RLock()
	observers := r.observers
	r.observersMu.RUnlock()

	for key, reading := range snapshot.Readings() {
		sample := valueobject.Sample{
			SourceID:  snapshot.SourceID(),
			Timestamp: snapshot.Timestamp(),
			Reading:   reading,
		}
		r.buffer(key).push(sample)

		for _, o := range observers {
			o.OnIngest(key, sample)
		}
	}
}

// CurrentValue возвращает последнее значение ключа
func (r *Registry) CurrentValue(key valueobject.MetricKey) (valueobject.Sample, bool) {
	buf := r.lookup(key)
	if buf == nil {
		return valueobject.Sample{}, false
	}
	return buf.latest()
}

// RecentWindow возвращает значения ключа за последние d
func (r *Registry) RecentWindow(key valueobject.MetricKey, d time.Duration) []valueobject.Sample {
	buf := r.lookup(key)
	if buf == nil {
		return nil
	}
	return buf.since(r.clock().Add(-d))
}

// Keys возвращает отсортированный список известных ключей
func (r *Registry) Keys() []valueobject.MetricKey {
	r.mu.RLock()
	keys := make([]valueobject.MetricKey, 0, len(r.buffers))
	for k := range r.buffers {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Latest возвращает последние значения всех ключей
// Значения старше maxAge пропускаются (maxAge <= 0 отключает фильтр)
func (r *Registry) Latest(maxAge time.Duration) map[valueobject.MetricKey]valueobject.Sample {
	now := r.clock()

	r.mu.RLock()
	buffers := make(map[valueobject.MetricKey]*ring, len(r.buffers))
	for k, b := range r.buffers {
		buffers[k] = b
	}
	r.mu.RUnlock()

	result := make(map[valueobject.MetricKey]valueobject.Sample, len(buffers))
	for k, b := range buffers {
		s, ok := b.latest()
		if !ok || s.IsStale(now, maxAge) {
			continue
		}
		result[k] = s
	}
	return result
}

// Len возвращает число значений в буфере ключа
func (r *Registry) Len(key valueobject.MetricKey) int {
	buf := r.lookup(key)
	if buf == nil {
		return 0
	}
	return buf.len()
}

func (r *Registry) lookup(key valueobject.MetricKey) *ring {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buffers[key]
}

func (r *Registry) buffer(key valueobject.MetricKey) *ring {
	if buf := r.lookup(key); buf != nil {
		return buf
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if buf, ok := r.buffers[key]; ok {
		return buf
	}
	buf := newRing(r.capacity)
	r.buffers[key] = buf
	return buf
}
