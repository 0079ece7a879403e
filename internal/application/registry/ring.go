package registry

import (
	"sync"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// ring кольцевой буфер фиксированной емкости для одного ключа
// При переполнении самое старое значение перезаписывается
type ring struct {
	mu    sync.RWMutex
	items []valueobject.Sample
	head  int // индекс самого старого элемента
	size  int
}

func newRing(capacity int) *ring {
	return &ring{items: make([]valueobject.Sample, capacity)}
}

func (r *ring) push(s valueobject.Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < len(r.items) {
		r.items[(r.head+r.size)%len(r.items)] = s
		r.size++
		return
	}
	r.items[r.head] = s
	r.head = (r.head + 1) % len(r.items)
}

func (r *ring) latest() (valueobject.Sample, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.size == 0 {
		return valueobject.Sample{}, false
	}
	return r.items[(r.head+r.size-1)%len(r.items)], true
}

// since возвращает значения с Timestamp >= from в порядке поступления
func (r *ring) since(from time.Time) []valueobject.Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]valueobject.Sample, 0, r.size)
	for i := 0; i < r.size; i++ {
		s := r.items[(r.head+i)%len(r.items)]
		if !s.Timestamp.Before(from) {
			result = append(result, s)
		}
	}
	return result
}

func (r *ring) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}
