package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// HistoryRepository keeps closed history buckets in process memory.
type HistoryRepository struct {
	mu      sync.RWMutex
	buckets map[valueobject.MetricKey][]entity.HistoryBucket
}

// NewHistoryRepository creates an empty repository.
func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{buckets: make(map[valueobject.MetricKey][]entity.HistoryBucket)}
}

// SaveHistoryBucket stores a bucket. A bucket with the same key and start
// is merged into the stored one, so a partial bucket written on shutdown
// is completed by the rest of its interval after restart.
func (r *HistoryRepository) SaveHistoryBucket(_ context.Context, bucket entity.HistoryBucket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.buckets[bucket.MetricKey]
	for i := range list {
		if list[i].Start.Equal(bucket.Start) {
			list[i].Merge(bucket)
			return nil
		}
	}
	list = append(list, bucket)
	sort.Slice(list, func(i, j int) bool { return list[i].Start.Before(list[j].Start) })
	r.buckets[bucket.MetricKey] = list
	return nil
}

func (r *HistoryRepository) LoadBuckets(_ context.Context, key valueobject.MetricKey, tr valueobject.TimeRange) ([]entity.HistoryBucket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []entity.HistoryBucket
	for _, b := range r.buckets[key] {
		if tr.Contains(b.Start) {
			result = append(result, b)
		}
	}
	return result, nil
}
