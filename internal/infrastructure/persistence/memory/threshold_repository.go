package memory

import (
	"context"
	"sync"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// ThresholdRepository keeps threshold configs in process memory.
type ThresholdRepository struct {
	mu      sync.RWMutex
	configs map[valueobject.MetricKey]*entity.ThresholdConfig
}

// NewThresholdRepository creates an empty repository.
func NewThresholdRepository() *ThresholdRepository {
	return &ThresholdRepository{configs: make(map[valueobject.MetricKey]*entity.ThresholdConfig)}
}

func (r *ThresholdRepository) SaveThreshold(_ context.Context, cfg *entity.ThresholdConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.MetricKey()] = cfg
	return nil
}

func (r *ThresholdRepository) DeleteThreshold(_ context.Context, key valueobject.MetricKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.configs, key)
	return nil
}

func (r *ThresholdRepository) LoadThresholds(_ context.Context) ([]*entity.ThresholdConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entity.ThresholdConfig, 0, len(r.configs))
	for _, c := range r.configs {
		result = append(result, c)
	}
	return result, nil
}
