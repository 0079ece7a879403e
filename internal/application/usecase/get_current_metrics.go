package usecase

import (
	"fmt"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/application/registry"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// MaxRecentWindow ограничивает окно последних значений
const MaxRecentWindow = 24 * time.Hour

// GetCurrentMetricsUseCase возвращает текущие значения и недавние окна из реестра
type GetCurrentMetricsUseCase struct {
	registry *registry.Registry
	logger   *logger.Logger
}

// NewGetCurrentMetricsUseCase создает новый use case
func NewGetCurrentMetricsUseCase(
	registry *registry.Registry,
	logger *logger.Logger,
) *GetCurrentMetricsUseCase {
	return &GetCurrentMetricsUseCase{
		registry: registry,
		logger:   logger,
	}
}

// Execute возвращает последнее значение каждого известного ключа
func (uc *GetCurrentMetricsUseCase) Execute() *dto.CurrentMetricsDTO {
	keys := uc.registry.Keys()
	result := &dto.CurrentMetricsDTO{
		Timestamp: time.Now().UTC(),
		Metrics:   make([]*dto.SampleDTO, 0, len(keys)),
	}

	for _, key := range keys {
		if sample, ok := uc.registry.CurrentValue(key); ok {
			result.Metrics = append(result.Metrics, dto.FromSample(key, sample))
		}
	}

	uc.logger.Debug("Fetched current metrics", "count", len(result.Metrics))
	return result
}

// ExecuteWindow возвращает значения ключа за последние window
func (uc *GetCurrentMetricsUseCase) ExecuteWindow(key valueobject.MetricKey, window time.Duration) (*dto.MetricWindowDTO, error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("invalid metric key: %w", err)
	}
	if window <= 0 || window > MaxRecentWindow {
		return nil, fmt.Errorf("window must be in (0, %s]: %w", MaxRecentWindow, errs.ErrInvalidTimeRange)
	}

	samples := uc.registry.RecentWindow(key, window)
	return &dto.MetricWindowDTO{
		Key:     key.String(),
		Window:  window.String(),
		Samples: dto.ToSampleDTOs(key, samples),
	}, nil
}
