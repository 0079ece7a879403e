package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/application/port"
	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// HistoryQuerier источник агрегированной истории
type HistoryQuerier interface {
	Query(ctx context.Context, key valueobject.MetricKey, tr valueobject.TimeRange, bucket time.Duration) ([]entity.HistoryBucket, error)
}

// GetMetricHistoryUseCase возвращает бакеты истории с кешированием закрытых диапазонов
type GetMetricHistoryUseCase struct {
	history HistoryQuerier
	cache   port.Cache
	logger  *logger.Logger
}

// NewGetMetricHistoryUseCase создает новый use case
// cache может быть nil
func NewGetMetricHistoryUseCase(
	history HistoryQuerier,
	cache port.Cache,
	logger *logger.Logger,
) *GetMetricHistoryUseCase {
	return &GetMetricHistoryUseCase{
		history: history,
		cache:   cache,
		logger:  logger,
	}
}

// Execute выполняет запрос истории
// В кеш попадают только ответы, где все бакеты закрыты
func (uc *GetMetricHistoryUseCase) Execute(
	ctx context.Context,
	key valueobject.MetricKey,
	timeRange valueobject.TimeRange,
	bucket time.Duration,
) (*dto.MetricHistoryDTO, error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("invalid metric key: %w", err)
	}

	// Если кеш не настроен, используем стандартный путь
	if uc.cache == nil {
		return uc.query(ctx, key, timeRange, bucket)
	}

	cacheKey := HistoryCacheKey(key, timeRange, bucket)

	var cached dto.MetricHistoryDTO
	err := uc.cache.Get(ctx, cacheKey, &cached)
	if err == nil {
		uc.logger.Debug("Cache hit for metric history", "key", key, "buckets", len(cached.Buckets))
		cached.Cached = true
		return &cached, nil
	}
	if !errors.Is(err, port.ErrCacheMiss) {
		uc.logger.Warn("History cache read failed", "key", key, "error", err.Error())
	}

	history, err := uc.query(ctx, key, timeRange, bucket)
	if err != nil {
		return nil, err
	}

	if history.AllFinal() {
		// Сохраняем в кеш асинхронно, не блокируем ответ
		go func(value dto.MetricHistoryDTO) {
			if err := uc.cache.Set(context.Background(), cacheKey, value); err != nil {
				uc.logger.Warn("Failed to cache metric history", "key", key, "error", err.Error())
			}
		}(*history)
	}

	return history, nil
}

func (uc *GetMetricHistoryUseCase) query(
	ctx context.Context,
	key valueobject.MetricKey,
	timeRange valueobject.TimeRange,
	bucket time.Duration,
) (*dto.MetricHistoryDTO, error) {
	buckets, err := uc.history.Query(ctx, key, timeRange, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to query metric history: %w", err)
	}

	uc.logger.Debug("Fetched metric history", "key", key, "buckets", len(buckets))
	return dto.NewMetricHistoryDTO(key.String(), timeRange.Start(), timeRange.End(), bucket, buckets), nil
}

// HistoryCacheKey ключ кеша для ответа истории
func HistoryCacheKey(key valueobject.MetricKey, timeRange valueobject.TimeRange, bucket time.Duration) string {
	return fmt.Sprintf("metrics:history:%s:%d:%d:%s",
		key, timeRange.Start().Unix(), timeRange.End().Unix(), bucket)
}
