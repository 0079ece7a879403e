package repository

import (
	"context"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// ThresholdRepository определяет интерфейс хранилища конфигураций порогов (Port)
type ThresholdRepository interface {
	// SaveThreshold создает или заменяет конфигурацию ключа
	SaveThreshold(ctx context.Context, cfg *entity.ThresholdConfig) error

	// DeleteThreshold удаляет конфигурацию ключа
	DeleteThreshold(ctx context.Context, key valueobject.MetricKey) error

	// LoadThresholds возвращает все конфигурации
	LoadThresholds(ctx context.Context) ([]*entity.ThresholdConfig, error)
}
