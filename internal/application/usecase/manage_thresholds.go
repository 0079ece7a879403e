package usecase

import (
	"context"
	"fmt"

	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/application/thresholds"
	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// ManageThresholdsUseCase админские операции над конфигурацией порогов
type ManageThresholdsUseCase struct {
	store  *thresholds.Store
	logger *logger.Logger
}

// NewManageThresholdsUseCase создает новый use case
func NewManageThresholdsUseCase(store *thresholds.Store, logger *logger.Logger) *ManageThresholdsUseCase {
	return &ManageThresholdsUseCase{
		store:  store,
		logger: logger,
	}
}

// List возвращает все конфигурации, отсортированные по ключу
func (uc *ManageThresholdsUseCase) List() []*dto.ThresholdDTO {
	return dto.ToThresholdDTOs(uc.store.List())
}

// Get возвращает конфигурацию ключа
func (uc *ManageThresholdsUseCase) Get(key string) (*dto.ThresholdDTO, error) {
	cfg, ok := uc.store.Get(valueobject.MetricKey(key))
	if !ok {
		return nil, fmt.Errorf("threshold %s: %w", key, errs.ErrThresholdNotFound)
	}
	return dto.FromThreshold(cfg), nil
}

// Put создает или заменяет конфигурацию ключа
// Без expected_version запись безусловная
func (uc *ManageThresholdsUseCase) Put(ctx context.Context, key string, req dto.ThresholdRequest) (*dto.ThresholdDTO, error) {
	cfg, err := entity.NewThresholdConfig(req.ToParams(key))
	if err != nil {
		return nil, err
	}

	expected := int64(thresholds.AnyVersion)
	if req.ExpectedVersion != nil {
		expected = *req.ExpectedVersion
	}

	stored, err := uc.store.Put(ctx, cfg, expected)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Threshold configured",
		"key", key,
		"warning", stored.WarningLevel(),
		"critical", stored.CriticalLevel(),
		"version", stored.Version())
	return dto.FromThreshold(stored), nil
}

// Delete удаляет конфигурацию ключа
func (uc *ManageThresholdsUseCase) Delete(ctx context.Context, key string, expectedVersion *int64) error {
	expected := int64(thresholds.AnyVersion)
	if expectedVersion != nil {
		expected = *expectedVersion
	}

	if err := uc.store.Delete(ctx, valueobject.MetricKey(key), expected); err != nil {
		return err
	}

	uc.logger.Info("Threshold removed", "key", key)
	return nil
}
