package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/alerting"
	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// ManageAlertsUseCase чтение и ручное закрытие alert'ов
type ManageAlertsUseCase struct {
	alerts *alerting.Manager
	logger *logger.Logger
}

// NewManageAlertsUseCase создает новый use case
func NewManageAlertsUseCase(alerts *alerting.Manager, logger *logger.Logger) *ManageAlertsUseCase {
	return &ManageAlertsUseCase{
		alerts: alerts,
		logger: logger,
	}
}

// ListOpen возвращает открытые alert'ы
func (uc *ManageAlertsUseCase) ListOpen() []*dto.AlertDTO {
	return dto.ToAlertDTOs(uc.alerts.OpenAlerts())
}

// ListResolved возвращает закрытые alert'ы
// Без интервала возвращаются недавние из памяти
func (uc *ManageAlertsUseCase) ListResolved(ctx context.Context, from, to time.Time) ([]*dto.AlertDTO, error) {
	if from.IsZero() && to.IsZero() {
		return dto.ToAlertDTOs(uc.alerts.RecentResolved()), nil
	}
	if to.IsZero() {
		to = time.Now()
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("from must be before to: %w", errs.ErrInvalidTimeRange)
	}

	alerts, err := uc.alerts.ResolvedBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolved alerts: %w", err)
	}
	return dto.ToAlertDTOs(alerts), nil
}

// Get возвращает alert по идентификатору
func (uc *ManageAlertsUseCase) Get(ctx context.Context, id string) (*dto.AlertDTO, error) {
	alert, err := uc.alerts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.FromAlert(alert), nil
}

// Resolve закрывает alert вручную от имени actor
func (uc *ManageAlertsUseCase) Resolve(ctx context.Context, id string, req dto.ResolveAlertRequest, actor string) (*dto.AlertDTO, error) {
	alert, err := uc.alerts.ResolveManually(ctx, id, req.Resolution, actor)
	if err != nil {
		return nil, err
	}
	return dto.FromAlert(alert), nil
}
