package dto

import (
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
)

// AlertDTO представляет alert для API и живой ленты
type AlertDTO struct {
	ID         string     `json:"id"`
	MetricKey  string     `json:"metric_key"`
	Severity   string     `json:"severity"`
	Status     string     `json:"status"`
	LastValue  float64    `json:"last_value"`
	OpenedAt   time.Time  `json:"opened_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	Resolution string     `json:"resolution,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
}

// FromAlert конвертирует Domain Entity в DTO
func FromAlert(a *entity.Alert) *AlertDTO {
	return &AlertDTO{
		ID:         a.ID(),
		MetricKey:  a.MetricKey().String(),
		Severity:   string(a.Severity()),
		Status:     string(a.Status()),
		LastValue:  a.LastValue(),
		OpenedAt:   a.OpenedAt(),
		UpdatedAt:  a.UpdatedAt(),
		ResolvedAt: a.ResolvedAt(),
		Resolution: a.Resolution(),
		ResolvedBy: a.ResolvedBy(),
	}
}

// ToAlertDTOs конвертирует слайс Entity в слайс DTO
func ToAlertDTOs(alerts []*entity.Alert) []*AlertDTO {
	dtos := make([]*AlertDTO, len(alerts))
	for i, a := range alerts {
		dtos[i] = FromAlert(a)
	}
	return dtos
}

// ResolveAlertRequest тело запроса ручного закрытия
type ResolveAlertRequest struct {
	Resolution string `json:"resolution"`
}
