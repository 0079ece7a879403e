package dto

import (
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// ThresholdDTO представляет конфигурацию порогов
type ThresholdDTO struct {
	MetricKey          string    `json:"metric_key"`
	InfoLevel          *float64  `json:"info_level,omitempty"`
	WarningLevel       float64   `json:"warning_level"`
	CriticalLevel      float64   `json:"critical_level"`
	Comparison         string    `json:"comparison"`
	HysteresisPct      float64   `json:"hysteresis_pct"`
	HysteresisAbsolute float64   `json:"hysteresis_absolute,omitempty"`
	Version            int64     `json:"version"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// FromThreshold конвертирует Domain Entity в DTO
func FromThreshold(c *entity.ThresholdConfig) *ThresholdDTO {
	return &ThresholdDTO{
		MetricKey:          c.MetricKey().String(),
		InfoLevel:          c.InfoLevel(),
		WarningLevel:       c.WarningLevel(),
		CriticalLevel:      c.CriticalLevel(),
		Comparison:         c.Comparison().String(),
		HysteresisPct:      c.HysteresisPct(),
		HysteresisAbsolute: c.HysteresisAbsolute(),
		Version:            c.Version(),
		UpdatedAt:          c.UpdatedAt(),
	}
}

// ToThresholdDTOs конвертирует слайс Entity в слайс DTO
func ToThresholdDTOs(configs []*entity.ThresholdConfig) []*ThresholdDTO {
	dtos := make([]*ThresholdDTO, len(configs))
	for i, c := range configs {
		dtos[i] = FromThreshold(c)
	}
	return dtos
}

// ThresholdRequest тело запроса создания или замены порогов
// ExpectedVersion задает оптимистичную блокировку: 0 означает "ключ еще не настроен"
type ThresholdRequest struct {
	InfoLevel          *float64 `json:"info_level,omitempty"`
	WarningLevel       float64  `json:"warning_level"`
	CriticalLevel      float64  `json:"critical_level"`
	Comparison         string   `json:"comparison"`
	HysteresisPct      float64  `json:"hysteresis_pct"`
	HysteresisAbsolute float64  `json:"hysteresis_absolute"`
	ExpectedVersion    *int64   `json:"expected_version,omitempty"`
}

// ToParams конвертирует запрос в параметры сущности
func (r ThresholdRequest) ToParams(key string) entity.ThresholdParams {
	return entity.ThresholdParams{
		MetricKey:          valueobject.MetricKey(key),
		InfoLevel:          r.InfoLevel,
		WarningLevel:       r.WarningLevel,
		CriticalLevel:      r.CriticalLevel,
		Comparison:         valueobject.Comparison(r.Comparison),
		HysteresisPct:      r.HysteresisPct,
		HysteresisAbsolute: r.HysteresisAbsolute,
	}
}
