package entity

import (
	"math"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// ThresholdConfig задает пороги одной метрики
// Экземпляр не меняется после создания: новая версия создается через WithVersion
type ThresholdConfig struct {
	metricKey          valueobject.MetricKey
	infoLevel          *float64
	warningLevel       float64
	criticalLevel      float64
	comparison         valueobject.Comparison
	hysteresisPct      float64
	hysteresisAbsolute float64
	version            int64
	updatedAt          time.Time
}

// ThresholdParams входные параметры конфигурации порогов
type ThresholdParams struct {
	MetricKey          valueobject.MetricKey
	InfoLevel          *float64
	WarningLevel       float64
	CriticalLevel      float64
	Comparison         valueobject.Comparison
	HysteresisPct      float64
	HysteresisAbsolute float64
}

// NewThresholdConfig создает конфигурацию с валидацией (Factory Method)
func NewThresholdConfig(p ThresholdParams) (*ThresholdConfig, error) {
	if err := p.MetricKey.Validate(); err != nil {
		return nil, err
	}
	if p.Comparison == "" {
		p.Comparison = valueobject.Above
	}
	if err := p.Comparison.Validate(); err != nil {
		return nil, err
	}
	if !finite(p.WarningLevel) || !finite(p.CriticalLevel) {
		return nil, errs.ConfigInvalid("%s: levels must be finite numbers", p.MetricKey)
	}
	if !p.Comparison.MoreSevere(p.CriticalLevel, p.WarningLevel) {
		return nil, errs.ConfigInvalid("%s: critical level %v must be more severe than warning level %v (comparison %s)",
			p.MetricKey, p.CriticalLevel, p.WarningLevel, p.Comparison)
	}
	if p.InfoLevel != nil {
		if !finite(*p.InfoLevel) {
			return nil, errs.ConfigInvalid("%s: info level must be a finite number", p.MetricKey)
		}
		if !p.Comparison.MoreSevere(p.WarningLevel, *p.InfoLevel) {
			return nil, errs.ConfigInvalid("%s: warning level %v must be more severe than info level %v (comparison %s)",
				p.MetricKey, p.WarningLevel, *p.InfoLevel, p.Comparison)
		}
	}
	if p.HysteresisPct < 0 || p.HysteresisPct >= 100 || !finite(p.HysteresisPct) {
		return nil, errs.ConfigInvalid("%s: hysteresis percent must be in [0, 100)", p.MetricKey)
	}
	if p.HysteresisAbsolute < 0 || !finite(p.HysteresisAbsolute) {
		return nil, errs.ConfigInvalid("%s: hysteresis absolute must be non-negative", p.MetricKey)
	}

	var info *float64
	if p.InfoLevel != nil {
		v := *p.InfoLevel
		info = &v
	}

	return &ThresholdConfig{
		metricKey:          p.MetricKey,
		infoLevel:          info,
		warningLevel:       p.WarningLevel,
		criticalLevel:      p.CriticalLevel,
		comparison:         p.Comparison,
		hysteresisPct:      p.HysteresisPct,
		hysteresisAbsolute: p.HysteresisAbsolute,
	}, nil
}

// ReconstructThresholdConfig восстанавливает конфигурацию из хранилища (для Repository)
func ReconstructThresholdConfig(p ThresholdParams, version int64, updatedAt time.Time) (*ThresholdConfig, error) {
	cfg, err := NewThresholdConfig(p)
	if err != nil {
		return nil, err
	}
	cfg.version = version
	cfg.updatedAt = updatedAt
	return cfg, nil
}

// MetricKey возвращает ключ метрики
func (c *ThresholdConfig) MetricKey() valueobject.MetricKey {
	return c.metricKey
}

// InfoLevel возвращает уровень info (nil если не задан)
func (c *ThresholdConfig) InfoLevel() *float64 {
	if c.infoLevel == nil {
		return nil
	}
	v := *c.infoLevel
	return &v
}

// WarningLevel возвращает уровень warning
func (c *ThresholdConfig) WarningLevel() float64 {
	return c.warningLevel
}

// CriticalLevel возвращает уровень critical
func (c *ThresholdConfig) CriticalLevel() float64 {
	return c.criticalLevel
}

// Comparison возвращает направление сравнения
func (c *ThresholdConfig) Comparison() valueobject.Comparison {
	return c.comparison
}

// HysteresisPct возвращает гистерезис в процентах от уровня
func (c *ThresholdConfig) HysteresisPct() float64 {
	return c.hysteresisPct
}

// HysteresisAbsolute возвращает абсолютный гистерезис
func (c *ThresholdConfig) HysteresisAbsolute() float64 {
	return c.hysteresisAbsolute
}

// Version возвращает версию конфигурации
func (c *ThresholdConfig) Version() int64 {
	return c.version
}

// UpdatedAt возвращает время последнего изменения
func (c *ThresholdConfig) UpdatedAt() time.Time {
	return c.updatedAt
}

// Params возвращает параметры для сериализации
func (c *ThresholdConfig) Params() ThresholdParams {
	return ThresholdParams{
		MetricKey:          c.metricKey,
		InfoLevel:          c.InfoLevel(),
		WarningLevel:       c.warningLevel,
		CriticalLevel:      c.criticalLevel,
		Comparison:         c.comparison,
		HysteresisPct:      c.hysteresisPct,
		HysteresisAbsolute: c.hysteresisAbsolute,
	}
}

// WithVersion возвращает копию с новой версией
func (c *ThresholdConfig) WithVersion(version int64, at time.Time) *ThresholdConfig {
	cp := *c
	cp.infoLevel = c.InfoLevel()
	cp.version = version
	cp.updatedAt = at
	return &cp
}

// SameSettings сравнивает пороги без учета версии
func (c *ThresholdConfig) SameSettings(other *ThresholdConfig) bool {
	if other == nil {
		return false
	}
	if (c.infoLevel == nil) != (other.infoLevel == nil) {
		return false
	}
	if c.infoLevel != nil && *c.infoLevel != *other.infoLevel {
		return false
	}
	return c.metricKey == other.metricKey &&
		c.warningLevel == other.warningLevel &&
		c.criticalLevel == other.criticalLevel &&
		c.comparison == other.comparison &&
		c.hysteresisPct == other.hysteresisPct &&
		c.hysteresisAbsolute == other.hysteresisAbsolute
}

// Domain Methods (бизнес-логика)

// Level возвращает уровень для severity
func (c *ThresholdConfig) Level(severity valueobject.Severity) (float64, bool) {
	switch severity {
	case valueobject.SeverityCritical:
		return c.criticalLevel, true
	case valueobject.SeverityWarning:
		return c.warningLevel, true
	case valueobject.SeverityInfo:
		if c.infoLevel != nil {
			return *c.infoLevel, true
		}
	}
	return 0, false
}

// Margin возвращает отступ гистерезиса для уровня severity
// Абсолютный отступ имеет приоритет над процентным
func (c *ThresholdConfig) Margin(severity valueobject.Severity) float64 {
	if c.hysteresisAbsolute > 0 {
		return c.hysteresisAbsolute
	}
	level, ok := c.Level(severity)
	if !ok {
		return 0
	}
	return math.Abs(level) * c.hysteresisPct / 100
}

// RawSeverity возвращает наивысший нарушенный уровень без учета гистерезиса
func (c *ThresholdConfig) RawSeverity(value float64) valueobject.Severity {
	switch {
	case c.comparison.Breaches(value, c.criticalLevel):
		return valueobject.SeverityCritical
	case c.comparison.Breaches(value, c.warningLevel):
		return valueobject.SeverityWarning
	case c.infoLevel != nil && c.comparison.Breaches(value, *c.infoLevel):
		return valueobject.SeverityInfo
	default:
		return valueobject.SeverityNone
	}
}

// Cleared проверяет, что значение ушло с уровня held с учетом гистерезиса
func (c *ThresholdConfig) Cleared(value float64, held valueobject.Severity) bool {
	level, ok := c.Level(held)
	if !ok {
		return true
	}
	return c.comparison.Cleared(value, c.comparison.ClearLevel(level, c.Margin(held)))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
