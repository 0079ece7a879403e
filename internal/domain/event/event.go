package event

import (
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// Kind тип события живой ленты
type Kind string

const (
	KindMetricUpdated         Kind = "metric_updated"
	KindAlertOpened           Kind = "alert_opened"
	KindAlertSeverityChanged  Kind = "alert_severity_changed"
	KindAlertAutoResolved     Kind = "alert_auto_resolved"
	KindAlertManuallyResolved Kind = "alert_manually_resolved"
)

// AllKinds возвращает закрытый набор типов событий
func AllKinds() []Kind {
	return []Kind{
		KindMetricUpdated,
		KindAlertOpened,
		KindAlertSeverityChanged,
		KindAlertAutoResolved,
		KindAlertManuallyResolved,
	}
}

// Event событие, рассылаемое подписчикам
// Набор реализаций закрыт: внешние пакеты не могут добавить свои типы
type Event interface {
	Kind() Kind
	OccurredAt() time.Time
	sealed()
}

// AlertEvent событие жизненного цикла alert'а
type AlertEvent interface {
	Event
	// Alert возвращает копию alert'а на момент события
	Alert() *entity.Alert
	// Persisted false означает, что запись в хранилище не удалась
	Persisted() bool
}

// MetricUpdated новое значение метрики принято реестром
type MetricUpdated struct {
	SourceID  string
	Key       valueobject.MetricKey
	Reading   valueobject.Reading
	Timestamp time.Time
}

func (e MetricUpdated) Kind() Kind { return KindMetricUpdated }
func (e MetricUpdated) OccurredAt() time.Time { return e.Timestamp }
func (MetricUpdated) sealed() {}

type alertEvent struct {
	alert     *entity.Alert
	persisted bool
	at        time.Time
}

func (e alertEvent) Alert() *entity.Alert { return e.alert }
func (e alertEvent) Persisted() bool { return e.persisted }
func (e alertEvent) OccurredAt() time.Time { return e.at }
func (alertEvent) sealed() {}

// AlertOpened открыт новый alert
type AlertOpened struct{ alertEvent }

func (AlertOpened) Kind() Kind { return KindAlertOpened }

// AlertSeverityChanged у открытого alert'а сменился уровень
type AlertSeverityChanged struct {
	alertEvent
	Previous valueobject.Severity
}

func (AlertSeverityChanged) Kind() Kind { return KindAlertSeverityChanged }

// Escalated проверяет, что уровень вырос
func (e AlertSeverityChanged) Escalated() bool {
	return e.alert.Severity().Higher(e.Previous)
}

// AlertAutoResolved alert закрыт автоматически
type AlertAutoResolved struct{ alertEvent }

func (AlertAutoResolved) Kind() Kind { return KindAlertAutoResolved }

// AlertManuallyResolved alert закрыт оператором
type AlertManuallyResolved struct{ alertEvent }

func (AlertManuallyResolved) Kind() Kind { return KindAlertManuallyResolved }

// NewAlertOpened создает событие открытия
func NewAlertOpened(alert *entity.Alert, persisted bool, at time.Time) AlertOpened {
	return AlertOpened{alertEvent{alert: alert.Clone(), persisted: persisted, at: at}}
}

// NewAlertSeverityChanged создает событие смены уровня
func NewAlertSeverityChanged(alert *entity.Alert, previous valueobject.Severity, persisted bool, at time.Time) AlertSeverityChanged {
	return AlertSeverityChanged{
		alertEvent: alertEvent{alert: alert.Clone(), persisted: persisted, at: at},
		Previous:   previous,
	}
}

// NewAlertAutoResolved создает событие автозакрытия
func NewAlertAutoResolved(alert *entity.Alert, persisted bool, at time.Time) AlertAutoResolved {
	return AlertAutoResolved{alertEvent{alert: alert.Clone(), persisted: persisted, at: at}}
}

// NewAlertManuallyResolved создает событие ручного закрытия
func NewAlertManuallyResolved(alert *entity.Alert, persisted bool, at time.Time) AlertManuallyResolved {
	return AlertManuallyResolved{alertEvent{alert: alert.Clone(), persisted: persisted, at: at}}
}
