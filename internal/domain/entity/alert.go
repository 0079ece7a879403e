package entity

import (
	"strings"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/google/uuid"
)

// AlertStatus статус жизненного цикла alert'а
type AlertStatus string

const (
	AlertOpen     AlertStatus = "open"
	AlertResolved AlertStatus = "resolved"
)

// ResolvedBySystem автор автоматического закрытия
const ResolvedBySystem = "system"

// Alert представляет нарушение порога метрики (Aggregate Root)
// Для одного ключа метрики одновременно открыт не более одного alert'а
type Alert struct {
	id         string
	metricKey  valueobject.MetricKey
	severity   valueobject.Severity
	status     AlertStatus
	lastValue  float64
	openedAt   time.Time
	updatedAt  time.Time
	resolvedAt *time.Time
	resolution string
	resolvedBy string
}

// NewAlert открывает новый alert (Factory Method)
func NewAlert(
	metricKey valueobject.MetricKey,
	severity valueobject.Severity,
	value float64,
	at time.Time,
) *Alert {
	return &Alert{
		id:        uuid.New().String(),
		metricKey: metricKey,
		severity:  severity,
		status:    AlertOpen,
		lastValue: value,
		openedAt:  at,
		updatedAt: at,
	}
}

// ReconstructAlert восстанавливает alert из хранилища (для Repository)
func ReconstructAlert(
	id string,
	metricKey valueobject.MetricKey,
	severity valueobject.Severity,
	status AlertStatus,
	lastValue float64,
	openedAt, updatedAt time.Time,
	resolvedAt *time.Time,
	resolution, resolvedBy string,
) *Alert {
	return &Alert{
		id:         id,
		metricKey:  metricKey,
		severity:   severity,
		status:     status,
		lastValue:  lastValue,
		openedAt:   openedAt,
		updatedAt:  updatedAt,
		resolvedAt: copyTime(resolvedAt),
		resolution: resolution,
		resolvedBy: resolvedBy,
	}
}

// ID возвращает идентификатор alert'а
func (a *Alert) ID() string {
	return a.id
}

// MetricKey возвращает ключ метрики
func (a *Alert) MetricKey() valueobject.MetricKey {
	return a.metricKey
}

// Severity возвращает текущий уровень
func (a *Alert) Severity() valueobject.Severity {
	return a.severity
}

// Status возвращает статус
func (a *Alert) Status() AlertStatus {
	return a.status
}

// LastValue возвращает последнее наблюдавшееся значение
func (a *Alert) LastValue() float64 {
	return a.lastValue
}

// OpenedAt возвращает время открытия
func (a *Alert) OpenedAt() time.Time {
	return a.openedAt
}

// UpdatedAt возвращает время последнего изменения
func (a *Alert) UpdatedAt() time.Time {
	return a.updatedAt
}

// ResolvedAt возвращает время закрытия (nil для открытого)
func (a *Alert) ResolvedAt() *time.Time {
	return copyTime(a.resolvedAt)
}

// Resolution возвращает текст резолюции
func (a *Alert) Resolution() string {
	return a.resolution
}

// ResolvedBy возвращает автора закрытия
func (a *Alert) ResolvedBy() string {
	return a.resolvedBy
}

// Domain Methods (бизнес-логика)

// IsOpen проверяет, открыт ли alert
func (a *Alert) IsOpen() bool {
	return a.status == AlertOpen
}

// ChangeSeverity меняет уровень открытого alert'а
// Возвращает предыдущий уровень
func (a *Alert) ChangeSeverity(severity valueobject.Severity, value float64, at time.Time) valueobject.Severity {
	previous := a.severity
	a.severity = severity
	a.lastValue = value
	a.updatedAt = at
	return previous
}

// Observe обновляет последнее значение без смены уровня
func (a *Alert) Observe(value float64, at time.Time) {
	a.lastValue = value
	a.updatedAt = at
}

// AutoResolve закрывает alert при возврате метрики в норму
// Текст резолюции остается пустым: его задает только оператор.
func (a *Alert) AutoResolve(value float64, at time.Time) error {
	if !a.IsOpen() {
		return errs.ErrAlreadyResolved
	}
	a.lastValue = value
	a.close(at, "", ResolvedBySystem)
	return nil
}

// ResolveManually закрывает alert оператором
func (a *Alert) ResolveManually(resolution, actor string, at time.Time) error {
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return errs.ErrResolutionRequired
	}
	if !a.IsOpen() {
		return errs.ErrAlreadyResolved
	}
	if actor == "" {
		actor = "unknown"
	}
	a.close(at, resolution, actor)
	return nil
}

func (a *Alert) close(at time.Time, resolution, actor string) {
	a.status = AlertResolved
	a.resolvedAt = &at
	a.resolution = resolution
	a.resolvedBy = actor
	a.updatedAt = at
}

// Clone возвращает независимую копию для публикации в событиях
func (a *Alert) Clone() *Alert {
	c := *a
	c.resolvedAt = copyTime(a.resolvedAt)
	return &c
}

// Duration возвращает длительность alert'а на момент now
func (a *Alert) Duration(now time.Time) time.Duration {
	if a.resolvedAt != nil {
		return a.resolvedAt.Sub(a.openedAt)
	}
	return now.Sub(a.openedAt)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
