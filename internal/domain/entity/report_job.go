package entity

import (
	"strings"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/google/uuid"
)

// ReportSection раздел отчета
type ReportSection string

const (
	SectionMetrics ReportSection = "metrics"
	SectionAlerts  ReportSection = "alerts"
)

// Validate проверяет валидность раздела
func (s ReportSection) Validate() error {
	switch s {
	case SectionMetrics, SectionAlerts:
		return nil
	default:
		return errs.ConfigInvalid("unknown report section %q", string(s))
	}
}

// MinReportCadence минимальный период отчета
const MinReportCadence = time.Minute

// ReportJobParams входные параметры задачи отчета
type ReportJobParams struct {
	Name       string
	Cadence    time.Duration
	Recipients []string
	Sections   []ReportSection
	MetricKeys []valueobject.MetricKey
	Enabled    bool
}

// ReportJob периодическая задача формирования отчета (Aggregate Root)
type ReportJob struct {
	id              string
	name            string
	cadence         time.Duration
	recipients      []string
	sections        []ReportSection
	metricKeys      []valueobject.MetricKey
	enabled         bool
	lastRunAt       time.Time
	lastManualRunAt time.Time
	createdAt       time.Time
	updatedAt       time.Time
}

// NewReportJob создает новую задачу (Factory Method)
func NewReportJob(p ReportJobParams, now time.Time) (*ReportJob, error) {
	if err := validateReportJob(p); err != nil {
		return nil, err
	}

	return &ReportJob{
		id:         uuid.New().String(),
		name:       strings.TrimSpace(p.Name),
		cadence:    p.Cadence,
		recipients: append([]string(nil), p.Recipients...),
		sections:   append([]ReportSection(nil), p.Sections...),
		metricKeys: append([]valueobject.MetricKey(nil), p.MetricKeys...),
		enabled:    p.Enabled,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// ReconstructReportJob восстанавливает задачу из хранилища (для Repository)
func ReconstructReportJob(
	id string,
	p ReportJobParams,
	lastRunAt, lastManualRunAt, createdAt, updatedAt time.Time,
) *ReportJob {
	return &ReportJob{
		id:              id,
		name:            p.Name,
		cadence:         p.Cadence,
		recipients:      append([]string(nil), p.Recipients...),
		sections:        append([]ReportSection(nil), p.Sections...),
		metricKeys:      append([]valueobject.MetricKey(nil), p.MetricKeys...),
		enabled:         p.Enabled,
		lastRunAt:       lastRunAt,
		lastManualRunAt: lastManualRunAt,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

func validateReportJob(p ReportJobParams) error {
	if strings.TrimSpace(p.Name) == "" {
		return errs.ConfigInvalid("report job name cannot be empty")
	}
	if p.Cadence < MinReportCadence {
		return errs.ConfigInvalid("report cadence must be at least %s", MinReportCadence)
	}
	if len(p.Recipients) == 0 {
		return errs.ConfigInvalid("report job needs at least one recipient")
	}
	for _, r := range p.Recipients {
		if strings.TrimSpace(r) == "" {
			return errs.ConfigInvalid("report recipient cannot be empty")
		}
	}
	if len(p.Sections) == 0 {
		return errs.ConfigInvalid("report job needs at least one section")
	}
	for _, s := range p.Sections {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	for _, k := range p.MetricKeys {
		if err := k.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ID возвращает идентификатор задачи
func (j *ReportJob) ID() string { return j.id }

// Name возвращает название
func (j *ReportJob) Name() string { return j.name }

// Cadence возвращает период
func (j *ReportJob) Cadence() time.Duration { return j.cadence }

// Recipients возвращает копию списка получателей
func (j *ReportJob) Recipients() []string { return append([]string(nil), j.recipients...) }

// Sections возвращает копию списка разделов
func (j *ReportJob) Sections() []ReportSection { return append([]ReportSection(nil), j.sections...) }

// MetricKeys возвращает копию списка метрик
func (j *ReportJob) MetricKeys() []valueobject.MetricKey {
	return append([]valueobject.MetricKey(nil), j.metricKeys...)
}

// Enabled проверяет, включена ли задача
func (j *ReportJob) Enabled() bool { return j.enabled }

// LastRunAt возвращает время последнего планового запуска
func (j *ReportJob) LastRunAt() time.Time { return j.lastRunAt }

// LastManualRunAt возвращает время последнего ручного запуска
func (j *ReportJob) LastManualRunAt() time.Time { return j.lastManualRunAt }

// CreatedAt возвращает время создания
func (j *ReportJob) CreatedAt() time.Time { return j.createdAt }

// UpdatedAt возвращает время последнего изменения
func (j *ReportJob) UpdatedAt() time.Time { return j.updatedAt }

// Params возвращает изменяемые параметры задачи
func (j *ReportJob) Params() ReportJobParams {
	return ReportJobParams{
		Name:       j.name,
		Cadence:    j.cadence,
		Recipients: j.Recipients(),
		Sections:   j.Sections(),
		MetricKeys: j.MetricKeys(),
		Enabled:    j.enabled,
	}
}

// Domain Methods (бизнес-логика)

// HasSection проверяет наличие раздела
func (j *ReportJob) HasSection(section ReportSection) bool {
	for _, s := range j.sections {
		if s == section {
			return true
		}
	}
	return false
}

// IsDue проверяет, пора ли запускать задачу
// Задача без запусков считается просроченной
func (j *ReportJob) IsDue(now time.Time) bool {
	if !j.enabled {
		return false
	}
	if j.lastRunAt.IsZero() {
		return true
	}
	return !now.Before(j.lastRunAt.Add(j.cadence))
}

// NextRunAt возвращает время следующего планового запуска
func (j *ReportJob) NextRunAt() time.Time {
	if j.lastRunAt.IsZero() {
		return j.createdAt
	}
	return j.lastRunAt.Add(j.cadence)
}

// Update заменяет параметры задачи
func (j *ReportJob) Update(p ReportJobParams, now time.Time) error {
	if err := validateReportJob(p); err != nil {
		return err
	}
	j.name = strings.TrimSpace(p.Name)
	j.cadence = p.Cadence
	j.recipients = append([]string(nil), p.Recipients...)
	j.sections = append([]ReportSection(nil), p.Sections...)
	j.metricKeys = append([]valueobject.MetricKey(nil), p.MetricKeys...)
	j.enabled = p.Enabled
	j.updatedAt = now
	return nil
}

// MarkRun фиксирует плановый запуск
func (j *ReportJob) MarkRun(at time.Time) {
	j.lastRunAt = at
}

// MarkManualRun фиксирует ручной запуск, не сдвигая расписание
func (j *ReportJob) MarkManualRun(at time.Time) {
	j.lastManualRunAt = at
}

// Clone возвращает независимую копию
func (j *ReportJob) Clone() *ReportJob {
	c := *j
	c.recipients = j.Recipients()
	c.sections = j.Sections()
	c.metricKeys = j.MetricKeys()
	return &c
}
