package dto

import (
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// ReportJobDTO представляет задачу отчета
type ReportJobDTO struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Cadence         string     `json:"cadence"`
	Recipients      []string   `json:"recipients"`
	Sections        []string   `json:"sections"`
	MetricKeys      []string   `json:"metric_keys"`
	Enabled         bool       `json:"enabled"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	LastManualRunAt *time.Time `json:"last_manual_run_at,omitempty"`
	NextRunAt       time.Time  `json:"next_run_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// FromReportJob конвертирует Domain Entity в DTO
func FromReportJob(j *entity.ReportJob) *ReportJobDTO {
	d := &ReportJobDTO{
		ID:         j.ID(),
		Name:       j.Name(),
		Cadence:    j.Cadence().String(),
		Recipients: j.Recipients(),
		Enabled:    j.Enabled(),
		NextRunAt:  j.NextRunAt(),
		CreatedAt:  j.CreatedAt(),
		UpdatedAt:  j.UpdatedAt(),
	}
	for _, s := range j.Sections() {
		d.Sections = append(d.Sections, string(s))
	}
	for _, k := range j.MetricKeys() {
		d.MetricKeys = append(d.MetricKeys, k.String())
	}
	if t := j.LastRunAt(); !t.IsZero() {
		d.LastRunAt = &t
	}
	if t := j.LastManualRunAt(); !t.IsZero() {
		d.LastManualRunAt = &t
	}
	return d
}

// ToReportJobDTOs конвертирует слайс Entity в слайс DTO
func ToReportJobDTOs(jobs []*entity.ReportJob) []*ReportJobDTO {
	dtos := make([]*ReportJobDTO, len(jobs))
	for i, j := range jobs {
		dtos[i] = FromReportJob(j)
	}
	return dtos
}

// ReportJobRequest тело запроса создания или изменения задачи
type ReportJobRequest struct {
	Name       string   `json:"name"`
	Cadence    string   `json:"cadence"`
	Recipients []string `json:"recipients"`
	Sections   []string `json:"sections"`
	MetricKeys []string `json:"metric_keys"`
	Enabled    *bool    `json:"enabled,omitempty"`
}

// ToParams конвертирует запрос в параметры сущности
func (r ReportJobRequest) ToParams() (entity.ReportJobParams, error) {
	cadence, err := time.ParseDuration(r.Cadence)
	if err != nil {
		return entity.ReportJobParams{}, err
	}
	p := entity.ReportJobParams{
		Name:       r.Name,
		Cadence:    cadence,
		Recipients: r.Recipients,
		Enabled:    true,
	}
	if r.Enabled != nil {
		p.Enabled = *r.Enabled
	}
	for _, s := range r.Sections {
		p.Sections = append(p.Sections, entity.ReportSection(s))
	}
	for _, k := range r.MetricKeys {
		p.MetricKeys = append(p.MetricKeys, valueobject.MetricKey(k))
	}
	return p, nil
}

// ReportTrigger причина формирования отчета
type ReportTrigger string

const (
	TriggerScheduled ReportTrigger = "scheduled"
	TriggerManual    ReportTrigger = "manual"
)

// ReportPayload сформированный отчет
type ReportPayload struct {
	ID          string                 `json:"id"`
	JobID       string                 `json:"job_id"`
	JobName     string                 `json:"job_name"`
	Trigger     ReportTrigger          `json:"trigger"`
	GeneratedAt time.Time              `json:"generated_at"`
	From        time.Time              `json:"from"`
	To          time.Time              `json:"to"`
	Metrics     []*ReportMetricSection `json:"metrics,omitempty"`
	Alerts      *ReportAlertSection    `json:"alerts,omitempty"`
	Deliveries  []*DeliveryResult      `json:"deliveries,omitempty"`
}

// ReportMetricSection сводка и ряд одной метрики
type ReportMetricSection struct {
	Key            string             `json:"key"`
	BucketDuration string             `json:"bucket_duration"`
	Count          int64              `json:"count"`
	Min            *float64           `json:"min"`
	Max            *float64           `json:"max"`
	Avg            *float64           `json:"avg"`
	Series         []HistoryBucketDTO `json:"series"`
	Error          string             `json:"error,omitempty"`
}

// ReportAlertSection alert'ы за период отчета
type ReportAlertSection struct {
	Open     []*AlertDTO `json:"open"`
	Resolved []*AlertDTO `json:"resolved"`
}

// DeliveryResult результат доставки отчета одному получателю
type DeliveryResult struct {
	Recipient string `json:"recipient"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}
