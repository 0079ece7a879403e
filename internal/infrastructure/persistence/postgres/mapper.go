package postgres

import (
	"database/sql"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/lib/pq"
)

// alertRow представляет alert в БД
type alertRow struct {
	ID         string       `db:"id"`
	MetricKey  string       `db:"metric_key"`
	Severity   string       `db:"severity"`
	Status     string       `db:"status"`
	LastValue  float64      `db:"last_value"`
	OpenedAt   time.Time    `db:"opened_at"`
	UpdatedAt  time.Time    `db:"updated_at"`
	ResolvedAt sql.NullTime `db:"resolved_at"`
	Resolution string       `db:"resolution"`
	ResolvedBy string       `db:"resolved_by"`
}

func toAlertRow(a *entity.Alert) alertRow {
	row := alertRow{
		ID:         a.ID(),
		MetricKey:  a.MetricKey().String(),
		Severity:   string(a.Severity()),
		Status:     string(a.Status()),
		LastValue:  a.LastValue(),
		OpenedAt:   a.OpenedAt(),
		UpdatedAt:  a.UpdatedAt(),
		Resolution: a.Resolution(),
		ResolvedBy: a.ResolvedBy(),
	}
	if at := a.ResolvedAt(); at != nil {
		row.ResolvedAt = sql.NullTime{Time: *at, Valid: true}
	}
	return row
}

func (r alertRow) toEntity() *entity.Alert {
	var resolvedAt *time.Time
	if r.ResolvedAt.Valid {
		t := r.ResolvedAt.Time
		resolvedAt = &t
	}
	return entity.ReconstructAlert(
		r.ID,
		valueobject.MetricKey(r.MetricKey),
		valueobject.Severity(r.Severity),
		entity.AlertStatus(r.Status),
		r.LastValue,
		r.OpenedAt,
		r.UpdatedAt,
		resolvedAt,
		r.Resolution,
		r.ResolvedBy,
	)
}

// thresholdRow представляет конфигурацию порогов в БД
type thresholdRow struct {
	MetricKey          string          `db:"metric_key"`
	InfoLevel          sql.NullFloat64 `db:"info_level"`
	WarningLevel       float64         `db:"warning_level"`
	CriticalLevel      float64         `db:"critical_level"`
	Comparison         string          `db:"comparison"`
	HysteresisPct      float64         `db:"hysteresis_pct"`
	HysteresisAbsolute float64         `db:"hysteresis_absolute"`
	Version            int64           `db:"version"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

func toThresholdRow(c *entity.ThresholdConfig) thresholdRow {
	row := thresholdRow{
		MetricKey:          c.MetricKey().String(),
		WarningLevel:       c.WarningLevel(),
		CriticalLevel:      c.CriticalLevel(),
		Comparison:         c.Comparison().String(),
		HysteresisPct:      c.HysteresisPct(),
		HysteresisAbsolute: c.HysteresisAbsolute(),
		Version:            c.Version(),
		UpdatedAt:          c.UpdatedAt(),
	}
	if info := c.InfoLevel(); info != nil {
		row.InfoLevel = sql.NullFloat64{Float64: *info, Valid: true}
	}
	return row
}

func (r thresholdRow) toEntity() (*entity.ThresholdConfig, error) {
	p := entity.ThresholdParams{
		MetricKey:          valueobject.MetricKey(r.MetricKey),
		WarningLevel:       r.WarningLevel,
		CriticalLevel:      r.CriticalLevel,
		Comparison:         valueobject.Comparison(r.Comparison),
		HysteresisPct:      r.HysteresisPct,
		HysteresisAbsolute: r.HysteresisAbsolute,
	}
	if r.InfoLevel.Valid {
		info := r.InfoLevel.Float64
		p.InfoLevel = &info
	}
	return entity.ReconstructThresholdConfig(p, r.Version, r.UpdatedAt)
}

// bucketRow представляет закрытый бакет истории в БД
type bucketRow struct {
	MetricKey       string    `db:"metric_key"`
	BucketStart     time.Time `db:"bucket_start"`
	DurationSeconds int64     `db:"duration_seconds"`
	Min             float64   `db:"min_value"`
	Max             float64   `db:"max_value"`
	Sum             float64   `db:"sum_value"`
	Count           int64     `db:"sample_count"`
}

func toBucketRow(b entity.HistoryBucket) bucketRow {
	return bucketRow{
		MetricKey:       b.MetricKey.String(),
		BucketStart:     b.Start,
		DurationSeconds: int64(b.Duration / time.Second),
		Min:             b.Min,
		Max:             b.Max,
		Sum:             b.Sum,
		Count:           b.Count,
	}
}

func (r bucketRow) toEntity() entity.HistoryBucket {
	b := entity.NewHistoryBucket(valueobject.MetricKey(r.MetricKey), r.BucketStart.UTC(), time.Duration(r.DurationSeconds)*time.Second)
	b.Min = r.Min
	b.Max = r.Max
	b.Sum = r.Sum
	b.Count = r.Count
	b.Final = true
	return b
}

// reportJobRow представляет задачу отчета в БД
type reportJobRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	CadenceSeconds  int64          `db:"cadence_seconds"`
	Recipients      pq.StringArray `db:"recipients"`
	Sections        pq.StringArray `db:"sections"`
	MetricKeys      pq.StringArray `db:"metric_keys"`
	Enabled         bool           `db:"enabled"`
	LastRunAt       sql.NullTime   `db:"last_run_at"`
	LastManualRunAt sql.NullTime   `db:"last_manual_run_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func toReportJobRow(j *entity.ReportJob) reportJobRow {
	row := reportJobRow{
		ID:              j.ID(),
		Name:            j.Name(),
		CadenceSeconds:  int64(j.Cadence() / time.Second),
		Recipients:      pq.StringArray(j.Recipients()),
		Enabled:         j.Enabled(),
		CreatedAt:       j.CreatedAt(),
		UpdatedAt:       j.UpdatedAt(),
		LastRunAt:       nullTime(j.LastRunAt()),
		LastManualRunAt: nullTime(j.LastManualRunAt()),
		MetricKeys:      pq.StringArray{},
	}
	for _, s := range j.Sections() {
		row.Sections = append(row.Sections, string(s))
	}
	for _, k := range j.MetricKeys() {
		row.MetricKeys = append(row.MetricKeys, k.String())
	}
	return row
}

func (r reportJobRow) toEntity() *entity.ReportJob {
	p := entity.ReportJobParams{
		Name:       r.Name,
		Cadence:    time.Duration(r.CadenceSeconds) * time.Second,
		Recipients: []string(r.Recipients),
		Enabled:    r.Enabled,
	}
	for _, s := range r.Sections {
		p.Sections = append(p.Sections, entity.ReportSection(s))
	}
	for _, k := range r.MetricKeys {
		p.MetricKeys = append(p.MetricKeys, valueobject.MetricKey(k))
	}
	return entity.ReconstructReportJob(r.ID, p, r.LastRunAt.Time, r.LastManualRunAt.Time, r.CreatedAt, r.UpdatedAt)
}

// nullTime переводит нулевое время в NULL
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
