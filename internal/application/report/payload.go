package report

import (
	"context"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/service"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-core/pkg/logger"
	"github.com/google/uuid"
)

// PayloadBuilder собирает структурированный отчет за период задачи
type PayloadBuilder struct {
	history      HistorySource
	alerts       AlertSource
	keys         KeySource
	aggregator   *service.MetricAggregator
	seriesPoints int
	logger       *logger.Logger
}

// NewPayloadBuilder создает PayloadBuilder
func NewPayloadBuilder(history HistorySource, alerts AlertSource, keys KeySource, seriesPoints int, log *logger.Logger) *PayloadBuilder {
	return &PayloadBuilder{
		history:      history,
		alerts:       alerts,
		keys:         keys,
		aggregator:   service.NewMetricAggregator(),
		seriesPoints: seriesPoints,
		logger:       log,
	}
}

// Build формирует отчет за интервал [now-cadence, now)
// Ошибки отдельных разделов записываются в сам отчет
func (b *PayloadBuilder) Build(ctx context.Context, job *entity.ReportJob, trigger dto.ReportTrigger, now time.Time) *dto.ReportPayload {
	payload := &dto.ReportPayload{
		ID:          uuid.New().String(),
		JobID:       job.ID(),
		JobName:     job.Name(),
		Trigger:     trigger,
		GeneratedAt: now,
		From:        now.Add(-job.Cadence()),
		To:          now,
	}

	tr, err := valueobject.NewTimeRange(payload.From, payload.To)
	if err != nil {
		b.logger.Error("Invalid report range", err, "job_id", job.ID())
		return payload
	}

	if job.HasSection(entity.SectionMetrics) {
		payload.Metrics = b.metrics(ctx, job, tr)
	}
	if job.HasSection(entity.SectionAlerts) {
		payload.Alerts = b.alertSection(ctx, job, tr)
	}
	return payload
}

func (b *PayloadBuilder) metrics(ctx context.Context, job *entity.ReportJob, tr valueobject.TimeRange) []*dto.ReportMetricSection {
	keys := job.MetricKeys()
	if len(keys) == 0 && b.keys != nil {
		keys = b.keys.Keys()
	}

	bucket := b.bucketFor(tr.Duration())
	sections := make([]*dto.ReportMetricSection, 0, len(keys))

	for _, key := range keys {
		section := &dto.ReportMetricSection{
			Key:            key.String(),
			BucketDuration: bucket.String(),
		}
		sections = append(sections, section)

		buckets, err := b.history.Query(ctx, key, tr, bucket)
		if err != nil {
			section.Error = err.Error()
			b.logger.Warn("Report metric section failed", "job_id", job.ID(), "key", key, "error", err.Error())
			continue
		}

		section.Series = make([]dto.HistoryBucketDTO, len(buckets))
		for i, hb := range buckets {
			section.Series[i] = dto.FromHistoryBucket(hb)
		}
		if summary, ok := b.aggregator.Summarize(buckets); ok {
			section.Count = summary.Count
			section.Min = &summary.Min
			section.Max = &summary.Max
			section.Avg = &summary.Avg
		}
	}
	return sections
}

func (b *PayloadBuilder) alertSection(ctx context.Context, job *entity.ReportJob, tr valueobject.TimeRange) *dto.ReportAlertSection {
	section := &dto.ReportAlertSection{
		Open:     dto.ToAlertDTOs(b.alerts.OpenAlerts()),
		Resolved: []*dto.AlertDTO{},
	}

	resolved, err := b.alerts.ResolvedBetween(ctx, tr.Start(), tr.End())
	if err != nil {
		b.logger.Error("Failed to load resolved alerts for report", err, "job_id", job.ID())
		return section
	}
	section.Resolved = dto.ToAlertDTOs(resolved)
	return section
}

// bucketFor подбирает кратную разрешению длину бакета так, чтобы ряд
// содержал не больше seriesPoints точек
func (b *PayloadBuilder) bucketFor(window time.Duration) time.Duration {
	resolution := b.history.Resolution()
	bucket := window / time.Duration(b.seriesPoints)
	if bucket <= resolution {
		return resolution
	}
	if rem := bucket % resolution; rem != 0 {
		bucket += resolution - rem
	}
	return bucket
}
