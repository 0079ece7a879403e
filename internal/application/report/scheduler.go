package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/application/port"
	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/repository"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

const (
	DefaultTickInterval    = 30 * time.Second
	DefaultDeliveryTimeout = 30 * time.Second
	// DefaultSeriesPoints желаемое число точек ряда метрики в отчете
	DefaultSeriesPoints = 24
)

// Результаты запуска для телеметрии
const (
	resultOK      = "ok"
	resultPartial = "partial"
	resultFailed  = "failed"
	resultSkipped = "skipped"
)

// HistorySource источник агрегированной истории
type HistorySource interface {
	Resolution() time.Duration
	Query(ctx context.Context, key valueobject.MetricKey, tr valueobject.TimeRange, bucket time.Duration) ([]entity.HistoryBucket, error)
}

// AlertSource источник alert'ов для раздела отчета
type AlertSource interface {
	OpenAlerts() []*entity.Alert
	ResolvedBetween(ctx context.Context, from, to time.Time) ([]*entity.Alert, error)
}

// KeySource перечисляет известные ключи метрик
type KeySource interface {
	Keys() []valueobject.MetricKey
}

// Config параметры планировщика
type Config struct {
	TickInterval    time.Duration
	DeliveryTimeout time.Duration
	SeriesPoints    int
}

// Scheduler формирует и доставляет отчеты по расписанию
// Источник истины для расписания LastRunAt в репозитории: запуск сначала
// забирается через ClaimRun и только потом доставляется.
type Scheduler struct {
	repo       repository.ReportJobRepository
	builder    *PayloadBuilder
	deliveries []port.ReportDelivery
	telemetry  port.Telemetry
	logger     *logger.Logger
	cfg        Config
	clock      func() time.Time
}

// NewScheduler создает ReportScheduler
func NewScheduler(
	repo repository.ReportJobRepository,
	history HistorySource,
	alerts AlertSource,
	keys KeySource,
	deliveries []port.ReportDelivery,
	telemetry port.Telemetry,
	cfg Config,
	log *logger.Logger,
) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = DefaultDeliveryTimeout
	}
	if cfg.SeriesPoints <= 0 {
		cfg.SeriesPoints = DefaultSeriesPoints
	}
	if telemetry == nil {
		telemetry = port.NopTelemetry{}
	}

	return &Scheduler{
		repo:       repo,
		builder:    NewPayloadBuilder(history, alerts, keys, cfg.SeriesPoints, log),
		deliveries: deliveries,
		telemetry:  telemetry,
		logger:     log,
		cfg:        cfg,
		clock:      time.Now,
	}
}

// WithClock подменяет источник времени (для тестов)
func (s *Scheduler) WithClock(clock func() time.Time) *Scheduler {
	s.clock = clock
	return s
}

// ScheduleJob создает задачу отчета
func (s *Scheduler) ScheduleJob(ctx context.Context, p entity.ReportJobParams) (*entity.ReportJob, error) {
	job, err := entity.NewReportJob(p, s.clock())
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveReportJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save report job: %w", err)
	}

	s.logger.Info("Report job scheduled",
		"job_id", job.ID(),
		"name", job.Name(),
		"cadence", job.Cadence().String())
	return job, nil
}

// SeedJobs создает задачи начальной конфигурации
// Задачи с уже существующим именем пропускаются, поэтому повторный старт не плодит дубликаты.
func (s *Scheduler) SeedJobs(ctx context.Context, params []entity.ReportJobParams) (int, error) {
	if len(params) == 0 {
		return 0, nil
	}

	existing, err := s.ListJobs(ctx)
	if err != nil {
		return 0, err
	}
	names := make(map[string]struct{}, len(existing))
	for _, job := range existing {
		names[job.Name()] = struct{}{}
	}

	created := 0
	for _, p := range params {
		name := strings.TrimSpace(p.Name)
		if _, ok := names[name]; ok {
			continue
		}
		if _, err := s.ScheduleJob(ctx, p); err != nil {
			return created, fmt.Errorf("failed to seed report job %q: %w", name, err)
		}
		names[name] = struct{}{}
		created++
	}
	return created, nil
}

// UpdateJob изменяет параметры задачи; отключение задачи выполняется через Enabled=false
func (s *Scheduler) UpdateJob(ctx context.Context, id string, p entity.ReportJobParams) (*entity.ReportJob, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := job.Update(p, s.clock()); err != nil {
		return nil, err
	}
	if err := s.repo.SaveReportJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save report job: %w", err)
	}
	return job, nil
}

// GetJob возвращает задачу по идентификатору
func (s *Scheduler) GetJob(ctx context.Context, id string) (*entity.ReportJob, error) {
	job, err := s.repo.FindReportJob(ctx, id)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, fmt.Errorf("report job %s: %w", id, errs.ErrJobNotFound)
		}
		return nil, fmt.Errorf("failed to find report job: %w", err)
	}
	return job, nil
}

// ListJobs возвращает все задачи
func (s *Scheduler) ListJobs(ctx context.Context) ([]*entity.ReportJob, error) {
	jobs, err := s.repo.ListReportJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list report jobs: %w", err)
	}
	return jobs, nil
}

// RunNow формирует и доставляет отчет вне расписания
// Плановое расписание (LastRunAt) не меняется.
func (s *Scheduler) RunNow(ctx context.Context, id string) (*dto.ReportPayload, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	if err := s.repo.RecordManualRun(ctx, job.ID(), now); err != nil {
		s.telemetry.PersistenceFailed("report_manual_run")
		s.logger.Error("Failed to record manual report run", err, "job_id", job.ID())
	}
	job.MarkManualRun(now)

	payload := s.builder.Build(ctx, job, dto.TriggerManual, now)
	s.deliver(ctx, job, payload)
	s.logger.Info("Manual report generated", "job_id", job.ID(), "report_id", payload.ID)

	return payload, nil
}

// Run запускает цикл проверки расписания до отмены ctx
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.logger.Info("Report scheduler started", "interval", s.cfg.TickInterval.String())

	// Пропущенные во время простоя запуски выполняются сразу
	s.RunDue(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Report scheduler stopped")
			return
		case <-ticker.C:
			s.RunDue(ctx)
		}
	}
}

// RunDue запускает все задачи, срок которых наступил, и возвращает число запусков
func (s *Scheduler) RunDue(ctx context.Context) int {
	jobs, err := s.repo.ListReportJobs(ctx)
	if err != nil {
		s.logger.Error("Failed to list report jobs", err)
		return 0
	}

	ran := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		now := s.clock()
		if !job.IsDue(now) {
			continue
		}
		if s.runScheduled(ctx, job, now) {
			ran++
		}
	}
	return ran
}

func (s *Scheduler) runScheduled(ctx context.Context, job *entity.ReportJob, now time.Time) bool {
	claimed, err := s.repo.ClaimRun(ctx, job.ID(), job.LastRunAt(), now)
	if err != nil {
		s.telemetry.ReportRun(resultFailed)
		s.logger.Error("Failed to claim report run", err, "job_id", job.ID())
		return false
	}
	if !claimed {
		s.telemetry.ReportRun(resultSkipped)
		s.logger.Debug("Report run already claimed", "job_id", job.ID())
		return false
	}
	job.MarkRun(now)

	payload := s.builder.Build(ctx, job, dto.TriggerScheduled, now)
	result := s.deliver(ctx, job, payload)
	s.telemetry.ReportRun(result)

	s.logger.Info("Scheduled report sent",
		"job_id", job.ID(),
		"report_id", payload.ID,
		"result", result,
		"next_run_at", job.NextRunAt())
	return true
}

// deliver отправляет отчет каждому получателю через подходящий канал
func (s *Scheduler) deliver(ctx context.Context, job *entity.ReportJob, payload *dto.ReportPayload) string {
	failed := 0
	for _, recipient := range job.Recipients() {
		result := &dto.DeliveryResult{Recipient: recipient}
		payload.Deliveries = append(payload.Deliveries, result)

		delivery := s.deliveryFor(recipient)
		if delivery == nil {
			failed++
			result.Error = "no delivery channel for recipient"
			s.logger.Warn("No delivery channel for report recipient", "job_id", job.ID(), "recipient", recipient)
			continue
		}

		deliverCtx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
		err := delivery.Deliver(deliverCtx, recipient, payload)
		cancel()

		if err != nil {
			failed++
			result.Error = err.Error()
			if errors.Is(err, context.DeadlineExceeded) {
				result.Error = "delivery timed out"
			}
			s.logger.Error("Failed to deliver report", err, "job_id", job.ID(), "recipient", recipient)
			continue
		}
		result.OK = true
	}

	switch {
	case failed == 0:
		return resultOK
	case failed < len(payload.Deliveries):
		return resultPartial
	default:
		return resultFailed
	}
}

func (s *Scheduler) deliveryFor(recipient string) port.ReportDelivery {
	for _, d := range s.deliveries {
		if d.Supports(recipient) {
			return d
		}
	}
	return nil
}
