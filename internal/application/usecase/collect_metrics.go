package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/application/port"
	"github.com/dreschagin/monitoring-core/internal/application/registry"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/event"
	"github.com/dreschagin/monitoring-core/internal/domain/service"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// CollectMetricsConfig параметры опроса источников
type CollectMetricsConfig struct {
	// Interval период опроса по умолчанию
	Interval time.Duration
	// Timeout ограничивает один вызов Sample
	Timeout time.Duration
	// Intervals переопределяет период для отдельных источников
	Intervals map[string]time.Duration
}

// CollectMetricsUseCase координирует опрос источников, валидацию, прием в реестр и рассылку
type CollectMetricsUseCase struct {
	sources     []port.MetricSource
	registry    *registry.Registry
	broadcaster port.EventBroadcaster
	exporter    port.MetricsPublisher
	validator   *service.MetricValidator
	telemetry   port.Telemetry
	cfg         CollectMetricsConfig
	logger      *logger.Logger
	clock       func() time.Time
}

// NewCollectMetricsUseCase создает новый use case
// exporter может быть nil, если экспорт во внешнюю систему выключен
func NewCollectMetricsUseCase(
	sources []port.MetricSource,
	registry *registry.Registry,
	broadcaster port.EventBroadcaster,
	exporter port.MetricsPublisher,
	validator *service.MetricValidator,
	telemetry port.Telemetry,
	cfg CollectMetricsConfig,
	logger *logger.Logger,
) *CollectMetricsUseCase {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if telemetry == nil {
		telemetry = port.NopTelemetry{}
	}

	return &CollectMetricsUseCase{
		sources:     sources,
		registry:    registry,
		broadcaster: broadcaster,
		exporter:    exporter,
		validator:   validator,
		telemetry:   telemetry,
		cfg:         cfg,
		logger:      logger,
		clock:       time.Now,
	}
}

// Sources возвращает подключенные источники
func (uc *CollectMetricsUseCase) Sources() []port.MetricSource {
	return uc.sources
}

// Execute опрашивает один источник с таймаутом и принимает результат
// Ошибка источника не распространяется дальше: она попадает в результат
// и в ключ source_up:<id>.
func (uc *CollectMetricsUseCase) Execute(ctx context.Context, source port.MetricSource) *dto.SourceCheckDTO {
	result := &dto.SourceCheckDTO{SourceID: source.ID()}

	// 1. Снимаем значения с ограничением по времени
	sampleCtx, cancel := context.WithTimeout(ctx, uc.cfg.Timeout)
	started := time.Now()
	snapshot, err := source.Sample(sampleCtx)
	cancel()
	elapsed := time.Since(started)
	result.DurationMs = elapsed.Milliseconds()

	if err == nil {
		// 2. Валидация snapshot'а
		err = uc.validator.Validate(snapshot, uc.clock())
		if err != nil {
			err = errs.SourceUnavailable(source.ID(), err)
		}
	} else if !errors.Is(err, errs.ErrSourceUnavailable) {
		err = errs.SourceUnavailable(source.ID(), err)
	}

	if err != nil {
		result.Error = err.Error()
		uc.telemetry.SourceFailed(source.ID())
		uc.logger.Warn("Metric source sampling failed", "source", source.ID(), "error", err.Error())
		uc.ingestLiveness(source.ID(), false)
		return result
	}
	uc.telemetry.SourceSampled(source.ID(), elapsed.Seconds())

	// 3. Отбрасываем неразумные значения
	snapshot = uc.filterReasonable(snapshot)

	// 4. Принимаем в реестр и рассылаем подписчикам
	uc.registry.Ingest(snapshot)
	uc.publish(snapshot)
	uc.ingestLiveness(source.ID(), true)

	// 5. Экспортируем во внешнюю систему метрик
	if uc.exporter != nil && !snapshot.IsEmpty() {
		if err := uc.exporter.PublishSnapshot(ctx, snapshot); err != nil {
			uc.logger.Warn("Failed to export metrics", "source", source.ID(), "error", err.Error())
		}
	}

	result.OK = true
	result.Readings = snapshot.Len()
	uc.logger.Debug("Metric source sampled", "source", source.ID(), "readings", snapshot.Len(), "duration_ms", result.DurationMs)
	return result
}

// ExecuteAll опрашивает все источники параллельно
// Медленный источник ограничен своим таймаутом и не задерживает остальные.
func (uc *CollectMetricsUseCase) ExecuteAll(ctx context.Context) []*dto.SourceCheckDTO {
	results := make([]*dto.SourceCheckDTO, len(uc.sources))

	var wg sync.WaitGroup
	for i, source := range uc.sources {
		wg.Add(1)
		go func(i int, source port.MetricSource) {
			defer wg.Done()
			results[i] = uc.Execute(ctx, source)
		}(i, source)
	}
	wg.Wait()

	return results
}

// Run запускает цикл опроса для каждого источника и ждет отмены ctx
func (uc *CollectMetricsUseCase) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, source := range uc.sources {
		wg.Add(1)
		go func(source port.MetricSource) {
			defer wg.Done()
			uc.runSource(ctx, source)
		}(source)
	}
	wg.Wait()
}

func (uc *CollectMetricsUseCase) runSource(ctx context.Context, source port.MetricSource) {
	interval := uc.cfg.Interval
	if d, ok := uc.cfg.Intervals[source.ID()]; ok && d > 0 {
		interval = d
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	uc.logger.Info("Metric source loop started", "source", source.ID(), "interval", interval.String())

	// Первый опрос сразу, не дожидаясь тикера
	uc.Execute(ctx, source)

	for {
		select {
		case <-ctx.Done():
			uc.logger.Info("Metric source loop stopped", "source", source.ID())
			return
		case <-ticker.C:
			uc.Execute(ctx, source)
		}
	}
}

func (uc *CollectMetricsUseCase) filterReasonable(snapshot valueobject.MetricSnapshot) valueobject.MetricSnapshot {
	readings := snapshot.Readings()
	dropped := false
	for key, reading := range readings {
		if !uc.validator.IsReasonable(key, reading) {
			uc.logger.Warn("Metric value is unreasonable", "source", snapshot.SourceID(), "key", key, "value", reading.Value())
			delete(readings, key)
			dropped = true
		}
	}
	if !dropped {
		return snapshot
	}
	return valueobject.NewMetricSnapshot(snapshot.SourceID(), snapshot.Timestamp(), readings)
}

// ingestLiveness записывает source_up:<id> = 1 или 0
func (uc *CollectMetricsUseCase) ingestLiveness(sourceID string, up bool) {
	value := 0.0
	if up {
		value = 1
	}
	key := valueobject.SourceUpKey(sourceID)
	snapshot := valueobject.NewMetricSnapshot(sourceID, uc.clock(), map[valueobject.MetricKey]valueobject.Reading{
		key: valueobject.MustNumeric(value),
	})
	uc.registry.Ingest(snapshot)
	uc.publish(snapshot)
}

func (uc *CollectMetricsUseCase) publish(snapshot valueobject.MetricSnapshot) {
	if uc.broadcaster == nil {
		return
	}
	for _, key := range snapshot.Keys() {
		reading, _ := snapshot.Get(key)
		uc.broadcaster.Publish(event.MetricUpdated{
			SourceID:  snapshot.SourceID(),
			Key:       key,
			Reading:   reading,
			Timestamp: snapshot.Timestamp(),
		})
	}
}
