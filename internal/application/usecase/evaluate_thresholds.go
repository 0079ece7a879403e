package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/alerting"
	"github.com/dreschagin/monitoring-core/internal/application/registry"
	"github.com/dreschagin/monitoring-core/internal/application/thresholds"
	"github.com/dreschagin/monitoring-core/internal/domain/service"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// evaluationSourceID источник snapshot'а, собранного из реестра
const evaluationSourceID = "registry"

// EvaluateThresholdsUseCase сравнивает последние значения реестра с порогами
// и передает сигналы в AlertManager
type EvaluateThresholdsUseCase struct {
	registry   *registry.Registry
	store      *thresholds.Store
	evaluator  *service.ThresholdEvaluator
	alerts     *alerting.Manager
	staleAfter time.Duration
	interval   time.Duration
	logger     *logger.Logger
	clock      func() time.Time

	tick atomic.Uint64
}

// NewEvaluateThresholdsUseCase создает новый use case
// staleAfter <= 0 отключает проверку устаревших значений
func NewEvaluateThresholdsUseCase(
	registry *registry.Registry,
	store *thresholds.Store,
	evaluator *service.ThresholdEvaluator,
	alerts *alerting.Manager,
	interval, staleAfter time.Duration,
	logger *logger.Logger,
) *EvaluateThresholdsUseCase {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &EvaluateThresholdsUseCase{
		registry:   registry,
		store:      store,
		evaluator:  evaluator,
		alerts:     alerts,
		staleAfter: staleAfter,
		interval:   interval,
		logger:     logger,
		clock:      time.Now,
	}
}

// Execute выполняет один тик оценки и возвращает его номер и число сигналов
func (uc *EvaluateThresholdsUseCase) Execute(ctx context.Context) (uint64, int) {
	tick := uc.tick.Add(1)

	// 1. Последние свежие значения; устаревшие ключи в этом тике не оцениваются
	latest := uc.registry.Latest(uc.staleAfter)
	readings := make(map[valueobject.MetricKey]valueobject.Reading, len(latest))
	for key, sample := range latest {
		readings[key] = sample.Reading
	}
	snapshot := valueobject.NewMetricSnapshot(evaluationSourceID, uc.clock(), readings)

	// 2. Оценка по неизменяемому snapshot'у порогов
	configs := uc.store.Current().Configs
	signals := uc.evaluator.Evaluate(snapshot, configs, uc.alerts.HeldSeverities())

	// 3. Переходы alert'ов
	if len(signals) > 0 {
		uc.alerts.Apply(ctx, tick, signals)
	}

	uc.logger.Debug("Threshold evaluation tick",
		"tick", tick,
		"keys", snapshot.Len(),
		"signals", len(signals))
	return tick, len(signals)
}

// Run запускает цикл оценки до отмены ctx
func (uc *EvaluateThresholdsUseCase) Run(ctx context.Context) {
	ticker := time.NewTicker(uc.interval)
	defer ticker.Stop()

	uc.logger.Info("Threshold evaluation loop started", "interval", uc.interval.String())

	for {
		select {
		case <-ctx.Done():
			uc.logger.Info("Threshold evaluation loop stopped")
			return
		case <-ticker.C:
			uc.Execute(ctx)
		}
	}
}
