package usecase

import (
	"context"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// RunHealthCheckUseCase выполняет ручную проверку: внеочередной опрос всех
// источников и тик оценки порогов
type RunHealthCheckUseCase struct {
	collect  *CollectMetricsUseCase
	evaluate *EvaluateThresholdsUseCase
	logger   *logger.Logger
}

// NewRunHealthCheckUseCase создает новый use case
func NewRunHealthCheckUseCase(
	collect *CollectMetricsUseCase,
	evaluate *EvaluateThresholdsUseCase,
	logger *logger.Logger,
) *RunHealthCheckUseCase {
	return &RunHealthCheckUseCase{
		collect:  collect,
		evaluate: evaluate,
		logger:   logger,
	}
}

// Execute возвращает результат опроса по каждому источнику
func (uc *RunHealthCheckUseCase) Execute(ctx context.Context) *dto.HealthCheckDTO {
	startedAt := time.Now().UTC()

	sources := uc.collect.ExecuteAll(ctx)
	tick, signals := uc.evaluate.Execute(ctx)

	failed := 0
	for _, s := range sources {
		if !s.OK {
			failed++
		}
	}
	uc.logger.Info("Manual health check completed",
		"sources", len(sources),
		"failed", failed,
		"tick", tick,
		"signals", signals)

	return &dto.HealthCheckDTO{
		StartedAt: startedAt,
		Tick:      tick,
		Signals:   signals,
		Sources:   sources,
	}
}
