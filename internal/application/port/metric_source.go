package port

import (
	"context"

	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// MetricSource определяет интерфейс источника метрик (Port)
// Реализации в Infrastructure слое: системные метрики, HTTP-пробы, БД
type MetricSource interface {
	// ID возвращает стабильный идентификатор источника
	ID() string

	// Sample снимает текущие значения. Таймаут задается дедлайном ctx.
	// Ошибка означает, что источник недоступен в этом тике.
	Sample(ctx context.Context) (valueobject.MetricSnapshot, error)
}
