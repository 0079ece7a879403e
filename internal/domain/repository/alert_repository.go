package repository

import (
	"context"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
)

// AlertRepository определяет интерфейс хранилища alert'ов (Port)
// Реализация будет в Infrastructure слое
type AlertRepository interface {
	// SaveAlert создает или обновляет alert
	SaveAlert(ctx context.Context, alert *entity.Alert) error

	// LoadOpenAlerts возвращает все открытые alert'ы (для восстановления при старте)
	LoadOpenAlerts(ctx context.Context) ([]*entity.Alert, error)

	// FindAlertByID находит alert по идентификатору, errs.ErrNotFound если его нет
	FindAlertByID(ctx context.Context, id string) (*entity.Alert, error)

	// FindResolvedBetween возвращает alert'ы, закрытые в интервале [from, to)
	FindResolvedBetween(ctx context.Context, from, to time.Time) ([]*entity.Alert, error)
}
