package port

import (
	"context"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
)

// AlertNotifier определяет канал внешних уведомлений об alert'ах (Port)
// Одна попытка доставки, без повторов
type AlertNotifier interface {
	// Channel возвращает имя канала ("email", "nats")
	Channel() string

	// NotifyAlert отправляет уведомление об открытии или эскалации alert'а
	NotifyAlert(ctx context.Context, alert *entity.Alert) error
}
