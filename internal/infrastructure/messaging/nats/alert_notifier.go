package nats

import (
	"context"

	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/application/port"
	"github.com/dreschagin/monitoring-core/internal/domain/entity"
)

const (
	// ChannelNATS имя канала уведомлений
	ChannelNATS = "nats"
	// NotificationSubject subject уведомлений об alert'ах
	NotificationSubject = SubjectPrefix + ".notifications.alert"
)

// AlertNotifier публикует уведомления об alert'ах для внешних потребителей шины
type AlertNotifier struct {
	publisher port.EventPublisher
}

// NewAlertNotifier создает канал уведомлений
func NewAlertNotifier(publisher port.EventPublisher) *AlertNotifier {
	return &AlertNotifier{publisher: publisher}
}

func (n *AlertNotifier) Channel() string {
	return ChannelNATS
}

func (n *AlertNotifier) NotifyAlert(ctx context.Context, alert *entity.Alert) error {
	return n.publisher.PublishEvent(ctx, NotificationSubject, dto.FromAlert(alert))
}
