package nats

import (
	"context"
	"errors"

	"github.com/dreschagin/monitoring-core/internal/application/broadcast"
	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/application/port"
	"github.com/dreschagin/monitoring-core/internal/domain/event"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// EventSubject returns "monitoring.<kind>"
func EventSubject(kind event.Kind) string {
	return SubjectPrefix + "." + string(kind)
}

// Forwarder зеркалирует события живой ленты в шину сообщений
type Forwarder struct {
	broadcaster    *broadcast.Broadcaster
	publisher      port.EventPublisher
	forwardMetrics bool
	logger         *logger.Logger
}

// NewForwarder создает Forwarder. При forwardMetrics=false в шину идут только события alert'ов
func NewForwarder(b *broadcast.Broadcaster, publisher port.EventPublisher, forwardMetrics bool, log *logger.Logger) *Forwarder {
	return &Forwarder{
		broadcaster:    b,
		publisher:      publisher,
		forwardMetrics: forwardMetrics,
		logger:         log,
	}
}

// Run читает события, пока не отменен ctx или не закрыт Broadcaster
// После отключения за переполнение подписка создается заново
func (f *Forwarder) Run(ctx context.Context) {
	for {
		sub := f.broadcaster.Subscribe()
		reason := f.consume(ctx, sub)
		f.broadcaster.Unsubscribe(sub)

		if ctx.Err() != nil || reason != broadcast.ReasonOverflow {
			return
		}
		f.logger.Warn("Event forwarder fell behind, resubscribing", "lagged", sub.Lagged())
	}
}

func (f *Forwarder) consume(ctx context.Context, sub *broadcast.Subscription) broadcast.Reason {
	for {
		ev, err := sub.Receive(ctx)
		if err != nil {
			if errors.Is(err, broadcast.ErrSubscriptionClosed) {
				return sub.Reason()
			}
			return broadcast.ReasonClosed
		}
		if ev.Kind() == event.KindMetricUpdated && !f.forwardMetrics {
			continue
		}

		subject := EventSubject(ev.Kind())
		if err := f.publisher.PublishEvent(ctx, subject, dto.NewEventEnvelope(ev)); err != nil {
			f.logger.Error("Failed to forward event", err, "subject", subject)
		}
	}
}
