package broadcast

import (
	"sync"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/port"
	"github.com/dreschagin/monitoring-core/internal/domain/event"
	"github.com/dreschagin/monitoring-core/pkg/logger"
	"github.com/google/uuid"
)

const (
	// DefaultQueueCapacity емкость очереди подписчика по умолчанию
	DefaultQueueCapacity = 100
	// DefaultConsecutiveDropLimit сколько событий подряд можно потерять до отключения
	DefaultConsecutiveDropLimit = 200
)

// Config параметры Broadcaster
type Config struct {
	QueueCapacity        int
	ConsecutiveDropLimit int
}

// Broadcaster рассылает события всем подписчикам
// Publish никогда не блокируется на медленном подписчике.
type Broadcaster struct {
	cfg       Config
	telemetry port.Telemetry
	logger    *logger.Logger
	clock     func() time.Time

	mu     sync.RWMutex
	subs   map[string]*Subscription
	closed bool
}

// New создает Broadcaster
func New(cfg Config, telemetry port.Telemetry, log *logger.Logger) *Broadcaster {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.ConsecutiveDropLimit <= 0 {
		cfg.ConsecutiveDropLimit = DefaultConsecutiveDropLimit
	}
	if telemetry == nil {
		telemetry = port.NopTelemetry{}
	}
	return &Broadcaster{
		cfg:       cfg,
		telemetry: telemetry,
		logger:    log,
		clock:     time.Now,
		subs:      make(map[string]*Subscription),
	}
}

// Subscribe регистрирует нового подписчика
// После Close возвращает уже отключенную подписку
func (b *Broadcaster) Subscribe() *Subscription {
	sub := newSubscription(uuid.New().String(), b.cfg.QueueCapacity, b.clock())

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.close(ReasonShutdown)
		return sub
	}
	b.subs[sub.id] = sub
	count := len(b.subs)
	b.mu.Unlock()

	b.telemetry.SubscribersActive(count)
	b.logger.Debug("Subscriber registered", "subscriber_id", sub.id, "total", count)
	return sub
}

// Unsubscribe отключает подписчика по его инициативе
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.disconnect(sub, ReasonClosed)
}

// Publish кладет событие в очередь каждого подписчика
func (b *Broadcaster) Publish(ev event.Event) {
	var overflowed []*Subscription

	b.mu.RLock()
	for _, sub := range b.subs {
		dropped, overflow := sub.offer(ev, b.cfg.ConsecutiveDropLimit)
		if dropped {
			b.telemetry.SubscriberLagged()
		}
		if overflow {
			overflowed = append(overflowed, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range overflowed {
		b.logger.Warn("Disconnecting lagging subscriber", "subscriber_id", sub.id, "lagged", sub.Lagged())
		b.disconnect(sub, ReasonOverflow)
	}
}

// Count возвращает число активных подписчиков
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close отключает всех подписчиков
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	subs := b.subs
	b.subs = make(map[string]*Subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		if sub.close(ReasonShutdown) {
			b.telemetry.SubscriberDisconnected(string(ReasonShutdown))
		}
	}
	b.telemetry.SubscribersActive(0)
	b.logger.Info("Broadcaster closed", "disconnected", len(subs))
}

func (b *Broadcaster) disconnect(sub *Subscription, reason Reason) {
	b.mu.Lock()
	if current, ok := b.subs[sub.id]; ok && current == sub {
		delete(b.subs, sub.id)
	}
	count := len(b.subs)
	b.mu.Unlock()

	if sub.close(reason) {
		b.telemetry.SubscriberDisconnected(string(reason))
		b.telemetry.SubscribersActive(count)
		b.logger.Debug("Subscriber disconnected", "subscriber_id", sub.id, "reason", reason, "total", count)
	}
}
