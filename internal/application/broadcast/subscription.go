package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/event"
)

// Reason причина отключения подписчика
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonClosed   Reason = "closed"
	ReasonOverflow Reason = "overflow"
	ReasonShutdown Reason = "shutdown"
)

// ErrSubscriptionClosed возвращается из Receive после отключения
var ErrSubscriptionClosed = errors.New("subscription closed")

// Subscription очередь событий одного подписчика
// Очередь ограничена: при переполнении удаляется самое старое событие.
type Subscription struct {
	id          string
	connectedAt time.Time

	mu               sync.Mutex
	queue            []event.Event
	head             int
	size             int
	lagged           uint64
	consecutiveDrops int
	reason           Reason

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newSubscription(id string, capacity int, now time.Time) *Subscription {
	return &Subscription{
		id:          id,
		connectedAt: now,
		queue:       make([]event.Event, capacity),
		notify:      make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// ID возвращает идентификатор подписчика
func (s *Subscription) ID() string { return s.id }

// ConnectedAt возвращает время подписки
func (s *Subscription) ConnectedAt() time.Time { return s.connectedAt }

// Done закрывается при отключении
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Reason возвращает причину отключения (пусто для активной подписки)
func (s *Subscription) Reason() Reason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Lagged возвращает число потерянных из-за переполнения событий
func (s *Subscription) Lagged() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lagged
}

// Pending возвращает число событий в очереди
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Receive ждет следующее событие
// После отключения возвращает ErrSubscriptionClosed
func (s *Subscription) Receive(ctx context.Context) (event.Event, error) {
	for {
		if ev, ok, closed := s.pop(); ok {
			return ev, nil
		} else if closed {
			return nil, ErrSubscriptionClosed
		}

		select {
		case <-s.notify:
		case <-s.done:
			return nil, ErrSubscriptionClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// TryReceive возвращает событие без ожидания
func (s *Subscription) TryReceive() (event.Event, bool) {
	ev, ok, _ := s.pop()
	return ev, ok
}

func (s *Subscription) pop() (event.Event, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reason != ReasonNone {
		return nil, false, true
	}
	if s.size == 0 {
		return nil, false, false
	}
	ev := s.queue[s.head]
	s.queue[s.head] = nil
	s.head = (s.head + 1) % len(s.queue)
	s.size--
	return ev, true, false
}

// offer кладет событие в очередь без блокировки
// dropped true если пришлось вытеснить старое событие,
// overflow true если достигнут предел подряд вытесненных событий.
func (s *Subscription) offer(ev event.Event, dropLimit int) (dropped, overflow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reason != ReasonNone {
		return false, false
	}

	if s.size < len(s.queue) {
		s.queue[(s.head+s.size)%len(s.queue)] = ev
		s.size++
		s.consecutiveDrops = 0
	} else {
		// Вытесняем самое старое
		s.queue[s.head] = ev
		s.head = (s.head + 1) % len(s.queue)
		s.lagged++
		s.consecutiveDrops++
		dropped = true
		overflow = dropLimit > 0 && s.consecutiveDrops >= dropLimit
	}

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return dropped, overflow
}

// close отключает подписку; возвращает false, если она уже отключена
func (s *Subscription) close(reason Reason) bool {
	closed := false
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.reason = reason
		for i := range s.queue {
			s.queue[i] = nil
		}
		s.size = 0
		s.mu.Unlock()
		close(s.done)
		closed = true
	})
	return closed
}
