package port

import "github.com/dreschagin/monitoring-core/internal/domain/event"

// EventBroadcaster определяет интерфейс рассылки событий подписчикам (Port)
// Publish не должен блокировать вызывающего
type EventBroadcaster interface {
	Publish(ev event.Event)
}

// EventBroadcasterFunc адаптер функции к EventBroadcaster
type EventBroadcasterFunc func(ev event.Event)

// Publish вызывает f(ev)
func (f EventBroadcasterFunc) Publish(ev event.Event) {
	f(ev)
}
