package websocket

import (
	"context"
	"sync"

	"github.com/dreschagin/monitoring-core/internal/application/broadcast"
	"github.com/dreschagin/monitoring-core/internal/domain/event"
	"github.com/dreschagin/monitoring-core/pkg/logger"
	"github.com/gorilla/websocket"
)

// Hub подключает WebSocket клиентов к Broadcaster
// Каждый клиент получает собственную подписку с ограниченной очередью
type Hub struct {
	broadcaster *broadcast.Broadcaster

	mu      sync.RWMutex
	clients map[*Client]struct{}

	logger *logger.Logger
}

// NewHub создает новый WebSocket hub
func NewHub(b *broadcast.Broadcaster, logger *logger.Logger) *Hub {
	return &Hub{
		broadcaster: b,
		clients:     make(map[*Client]struct{}),
		logger:      logger,
	}
}

// Serve обслуживает соединение до его закрытия
// kinds ограничивает набор типов событий; пустой список означает все типы
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, kinds []event.Kind) {
	sub := h.broadcaster.Subscribe()
	client := NewClient(conn, sub, kinds, h.logger.With("subscriber_id", sub.ID()))

	h.mu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("Client registered", "total_clients", total)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		client.ReadPump()
		// Клиент ушел: освобождаем подписку, WritePump завершится
		h.broadcaster.Unsubscribe(sub)
		cancel()
	}()
	client.WritePump(ctx)
	cancel()
	h.broadcaster.Unsubscribe(sub)

	h.mu.Lock()
	delete(h.clients, client)
	total = len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("Client unregistered", "total_clients", total, "reason", sub.Reason())
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
