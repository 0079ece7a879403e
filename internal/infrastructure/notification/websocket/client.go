package websocket

import (
	"context"
	"errors"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/broadcast"
	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/domain/event"
	"github.com/dreschagin/monitoring-core/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	// Время ожидания для write операций
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал ping сообщений (должен быть меньше pongWait)
	pingPeriod = 54 * time.Second

	// Максимальный размер сообщения
	maxMessageSize = 512
)

// CloseOverflow код закрытия для клиента, не успевающего читать ленту
const CloseOverflow = 4000

// Client представляет WebSocket клиента
type Client struct {
	conn   *websocket.Conn
	sub    *broadcast.Subscription
	kinds  map[event.Kind]struct{}
	logger *logger.Logger
}

// NewClient создает нового WebSocket клиента
func NewClient(conn *websocket.Conn, sub *broadcast.Subscription, kinds []event.Kind, logger *logger.Logger) *Client {
	c := &Client{
		conn:   conn,
		sub:    sub,
		logger: logger,
	}
	if len(kinds) > 0 {
		c.kinds = make(map[event.Kind]struct{}, len(kinds))
		for _, k := range kinds {
			c.kinds[k] = struct{}{}
		}
	}
	return c
}

func (c *Client) wants(kind event.Kind) bool {
	if c.kinds == nil {
		return true
	}
	_, ok := c.kinds[kind]
	return ok
}

// ReadPump читает сообщения от клиента до ошибки или закрытия
func (c *Client) ReadPump() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("WebSocket set read deadline error", err)
		return
	}
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		// Клиент ничего не присылает, кроме pong и close
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", err)
			}
			return
		}
	}
}

// WritePump пересылает события подписки клиенту и закрывает соединение на выходе
func (c *Client) WritePump(ctx context.Context) {
	defer func() {
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("WebSocket close error", "error", err.Error())
		}
	}()

	nextPing := time.Now().Add(pingPeriod)
	for {
		waitCtx, cancel := context.WithDeadline(ctx, nextPing)
		ev, err := c.sub.Receive(waitCtx)
		cancel()

		switch {
		case err == nil:
			if !c.wants(ev.Kind()) {
				continue
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("WebSocket set write deadline error", err)
				return
			}
			if err := c.conn.WriteJSON(dto.NewEventEnvelope(ev)); err != nil {
				c.logger.Debug("WebSocket write error", "error", err.Error())
				return
			}

		case errors.Is(err, broadcast.ErrSubscriptionClosed):
			c.writeClose(c.sub.Reason())
			return

		case ctx.Err() != nil:
			c.writeClose(broadcast.ReasonShutdown)
			return

		default:
			// Дедлайн ожидания: время ping
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			nextPing = time.Now().Add(pingPeriod)
		}
	}
}

func (c *Client) writeClose(reason broadcast.Reason) {
	code := websocket.CloseNormalClosure
	switch reason {
	case broadcast.ReasonOverflow:
		code = CloseOverflow
	case broadcast.ReasonShutdown:
		code = websocket.CloseGoingAway
	}

	msg := websocket.FormatCloseMessage(code, string(reason))
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
