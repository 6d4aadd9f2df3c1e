package api

import (
	"time"

	"github.com/basekick-labs/linkview/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// streamUpgrade rejects plain HTTP requests and unknown sessions before the
// websocket handshake.
func (h *SessionHandler) streamUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if _, err := h.manager.Get(c.Params("id")); err != nil {
		return h.sessionError(c, err)
	}
	return c.Next()
}

func (h *SessionHandler) streamHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		id := conn.Params("id")
		w, err := h.manager.Get(id)
		if err != nil {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session not found"))
			return
		}

		client := h.hub.Register(id)
		defer h.hub.Unregister(client)

		// Current selection first, so a late subscriber starts in sync
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(session.StreamMessage{Type: "selection", Session: id, IDs: w.Selected()}); err != nil {
			return
		}

		go h.readPump(conn, client)
		h.writePump(conn, client)
	})
}

// readPump drains the connection so pongs and the close frame are seen.
// Subscribers never send anything meaningful.
func (h *SessionHandler) readPump(conn *websocket.Conn, client *session.Client) {
	defer h.hub.Unregister(client)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("session", client.Session()).Msg("Stream read failed")
			}
			return
		}
	}
}

// writePump forwards hub messages and keeps the connection alive with pings.
// It returns once the client is unregistered or a write fails.
func (h *SessionHandler) writePump(conn *websocket.Conn, client *session.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Debug().Err(err).Str("session", client.Session()).Msg("Stream ping failed")
				return
			}
		}
	}
}
