// AngelaMos | 2026
// client.go

package console

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 16
)

// Client is one websocket connection on the render stream. The stream is
// one-way; inbound frames are only read for pings and close handling.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	identityID string
	logger     *slog.Logger

	// rendered is the last generation sent; only the hub goroutine
	// touches it.
	rendered uint64
}

func NewClient(hub *Hub, conn *websocket.Conn, identityID string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		identityID: identityID,
		logger:     hub.logger,
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				c.logger.Warn("render stream read failed",
					"identity_id", c.identityID,
					"error", err,
				)
			}
			return
		}

		var msg Message
		if json.Unmarshal(data, &msg) == nil && msg.Type == "ping" {
			if pong, err := encodeMessage(EventPong, nil); err == nil {
				c.queue(pong)
			}
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// queue is used by the read side for replies. It must not block or send on
// a channel the hub has already closed, so it goes through the hub.
func (c *Client) queue(msg []byte) {
	c.hub.reply(c, msg)
}
