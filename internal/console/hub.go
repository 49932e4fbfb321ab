// AngelaMos | 2026
// hub.go

package console

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	EventConnected = "connected"
	EventRender    = "render"
	EventPong      = "pong"
)

type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func encodeMessage(eventType string, data any) ([]byte, error) {
	return json.Marshal(Message{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// Hub fans rendered snapshots out to websocket clients. The Run goroutine
// owns the client set; clients only talk to it through channels.
type Hub struct {
	loop   *Loop
	logger *slog.Logger

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	replies    chan reply
	done       chan struct{}

	count atomic.Int64
}

func NewHub(loop *Loop, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		loop:       loop,
		logger:     logger,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		replies:    make(chan reply),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	renders, unsubscribe := h.loop.Subscribe()
	defer unsubscribe()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.add(c)

		case c := <-h.unregister:
			h.remove(c)

		case r := <-h.replies:
			if _, ok := h.clients[r.client]; ok {
				h.deliver(r.client, r.msg)
			}

		case snap, ok := <-renders:
			if !ok {
				h.shutdown()
				return
			}
			h.broadcast(snap)
		}
	}
}

// Register hands a client to the hub. It reports false once the hub has
// stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

type reply struct {
	client *Client
	msg    []byte
}

func (h *Hub) reply(c *Client, msg []byte) {
	select {
	case h.replies <- reply{client: c, msg: msg}:
	case <-h.done:
	}
}

func (h *Hub) TotalClients() int {
	return int(h.count.Load())
}

func (h *Hub) add(c *Client) {
	h.clients[c] = struct{}{}
	h.count.Store(int64(len(h.clients)))

	h.logger.Info("render client connected",
		"identity_id", c.identityID,
		"total", len(h.clients),
	)

	if msg, err := encodeMessage(EventConnected, map[string]any{
		"identity_id": c.identityID,
	}); err == nil {
		h.deliver(c, msg)
	}

	if snap := h.loop.Snapshot(); snap.Generation > 0 {
		if msg, err := encodeMessage(EventRender, snap); err == nil {
			c.rendered = snap.Generation
			h.deliver(c, msg)
		}
	}
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.count.Store(int64(len(h.clients)))

	h.logger.Info("render client disconnected",
		"identity_id", c.identityID,
		"total", len(h.clients),
	)
}

func (h *Hub) broadcast(snap Snapshot) {
	if len(h.clients) == 0 {
		return
	}

	msg, err := encodeMessage(EventRender, snap)
	if err != nil {
		h.logger.Error("encode render failed", "error", err)
		return
	}

	for c := range h.clients {
		if c.rendered >= snap.Generation {
			continue
		}
		c.rendered = snap.Generation
		h.deliver(c, msg)
	}
}

// deliver drops a client whose send buffer is full instead of blocking the
// hub.
func (h *Hub) deliver(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("render client too slow, dropping",
			"identity_id", c.identityID,
		)
		h.remove(c)
	}
}

func (h *Hub) shutdown() {
	for c := range h.clients {
		h.remove(c)
	}
}
