package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"basegraph.app/nudge/internal/model"
)

// ErrNoSubscriber is returned when an owner has no open websocket.
var ErrNoSubscriber = errors.New("owner has no websocket subscriber")

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type wsClient struct {
	hub   *Hub
	conn  *websocket.Conn
	owner string
	send  chan []byte
}

// Hub fans deliveries out to websocket clients subscribed per owner. An owner
// may hold several connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*wsClient]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*wsClient]struct{})}
}

// Deliver queues d on every connection of d.Owner. Slow clients whose buffer
// is full are dropped.
func (h *Hub) Deliver(ctx context.Context, d model.Delivery) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}

	var sent int
	var stale []*wsClient

	h.mu.RLock()
	for c := range h.clients[d.Owner] {
		select {
		case c.send <- data:
			sent++
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		slog.WarnContext(ctx, "websocket client buffer full, dropping", "owner", c.owner)
		h.unregister(c)
	}

	if sent == 0 {
		return ErrNoSubscriber
	}
	return nil
}

// Subscribers returns the number of open connections for owner.
func (h *Hub) Subscribers(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[owner])
}

// ServeWS upgrades the request and subscribes the connection to owner.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, owner string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	c := &wsClient{
		hub:   h,
		conn:  conn,
		owner: owner,
		send:  make(chan []byte, sendBuffer),
	}
	h.register(c)

	slog.InfoContext(r.Context(), "websocket subscriber connected",
		"owner", owner,
		"connections", h.Subscribers(owner))

	go c.writePump()
	go c.readPump()
	return nil
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.owner]
	if !ok {
		set = make(map[*wsClient]struct{})
		h.clients[c.owner] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.owner]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.owner)
	}
}

// readPump only services control frames; subscribers do not send data.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
