// Package realtime pushes check-in broadcasts to WebSocket subscribers,
// grouped by tournament.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iliyamo/tournament-checkin/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

type message struct {
	tournament string
	body       []byte
}

// Hub keeps WebSocket clients grouped by tournament slug. Delivery is
// at-most-once: a client whose send buffer is full is disconnected
// instead of slowing everybody else down.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	mu         sync.RWMutex
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewHub creates a Hub. Call Run before serving clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run processes registrations and broadcasts until ctx is done, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for slug, clients := range h.clients {
				for c := range clients {
					close(c.send)
				}
				delete(h.clients, slug)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.tournament] == nil {
				h.clients[c.tournament] = make(map[*Client]bool)
			}
			h.clients[c.tournament][c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()
		case m := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients[m.tournament] {
				select {
				case c.send <- m.body:
				default:
					h.logger.Warn("dropping slow websocket client", "tournament", m.tournament)
					h.remove(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove drops c and closes its send channel. h.mu must be held.
func (h *Hub) remove(c *Client) {
	clients, ok := h.clients[c.tournament]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.clients, c.tournament)
	}
}

// Publish queues evt for the subscribers of its tournament. It blocks only
// while the hub's queue is full and gives up when ctx is done.
func (h *Hub) Publish(ctx context.Context, evt model.CheckInBroadcast) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal broadcast: %w", err)
	}
	select {
	case h.broadcast <- message{tournament: evt.TournamentSlug, body: body}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("hub queue full: %w", ctx.Err())
	}
}

// Deliver is Publish for messages arriving from the broker: it never
// blocks and drops the message when the hub's queue is full.
func (h *Hub) Deliver(evt model.CheckInBroadcast) {
	body, err := json.Marshal(evt)
	if err != nil {
		h.logger.Warn("dropping unencodable broadcast", "error", err)
		return
	}
	select {
	case h.broadcast <- message{tournament: evt.TournamentSlug, body: body}:
	default:
		h.logger.Warn("hub queue full; dropping broadcast", "event_id", evt.EventID)
	}
}

// Subscribers returns the number of clients listening to tournament.
func (h *Hub) Subscribers(tournament string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tournament])
}

// Serve upgrades the request to a WebSocket subscribed to tournament and
// blocks until the connection closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, tournament string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}
	c := &Client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		tournament: tournament,
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return nil
	case <-r.Context().Done():
		_ = conn.Close()
		return r.Context().Err()
	}
	go c.writePump()
	c.readPump()
	return nil
}

// Client is one WebSocket subscription.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	tournament string
}

// readPump discards inbound frames and watches for disconnects.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
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

func (c *Client) writePump() {
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
