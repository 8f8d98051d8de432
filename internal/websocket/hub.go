// Package websocket broadcasts job record transitions to subscribed admin
// clients. One hub serves the whole process; jobs publish through the
// jobs.Notifier interface and every connected client receives the full
// record on each transition, so clients never reconcile deltas.
package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"shiftcast/internal/config"
	"shiftcast/pkg/contracts/domain"
	"shiftcast/pkg/contracts/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer. Clients only listen; inbound
	// frames beyond pings are discarded.
	maxMessageSize = 512

	// Pending frames buffered per client before it is considered stuck.
	sendBufferSize = 64

	// Pending broadcasts buffered before publishers start dropping.
	broadcastBufferSize = 64
)

// Hub maintains the set of active clients and fans job updates out to them.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	upgrader  websocket.Upgrader
	pongWait  time.Duration
	pingEvery time.Duration

	logger *slog.Logger

	mu      sync.Mutex
	running bool
	quit    chan struct{}
}

// NewHub creates a hub. allowedOrigins restricts browser connections; an
// empty list allows any origin.
func NewHub(cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	pongWait := cfg.PongWait
	if pongWait <= 0 {
		pongWait = 60 * time.Second
	}
	pingEvery := cfg.PingPeriod
	if pingEvery <= 0 || pingEvery >= pongWait {
		pingEvery = pongWait * 9 / 10
	}

	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, broadcastBufferSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		pongWait:  pongWait,
		pingEvery: pingEvery,
		logger:    logger.With(slog.String("component", "websocket.hub")),
		quit:      make(chan struct{}),
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin header.
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Start launches the hub loop. Safe to call once.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop terminates the hub loop and disconnects every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
}

// JobUpdated implements the jobs notifier. It never blocks the caller: when
// the hub cannot keep up the update is dropped, and clients recover the
// final state from the jobs API.
func (h *Hub) JobUpdated(record domain.JobRecord) {
	frame, err := json.Marshal(events.JobUpdate{
		Type:      events.MessageTypeJobUpdate,
		Job:       record,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("marshal job update", slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- frame:
	default:
		h.logger.Warn("job update dropped, broadcast buffer full",
			slog.String("job_id", record.ID))
	}
}

// ServeHTTP upgrades the request and attaches the client to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		id:          uuid.New().String(),
		connectedAt: time.Now(),
	}
	select {
	case h.register <- c:
	case <-h.quit:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.logger.Info("hub stopped")
			return

		case c := <-h.register:
			h.clients[c] = true
			h.logger.Info("client registered",
				slog.String("client_id", c.id),
				slog.Int("total_clients", len(h.clients)))
			h.welcome(c)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Info("client unregistered",
					slog.String("client_id", c.id),
					slog.Int("total_clients", len(h.clients)),
					slog.Duration("connected", time.Since(c.connectedAt)))
			}

		case frame := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- frame:
				default:
					// The client stopped draining; cut it loose rather
					// than stall every other subscriber.
					delete(h.clients, c)
					close(c.send)
					h.logger.Warn("client send buffer full, disconnecting",
						slog.String("client_id", c.id))
				}
			}
		}
	}
}

func (h *Hub) welcome(c *client) {
	frame, err := json.Marshal(events.Hello{
		Type:       events.MessageTypeConnected,
		ServerTime: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

type client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	id          string
	connectedAt time.Time
}

// readPump discards inbound frames and watches for disconnects and pongs.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
