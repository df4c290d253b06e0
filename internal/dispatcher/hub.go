package dispatcher

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tronscan-crawler/internal/queue"
)

// Connection timing defaults. The heartbeat must be shorter than the read
// timeout so pongs keep idle clients alive.
const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultReadTimeout       = 60 * time.Second
	writeTimeout             = 10 * time.Second
)

// Message is the envelope written to dashboard websocket clients.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Hub fans job events out to websocket clients. All writes happen on the
// Run goroutine.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan queue.Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	logger     *zap.Logger

	heartbeatInterval time.Duration
	readTimeout       time.Duration

	mu sync.RWMutex
}

// HubOption configures Hub.
type HubOption func(*Hub)

// WithHeartbeat sets the ping interval and the idle read timeout.
func WithHeartbeat(interval, readTimeout time.Duration) HubOption {
	return func(h *Hub) {
		h.heartbeatInterval = interval
		h.readTimeout = readTimeout
	}
}

// Compile-time interface check.
var _ queue.Observer = (*Hub)(nil)

// NewHub creates a Hub. Call Run to start it.
func NewHub(logger *zap.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		clients:           make(map[*websocket.Conn]bool),
		broadcast:         make(chan queue.Event, 256),
		register:          make(chan *websocket.Conn, 16),
		unregister:        make(chan *websocket.Conn, 16),
		done:              make(chan struct{}),
		logger:            logger,
		heartbeatInterval: DefaultHeartbeatInterval,
		readTimeout:       DefaultReadTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes registrations and broadcasts until ctx is done.
// Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()
			h.send(conn, Message{Type: "connected", Timestamp: time.Now().UnixMilli()})
			go h.readPump(conn)

		case conn := <-h.unregister:
			h.mu.Lock()
			if h.clients[conn] {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.broadcastAll(Message{Type: "job " + string(ev.Type), Data: ev, Timestamp: ev.At.UnixMilli()})

		case <-heartbeat.C:
			h.ping()
			h.broadcastAll(Message{Type: "heartbeat", Timestamp: time.Now().UnixMilli()})
		}
	}
}

// OnJobEvent queues ev for broadcast. Events are dropped when the buffer is full.
func (h *Hub) OnJobEvent(ev queue.Event) {
	select {
	case h.broadcast <- ev:
	default:
	}
}

// Register adds a client connection. After Run returns the connection is
// closed instead.
func (h *Hub) Register(conn *websocket.Conn) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump drains the client until it disconnects.
func (h *Hub) readPump(conn *websocket.Conn) {
	defer func() {
		select {
		case h.unregister <- conn:
		case <-h.done:
		}
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ping sends a control ping to every client. The pong extends the
// client's read deadline.
func (h *Hub) ping() {
	deadline := time.Now().Add(writeTimeout)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.clients {
		if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			h.logger.Debug("websocket ping failed", zap.Error(err))
		}
	}
}

func (h *Hub) broadcastAll(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("encode websocket message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			// readPump unregisters the connection.
			h.logger.Debug("websocket write failed", zap.Error(err))
		}
	}
}

func (h *Hub) send(conn *websocket.Conn, msg Message) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
