package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub tracks WebSocket connections and the practice sessions they follow.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*Connection // connection_id -> connection
	sessions    map[uuid.UUID][]uuid.UUID // session_id -> []connection_id
	logger      zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]*Connection),
		sessions:    make(map[uuid.UUID][]uuid.UUID),
		logger:      logger.With().Str("component", "ws_hub").Logger(),
	}
}

// RegisterConnection adds a connection under its id.
func (h *Hub) RegisterConnection(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, exists := h.connections[conn.ID()]; exists && old != conn {
		old.Close()
	}

	h.connections[conn.ID()] = conn
	h.logger.Debug().Str("connection_id", conn.ID().String()).Msg("connection registered")
}

// UnregisterConnection closes a connection and drops all its subscriptions.
func (h *Hub) UnregisterConnection(connID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, exists := h.connections[connID]; exists {
		conn.Close()
		delete(h.connections, connID)
		h.logger.Debug().Str("connection_id", connID.String()).Msg("connection unregistered")
	}

	for sessionID, conns := range h.sessions {
		h.sessions[sessionID] = remove(conns, connID)
		if len(h.sessions[sessionID]) == 0 {
			delete(h.sessions, sessionID)
		}
	}
}

// Subscribe associates a connection with a session for targeted broadcasts.
func (h *Hub) Subscribe(sessionID, connID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.sessions[sessionID]
	for _, id := range conns {
		if id == connID {
			return
		}
	}
	h.sessions[sessionID] = append(conns, connID)
}

// CloseSession drops every subscription to a session.
func (h *Hub) CloseSession(sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
}

// Subscribers reports how many connections follow a session.
func (h *Hub) Subscribers(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Broadcast sends a message to every connection following a session.
// It returns the first delivery error.
func (h *Hub) Broadcast(sessionID uuid.UUID, msg Message) error {
	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.sessions[sessionID]))
	for _, id := range h.sessions[sessionID] {
		if conn, ok := h.connections[id]; ok {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	var firstErr error
	for _, conn := range targets {
		if err := conn.Send(msg); err != nil && firstErr == nil {
			firstErr = err
			h.logger.Warn().Err(err).
				Str("session_id", sessionID.String()).
				Str("connection_id", conn.ID().String()).
				Msg("broadcast send failed")
		}
	}
	return firstErr
}

func remove(ids []uuid.UUID, target uuid.UUID) []uuid.UUID {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Conn is the part of *websocket.Conn a Connection needs.
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

const (
	defaultPongWait = 60 * time.Second
	writeWait       = 10 * time.Second
)

// Connection represents a WebSocket connection with send queue.
type Connection struct {
	id         uuid.UUID
	conn       Conn
	sendCh     chan Message
	mu         sync.Mutex
	closed     bool
	pongWait   time.Duration
	pingPeriod time.Duration
	logger     zerolog.Logger
}

// ConnectionOption customizes a Connection.
type ConnectionOption func(*Connection)

// WithPongWait sets how long the peer may stay silent. Pings go out at 9/10
// of that interval.
func WithPongWait(d time.Duration) ConnectionOption {
	return func(c *Connection) {
		if d > 0 {
			c.pongWait = d
			c.pingPeriod = d * 9 / 10
		}
	}
}

// NewConnection wraps a WebSocket connection.
func NewConnection(conn Conn, logger zerolog.Logger, opts ...ConnectionOption) *Connection {
	id := uuid.New()
	c := &Connection{
		id:         id,
		conn:       conn,
		sendCh:     make(chan Message, 256),
		pongWait:   defaultPongWait,
		pingPeriod: defaultPongWait * 9 / 10,
		logger:     logger.With().Str("connection_id", id.String()).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Connection) ID() uuid.UUID {
	return c.id
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
	c.conn.Close()
}

// WritePump sends queued messages and pings the peer every pingPeriod. It is
// the only writer on the underlying conn.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn().Err(err).Msg("write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug().Err(err).Msg("ping failed")
				return
			}
		}
	}
}

// ReadPump receives messages and calls the handler. Any inbound frame,
// pong or message, extends the read deadline.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))

		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Msg("message handler error")
		}
	}
}

var (
	ErrConnectionClosed = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull    = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
