package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager manages WebSocket connections watching pools
type ConnectionManager struct {
	// Connection pools organized by pool ID
	poolConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan BroadcastMessage

	// Called under mu when a pool gains its first watcher or loses its last
	onFirstWatcher func(poolID string)
	onLastWatcher  func(poolID string)
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	PoolID  string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	closed    chan struct{}
	closeOnce sync.Once

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a message to broadcast to connections
type BroadcastMessage struct {
	PoolID string
	Event  *PoolEvent
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		poolConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// SetWatchHooks registers the callbacks fired when a pool gains its first
// watcher and loses its last one. They must not block on the manager.
func (cm *ConnectionManager) SetWatchHooks(onFirst, onLast func(poolID string)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.onFirstWatcher = onFirst
	cm.onLastWatcher = onLast
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and queues
// greeting as the first message
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, poolID string, greeting *PoolEvent) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		PoolID:      poolID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		closed:      make(chan struct{}),
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	if greeting != nil {
		data, err := json.Marshal(greeting)
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to marshal greeting: %w", err)
		}
		connection.Send <- data
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("pool_id", poolID).
		Msg("WebSocket connection established")

	return nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	first := false
	if cm.poolConnections[conn.PoolID] == nil {
		cm.poolConnections[conn.PoolID] = make(map[*Connection]bool)
		first = true
	}
	cm.poolConnections[conn.PoolID][conn] = true

	if first && cm.onFirstWatcher != nil {
		cm.onFirstWatcher(conn.PoolID)
	}

	log.Debug().
		Str("connection_id", conn.ID).
		Str("pool_id", conn.PoolID).
		Int("total_connections", len(cm.poolConnections[conn.PoolID])).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the manager
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.poolConnections[conn.PoolID]
	if !exists {
		return
	}
	if _, exists := connections[conn]; !exists {
		return
	}

	delete(connections, conn)
	conn.closeOnce.Do(func() { close(conn.closed) })

	if len(connections) == 0 {
		delete(cm.poolConnections, conn.PoolID)
		if cm.onLastWatcher != nil {
			cm.onLastWatcher(conn.PoolID)
		}
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("pool_id", conn.PoolID).
		Msg("connection unregistered")
}

// BroadcastToPool sends an event to all connections watching a pool
func (cm *ConnectionManager) BroadcastToPool(poolID string, event *PoolEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{PoolID: poolID, Event: event}:
	default:
		log.Warn().Str("pool_id", poolID).Msg("broadcast channel full, dropping message")
	}
}

// IsWatched reports whether any connection watches poolID
func (cm *ConnectionManager) IsWatched(poolID string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.poolConnections[poolID]) > 0
}

// IfWatched runs fn while holding the manager lock, but only when poolID has
// watchers. Watch hooks cannot fire while fn runs.
func (cm *ConnectionManager) IfWatched(poolID string, fn func()) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if len(cm.poolConnections[poolID]) == 0 {
		return false
	}
	fn()
	return true
}

// handleBroadcast processes a broadcast message
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.poolConnections[message.PoolID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	targets := make([]*Connection, 0, len(connections))
	for conn := range connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		if !conn.enqueue(eventData) {
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("pool_id", message.PoolID).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		PoolConnections: make(map[string]int, len(cm.poolConnections)),
	}
	for poolID, connections := range cm.poolConnections {
		stats.TotalConnections += len(connections)
		stats.PoolConnections[poolID] = len(connections)
	}
	stats.WatchedPools = len(cm.poolConnections)
	return stats
}

// ConnectionStats summarises the open connections
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	WatchedPools     int            `json:"watched_pools"`
	PoolConnections  map[string]int `json:"pool_connections"`
}

// enqueue hands data to the write pump without blocking. It reports false
// when the buffer is full; data for a closed connection is dropped.
func (c *Connection) enqueue(data []byte) bool {
	select {
	case <-c.closed:
		return true
	default:
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case <-c.closed:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump drains the client side; clients only send pongs and close frames
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		log.Debug().
			Str("connection_id", c.ID).
			Int("bytes", len(message)).
			Msg("ignoring client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
