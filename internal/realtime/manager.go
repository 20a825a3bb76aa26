// Package realtime serves the intake conversation over WebSocket.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Closer is the part of a connection the manager needs.
type Closer interface {
	Close(code websocket.StatusCode, reason string) error
}

// ConnManager tracks the single active connection of each user.
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]Closer
}

// NewConnManager creates an empty manager.
func NewConnManager() *ConnManager {
	return &ConnManager{active: make(map[string]Closer)}
}

// GetActive returns the user's active connection, or nil.
func (m *ConnManager) GetActive(userID string) Closer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[userID]
}

// Register makes conn the user's active connection. A previous connection
// is closed in the background since the close handshake waits on the peer.
func (m *ConnManager) Register(userID string, conn Closer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.active[userID]; ok && existing != conn {
		go func() { _ = existing.Close(websocket.StatusPolicyViolation, "connection replaced") }()
	}
	m.active[userID] = conn
	slog.Info("Chat connection registered", "user_id", userID)
}

// Unregister removes conn if it is still the user's active connection.
func (m *ConnManager) Unregister(userID string, conn Closer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.active[userID]; ok && current == conn {
		delete(m.active, userID)
		slog.Info("Chat connection unregistered", "user_id", userID)
	}
}

// CloseUser terminates the user's active connection. It is used when the
// session sweeper evicts the user's session.
func (m *ConnManager) CloseUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.active[userID]
	if !ok {
		return
	}
	go func() { _ = conn.Close(websocket.StatusNormalClosure, "session expired") }()
	delete(m.active, userID)
	slog.Info("Chat connection closed", "user_id", userID)
}

// Len returns the number of active connections.
func (m *ConnManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}
