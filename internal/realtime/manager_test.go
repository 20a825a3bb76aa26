package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
)

type fakeConn struct {
	mu     sync.Mutex
	closed bool
	code   websocket.StatusCode
}

func (c *fakeConn) Close(code websocket.StatusCode, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.code = code
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// waitClosed polls because the manager closes connections asynchronously.
func (c *fakeConn) waitClosed() bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.isClosed() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestConnManager_Register(t *testing.T) {
	cm := NewConnManager()
	conn := &fakeConn{}

	cm.Register("user123", conn)

	if active := cm.GetActive("user123"); active != conn {
		t.Errorf("Expected connection %v, got %v", conn, active)
	}
}

func TestConnManager_ReplacesPrevious(t *testing.T) {
	cm := NewConnManager()
	first := &fakeConn{}
	second := &fakeConn{}

	cm.Register("user123", first)
	cm.Register("user123", second)

	if !first.waitClosed() || first.code != websocket.StatusPolicyViolation {
		t.Fatal("previous connection should be closed on replacement")
	}
	if second.isClosed() {
		t.Fatal("new connection should stay open")
	}
	if cm.GetActive("user123") != second || cm.Len() != 1 {
		t.Fatal("expected only the new connection to be active")
	}
}

func TestConnManager_UnregisterStale(t *testing.T) {
	cm := NewConnManager()
	first := &fakeConn{}
	second := &fakeConn{}

	cm.Register("user123", first)
	cm.Register("user123", second)
	// The replaced connection exits its read loop after the new one registered.
	cm.Unregister("user123", first)

	if cm.GetActive("user123") != second {
		t.Fatal("stale unregister removed the active connection")
	}

	cm.Unregister("user123", second)
	if cm.GetActive("user123") != nil {
		t.Fatal("expected no active connection")
	}
}

func TestConnManager_CloseUser(t *testing.T) {
	cm := NewConnManager()
	conn := &fakeConn{}
	cm.Register("user123", conn)

	cm.CloseUser("user123")
	cm.CloseUser("missing")

	if !conn.waitClosed() || cm.Len() != 0 {
		t.Fatal("expected connection closed and removed")
	}
}
