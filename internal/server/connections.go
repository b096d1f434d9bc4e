package server

import (
	"sync"

	"github.com/coder/websocket"
)

// ClientConnection records which game and role a socket is bound to.
type ClientConnection struct {
	GameID   string
	ClientID string
	Role     Role
}

type ConnectionManager struct {
	connections map[string]*websocket.Conn  // connectionID → socket
	bindings    map[string]ClientConnection // connectionID → client binding
	byClient    map[string]string           // clientID → current connectionID
	mu          sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
		bindings:    make(map[string]ClientConnection),
		byClient:    make(map[string]string),
	}
}

func (cm *ConnectionManager) AddConnection(connectionID string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[connectionID] = conn
}

// BindClient makes connectionID the current socket for binding.ClientID and
// returns the connection id it superseded, or "" when the client had none.
func (cm *ConnectionManager) BindClient(connectionID string, binding ClientConnection) string {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	previous := cm.byClient[binding.ClientID]
	if previous == connectionID {
		previous = ""
	}
	cm.bindings[connectionID] = binding
	cm.byClient[binding.ClientID] = connectionID
	return previous
}

// RemoveConnection drops the socket and reports whether it was still the
// client's current connection. A superseded socket returns wasCurrent=false
// so its cleanup does not detach the replacement.
func (cm *ConnectionManager) RemoveConnection(connectionID string) (binding ClientConnection, wasCurrent bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	binding, bound := cm.bindings[connectionID]
	delete(cm.connections, connectionID)
	delete(cm.bindings, connectionID)
	if bound && cm.byClient[binding.ClientID] == connectionID {
		delete(cm.byClient, binding.ClientID)
		return binding, true
	}
	return binding, false
}

func (cm *ConnectionManager) GetConnection(connectionID string) *websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return cm.connections[connectionID]
}

// GetBinding returns the client binding for a connection, if registered.
func (cm *ConnectionManager) GetBinding(connectionID string) (ClientConnection, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	binding, ok := cm.bindings[connectionID]
	return binding, ok
}

// GetConnectionIDByClient returns the client's current connection id, or "".
func (cm *ConnectionManager) GetConnectionIDByClient(clientID string) string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return cm.byClient[clientID]
}

// GetConnectionByClient returns the client's current socket, or nil.
func (cm *ConnectionManager) GetConnectionByClient(clientID string) *websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	connectionID, ok := cm.byClient[clientID]
	if !ok {
		return nil
	}
	return cm.connections[connectionID]
}

// Connections returns a snapshot of all live sockets keyed by connection id.
func (cm *ConnectionManager) Connections() map[string]*websocket.Conn {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	snapshot := make(map[string]*websocket.Conn, len(cm.connections))
	for id, conn := range cm.connections {
		snapshot[id] = conn
	}
	return snapshot
}

func (cm *ConnectionManager) ConnectionCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return len(cm.connections)
}
