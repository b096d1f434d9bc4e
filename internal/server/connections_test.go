package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBindClientFirstConnection(t *testing.T) {
	cm := NewConnectionManager()

	cm.AddConnection("conn-1", nil)
	previous := cm.BindClient("conn-1", ClientConnection{
		GameID:   "quickfox1",
		ClientID: "client-a",
		Role:     RolePlayerA,
	})

	assert.Empty(t, previous, "First binding for a client should supersede nothing")
	assert.Equal(t, "conn-1", cm.GetConnectionIDByClient("client-a"))

	binding, ok := cm.GetBinding("conn-1")
	assert.True(t, ok)
	assert.Equal(t, "quickfox1", binding.GameID)
	assert.Equal(t, RolePlayerA, binding.Role)
}

func TestBindClientSupersedesOldConnection(t *testing.T) {
	cm := NewConnectionManager()

	cm.AddConnection("conn-1", nil)
	cm.BindClient("conn-1", ClientConnection{GameID: "g", ClientID: "client-a", Role: RolePlayerA})

	// Same client reconnects on a fresh socket
	cm.AddConnection("conn-2", nil)
	previous := cm.BindClient("conn-2", ClientConnection{GameID: "g", ClientID: "client-a", Role: RolePlayerA})

	assert.Equal(t, "conn-1", previous, "Rebinding should report the superseded connection")
	assert.Equal(t, "conn-2", cm.GetConnectionIDByClient("client-a"))
}

func TestBindClientSameConnectionTwice(t *testing.T) {
	cm := NewConnectionManager()

	cm.AddConnection("conn-1", nil)
	cm.BindClient("conn-1", ClientConnection{GameID: "g", ClientID: "client-a", Role: RolePlayerA})
	previous := cm.BindClient("conn-1", ClientConnection{GameID: "g", ClientID: "client-a", Role: RolePlayerA})

	assert.Empty(t, previous, "Rebinding the same connection should not supersede itself")
	assert.Equal(t, "conn-1", cm.GetConnectionIDByClient("client-a"))
}

func TestRemoveConnectionCurrent(t *testing.T) {
	cm := NewConnectionManager()

	cm.AddConnection("conn-1", nil)
	cm.BindClient("conn-1", ClientConnection{GameID: "g", ClientID: "client-a", Role: RolePlayerB})

	binding, wasCurrent := cm.RemoveConnection("conn-1")

	assert.True(t, wasCurrent)
	assert.Equal(t, "client-a", binding.ClientID)
	assert.Empty(t, cm.GetConnectionIDByClient("client-a"))
	_, ok := cm.GetBinding("conn-1")
	assert.False(t, ok)
}

func TestRemoveConnectionSuperseded(t *testing.T) {
	cm := NewConnectionManager()

	cm.AddConnection("conn-1", nil)
	cm.BindClient("conn-1", ClientConnection{GameID: "g", ClientID: "client-a", Role: RolePlayerA})
	cm.AddConnection("conn-2", nil)
	cm.BindClient("conn-2", ClientConnection{GameID: "g", ClientID: "client-a", Role: RolePlayerA})

	// The late cleanup of the superseded socket must not claim the client
	_, wasCurrent := cm.RemoveConnection("conn-1")

	assert.False(t, wasCurrent, "Superseded connection is no longer current")
	assert.Equal(t, "conn-2", cm.GetConnectionIDByClient("client-a"),
		"The replacement connection should stay bound")
}

func TestRemoveConnectionUnbound(t *testing.T) {
	cm := NewConnectionManager()

	cm.AddConnection("conn-1", nil)
	binding, wasCurrent := cm.RemoveConnection("conn-1")

	assert.False(t, wasCurrent)
	assert.Empty(t, binding.ClientID)
	assert.Equal(t, 0, cm.ConnectionCount())
}

func TestConnectionCountAndSnapshot(t *testing.T) {
	cm := NewConnectionManager()

	cm.AddConnection("conn-1", nil)
	cm.AddConnection("conn-2", nil)
	cm.AddConnection("conn-3", nil)
	assert.Equal(t, 3, cm.ConnectionCount())

	snapshot := cm.Connections()
	assert.Len(t, snapshot, 3)

	// Mutating the snapshot must not touch the manager
	delete(snapshot, "conn-1")
	assert.Equal(t, 3, cm.ConnectionCount())
}

func TestGetConnectionByClientUnknown(t *testing.T) {
	cm := NewConnectionManager()

	assert.Nil(t, cm.GetConnectionByClient("nobody"))
	assert.Empty(t, cm.GetConnectionIDByClient("nobody"))
}
