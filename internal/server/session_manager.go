package server

import (
	"errors"
	"sync"
)

// SessionInfo remembers which game and role a client id belongs to. It
// outlives the websocket, so a reconnecting client resumes the same role.
type SessionInfo struct {
	ClientID string
	GameID   string
	Role     Role
}

type SessionManager struct {
	sessions map[string]SessionInfo // ClientID -> SessionInfo
	mu       sync.RWMutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]SessionInfo),
	}
}

func (sm *SessionManager) StoreSession(info SessionInfo) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[info.ClientID] = info
}

func (sm *SessionManager) GetSession(clientID string) (SessionInfo, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[clientID]
	if !exists {
		return SessionInfo{}, errors.New("SESSION_NOT_FOUND: no session for this client id")
	}

	return session, nil
}

func (sm *SessionManager) RemoveSession(clientID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, clientID)
}

// RemoveSessionsForGame forgets every session bound to gameID. Called when
// the game itself is evicted.
func (sm *SessionManager) RemoveSessionsForGame(gameID string) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	removed := 0
	for clientID, session := range sm.sessions {
		if session.GameID == gameID {
			delete(sm.sessions, clientID)
			removed++
		}
	}
	return removed
}

func (sm *SessionManager) GetAllSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]SessionInfo, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}

	return sessions
}
