package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter caps message throughput per connection with a sliding window.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	requests    map[string][]time.Time // connectionID -> recent message times
	mu          sync.Mutex
}

func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[string][]time.Time),
	}
}

// Allow reports whether the connection may send another message now, and
// records the attempt when it may.
func (r *RateLimiter) Allow(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	timestamps := r.requests[connectionID]
	recent := make([]time.Time, 0, len(timestamps))
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= r.maxRequests {
		r.requests[connectionID] = recent
		return false
	}

	recent = append(recent, now)
	r.requests[connectionID] = recent
	return true
}

// Cleanup drops entries for connections with no traffic inside the window.
func (r *RateLimiter) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.window)
	for connID, timestamps := range r.requests {
		active := false
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				active = true
				break
			}
		}
		if !active {
			delete(r.requests, connID)
		}
	}
}

func (r *RateLimiter) RemoveConnection(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.requests, connectionID)
}

// ConnectionHealth tracks the last message time per connection so the
// cleanup task can reap sockets that went silent.
type ConnectionHealth struct {
	lastActivity map[string]time.Time // connectionID -> last message time
	mu           sync.RWMutex
}

func NewConnectionHealth() *ConnectionHealth {
	return &ConnectionHealth{
		lastActivity: make(map[string]time.Time),
	}
}

// UpdateActivity records that a connection is active. Called on every
// received message, including pings.
func (h *ConnectionHealth) UpdateActivity(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastActivity[connectionID] = time.Now()
}

func (h *ConnectionHealth) IsInactive(connectionID string, timeout time.Duration) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	lastActivity, exists := h.lastActivity[connectionID]
	if !exists {
		return false
	}

	return time.Since(lastActivity) > timeout
}

func (h *ConnectionHealth) GetInactiveConnections(timeout time.Duration) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	inactive := make([]string, 0)
	now := time.Now()

	for connID, lastActivity := range h.lastActivity {
		if now.Sub(lastActivity) > timeout {
			inactive = append(inactive, connID)
		}
	}

	return inactive
}

func (h *ConnectionHealth) RemoveConnection(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.lastActivity, connectionID)
}

// ValidateMessageType rejects command types the server does not dispatch.
func ValidateMessageType(msgType string) error {
	validTypes := map[string]bool{
		MsgPing:          true,
		MsgDrawStroke:    true,
		MsgClearCanvas:   true,
		MsgSubmitDrawing: true,
		MsgGuessWord:     true,
		MsgEndGuessing:   true,
	}

	if !validTypes[msgType] {
		return fmt.Errorf("INVALID_MESSAGE_TYPE: unknown message type '%s'", msgType)
	}
	return nil
}
