package server

import (
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	limiter := NewRateLimiter(10, time.Second)
	connID := "conn-1"

	for i := 0; i < 10; i++ {
		if !limiter.Allow(connID) {
			t.Errorf("Message %d should be allowed", i+1)
		}
	}

	if limiter.Allow(connID) {
		t.Error("11th message should be denied")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	limiter := NewRateLimiter(2, 100*time.Millisecond)
	connID := "conn-2"

	if !limiter.Allow(connID) {
		t.Error("First message should be allowed")
	}
	if !limiter.Allow(connID) {
		t.Error("Second message should be allowed")
	}
	if limiter.Allow(connID) {
		t.Error("Third message should be denied")
	}

	time.Sleep(150 * time.Millisecond)

	if !limiter.Allow(connID) {
		t.Error("Message after the window passed should be allowed")
	}
}

func TestRateLimiterIsolatesConnections(t *testing.T) {
	limiter := NewRateLimiter(5, time.Second)

	for i := 0; i < 5; i++ {
		limiter.Allow("noisy")
	}
	if limiter.Allow("noisy") {
		t.Error("noisy connection should be rate limited")
	}

	// An unrelated connection keeps its full budget
	for i := 0; i < 5; i++ {
		if !limiter.Allow("quiet") {
			t.Errorf("quiet connection message %d should be allowed", i+1)
		}
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	limiter := NewRateLimiter(10, 100*time.Millisecond)

	for i := 0; i < 5; i++ {
		limiter.Allow("conn-" + string(rune('0'+i)))
	}

	limiter.mu.Lock()
	if len(limiter.requests) != 5 {
		t.Errorf("Expected 5 tracked connections, got %d", len(limiter.requests))
	}
	limiter.mu.Unlock()

	time.Sleep(200 * time.Millisecond)
	limiter.Cleanup()

	limiter.mu.Lock()
	if len(limiter.requests) != 0 {
		t.Errorf("Expected 0 tracked connections after cleanup, got %d", len(limiter.requests))
	}
	limiter.mu.Unlock()
}

func TestConnectionHealthIsInactive(t *testing.T) {
	health := NewConnectionHealth()
	connID := "conn-1"

	// Untracked connections are never reported inactive
	if health.IsInactive(connID, time.Minute) {
		t.Error("Untracked connection should not be inactive")
	}

	health.UpdateActivity(connID)
	if health.IsInactive(connID, time.Minute) {
		t.Error("Recently active connection should not be inactive")
	}

	health.mu.Lock()
	health.lastActivity[connID] = time.Now().Add(-2 * time.Minute)
	health.mu.Unlock()

	if !health.IsInactive(connID, time.Minute) {
		t.Error("Connection silent for 2 minutes should be inactive")
	}
}

func TestConnectionHealthGetInactiveConnections(t *testing.T) {
	health := NewConnectionHealth()

	health.UpdateActivity("active-1")
	health.UpdateActivity("active-2")

	health.mu.Lock()
	health.lastActivity["silent-1"] = time.Now().Add(-6 * time.Minute)
	health.lastActivity["silent-2"] = time.Now().Add(-10 * time.Minute)
	health.mu.Unlock()

	inactive := health.GetInactiveConnections(5 * time.Minute)
	if len(inactive) != 2 {
		t.Fatalf("Expected 2 inactive connections, got %d", len(inactive))
	}

	found := map[string]bool{}
	for _, id := range inactive {
		found[id] = true
	}
	if !found["silent-1"] || !found["silent-2"] {
		t.Error("Both silent connections should be reported")
	}
}

func TestConnectionHealthRemoveConnection(t *testing.T) {
	health := NewConnectionHealth()
	connID := "conn-1"

	health.UpdateActivity(connID)
	health.RemoveConnection(connID)

	health.mu.RLock()
	_, exists := health.lastActivity[connID]
	health.mu.RUnlock()
	if exists {
		t.Error("Removed connection should no longer be tracked")
	}
}

func TestValidateMessageType(t *testing.T) {
	validTypes := []string{"ping", "draw-stroke", "clear-canvas",
		"submit-drawing", "guess-word", "end-guessing"}

	for _, msgType := range validTypes {
		if err := ValidateMessageType(msgType); err != nil {
			t.Errorf("Valid message type '%s' should not error", msgType)
		}
	}

	invalidTypes := []string{"draw", "guess", "DRAW-STROKE", "game-state", ""}
	for _, msgType := range invalidTypes {
		if err := ValidateMessageType(msgType); err == nil {
			t.Errorf("Invalid message type '%s' should error", msgType)
		}
	}
}
