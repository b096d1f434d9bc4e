package server

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	_ "github.com/joho/godotenv/autoload"

	"sketchduet-server/internal/words"
)

type Server struct {
	config            Config
	connectionManager *ConnectionManager
	gameManager       *GameManager
	sessionManager    *SessionManager
	rateLimiter       *RateLimiter
	connectionHealth  *ConnectionHealth
	wordSource        words.Source
	done              chan struct{}
}

func NewServer(config Config) (*Server, *http.Server) {
	wordSource, err := words.NewStaticSource(rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		log.Fatalf("Failed to load word list: %v", err)
	}

	srv := &Server{
		config:            config,
		connectionManager: NewConnectionManager(),
		gameManager:       NewGameManager(wordSource, rand.New(rand.NewSource(time.Now().UnixNano()))),
		sessionManager:    NewSessionManager(),
		rateLimiter:       NewRateLimiter(config.RateLimit, time.Second),
		connectionHealth:  NewConnectionHealth(),
		wordSource:        wordSource,
		done:              make(chan struct{}),
	}

	// Start background tasks
	go srv.cleanupTask()

	// Declare Server config
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Bind, config.Port),
		Handler:      srv.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return srv, httpServer
}

// cleanupTask periodically evicts idle games, reaps silent connections and
// compacts the rate limiter bookkeeping.
func (s *Server) cleanupTask() {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			evicted := s.gameManager.EvictIdleGames(s.config.GraceWindow)
			for _, gameID := range evicted {
				removed := s.sessionManager.RemoveSessionsForGame(gameID)
				log.Printf("Evicted idle game %s (%d sessions dropped)", gameID, removed)
			}

			// Closing the socket wakes its read loop, whose deferred
			// cleanup detaches the client.
			for _, connectionID := range s.connectionHealth.GetInactiveConnections(s.config.IdleTimeout) {
				if conn := s.connectionManager.GetConnection(connectionID); conn != nil {
					conn.Close(websocket.StatusGoingAway, "idle timeout")
					log.Printf("Closed idle connection %s", connectionID)
				}
			}

			s.rateLimiter.Cleanup()
		}
	}
}

// Shutdown stops the background tasks and tells every connected client the
// server is going away. The http.Server's own Shutdown drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.done)

	for _, conn := range s.connectionManager.Connections() {
		s.sendMessage(conn, ctx, ServerMessage{
			Type:    MsgErrorMessage,
			Payload: ErrorMessage{Code: "SERVER_SHUTDOWN", Message: "server is shutting down"},
		})
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
	return nil
}
