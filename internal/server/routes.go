package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	qrcode "github.com/skip2/go-qrcode"

	"sketchduet-server/internal/duet"
)

func (s *Server) RegisterRoutes() http.Handler {
	router := httprouter.New()

	router.GET("/", s.indexHandler)
	router.GET("/health", s.healthHandler)
	router.POST("/api/games", s.createGameHandler)
	router.GET("/api/words", s.wordsHandler)
	router.GET("/api/games/:gameId/qr", s.qrHandler)
	router.GET("/ws/:gameId/:clientId", s.websocketHandler)

	// Wrap the router with CORS middleware
	return s.corsMiddleware(router)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

/*
 * REST handlers
 */

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp := map[string]string{"message": "sketchduet server"}
	jsonResp, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(jsonResp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp, err := json.Marshal(HealthResponse{
		Status:            "ok",
		ActiveGames:       s.gameManager.ActiveGameCount(),
		ActiveConnections: s.connectionManager.ConnectionCount(),
	})
	if err != nil {
		http.Error(w, "Failed to marshal health check response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) createGameHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	game, err := s.gameManager.CreateGame()
	if err != nil {
		log.Printf("Failed to create game: %v", err)
		http.Error(w, "Failed to create game", http.StatusInternalServerError)
		return
	}
	log.Printf("Created game %s", game.GameID)

	resp, err := json.Marshal(CreateGameResponse{
		GameID:   game.GameID,
		ClientID: uuid.New().String(),
	})
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if _, err := w.Write(resp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func (s *Server) wordsHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	wordSet, err := s.wordSource.NextWordSet()
	if err != nil {
		log.Printf("Failed to sample word set: %v", err)
		http.Error(w, "Failed to sample word set", http.StatusInternalServerError)
		return
	}

	resp, err := json.Marshal(WordsResponse{Words: wordSet})
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// qrHandler renders a QR code for the game's join link, for handing the
// second player a phone-scannable invite.
func (s *Server) qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := NormalizeGameID(ps.ByName("gameId"))
	if _, err := s.gameManager.GetGame(gameID); err != nil {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}

	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	joinURL := fmt.Sprintf("%s://%s/%s", scheme, r.Host, gameID)

	png, err := qrcode.Encode(joinURL, qrcode.Medium, 320)
	if err != nil {
		http.Error(w, "Failed to render QR code", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

/*
 * Websocket lifecycle
 */

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := NormalizeGameID(ps.ByName("gameId"))
	clientID := strings.TrimSpace(ps.ByName("clientId"))
	asSpectator := r.URL.Query().Get("spectate") == "1"

	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.config.OriginPatterns,
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	if clientID == "" || len(clientID) > 64 {
		s.sendError(socket, ctx, "INVALID_CLIENT_ID: client id must be 1-64 characters")
		socket.Close(websocket.StatusPolicyViolation, "invalid client id")
		return
	}

	game, err := s.gameManager.GetGame(gameID)
	if err != nil {
		log.Printf("Connection for unknown game '%s'", gameID)
		s.sendMessage(socket, ctx, ServerMessage{
			Type:    MsgGameNotFound,
			Payload: GameNotFoundMessage{GameID: gameID},
		})
		socket.Close(websocket.StatusPolicyViolation, "game not found")
		return
	}

	connectionID := uuid.New().String()
	log.Printf("New connection: %s (client %s, game %s)", connectionID, clientID, gameID)
	s.connectionManager.AddConnection(connectionID, socket)

	defer func() {
		binding, wasCurrent := s.connectionManager.RemoveConnection(connectionID)
		s.rateLimiter.RemoveConnection(connectionID)
		s.connectionHealth.RemoveConnection(connectionID)
		log.Printf("Connection closed: %s", connectionID)

		// A superseded socket must not detach its replacement.
		if !wasCurrent || binding.ClientID == "" {
			return
		}
		boundGame, err := s.gameManager.GetGame(binding.GameID)
		if err != nil {
			return
		}
		boundGame.Detach(binding.ClientID)
		log.Printf("Client %s detached from game %s", binding.ClientID, binding.GameID)
		s.broadcastGameState(boundGame)
	}()

	// One socket per client id; the newest connection wins and the old one
	// is closed normally so its reconnect logic stays quiet.
	if oldConnectionID := s.connectionManager.GetConnectionIDByClient(clientID); oldConnectionID != "" {
		if oldConn := s.connectionManager.GetConnection(oldConnectionID); oldConn != nil {
			oldConn.Close(websocket.StatusNormalClosure, "superseded by a newer connection")
		}
		s.connectionManager.RemoveConnection(oldConnectionID)
		log.Printf("Superseded connection %s for client %s", oldConnectionID, clientID)
	}

	// A client that watched before keeps watching after a reconnect.
	if session, err := s.sessionManager.GetSession(clientID); err == nil &&
		session.GameID == gameID && session.Role == RoleSpectator {
		asSpectator = true
	}

	role, err := game.Attach(clientID, asSpectator)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		socket.Close(websocket.StatusInternalError, "failed to attach")
		return
	}

	s.sessionManager.StoreSession(SessionInfo{ClientID: clientID, GameID: gameID, Role: role})
	s.connectionManager.BindClient(connectionID, ClientConnection{GameID: gameID, ClientID: clientID, Role: role})
	log.Printf("Client %s attached to game %s as %s", clientID, gameID, role)

	initial := ServerMessage{
		Type: MsgInitialGameData,
		Payload: InitialGameData{
			Role:     role,
			ClientID: clientID,
			State:    game.StateFor(clientID),
		},
	}
	if err := s.sendMessage(socket, ctx, initial); err != nil {
		log.Printf("Failed to send initial-game-data to %s: %v", clientID, err)
		return
	}

	s.broadcastGameState(game)

	for {
		// Read from client
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			log.Printf("Connection %s read error: %v", connectionID, err)
			return
		}

		if !s.rateLimiter.Allow(connectionID) {
			s.sendError(socket, ctx, "RATE_LIMIT_EXCEEDED: too many messages, slow down")
			continue
		}
		s.connectionHealth.UpdateActivity(connectionID)

		if msgType != websocket.MessageText {
			log.Printf("Dropping non-text frame from %s", connectionID)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Dropping malformed frame from %s: %v", connectionID, err)
			continue
		}

		// Envelope ids are optional but must match the connection when set.
		if msg.SenderID != "" && msg.SenderID != clientID {
			s.sendError(socket, ctx, "SENDER_MISMATCH: senderId does not match this connection")
			continue
		}
		if msg.GameID != "" && NormalizeGameID(msg.GameID) != gameID {
			s.sendError(socket, ctx, "GAME_MISMATCH: gameId does not match this connection")
			continue
		}

		// Route the message
		switch msg.Type {
		case MsgPing:
			s.handlePing(socket, ctx, connectionID, msg.Payload)

		case MsgDrawStroke:
			s.handleDrawStroke(socket, ctx, connectionID, msg.Payload)

		case MsgClearCanvas:
			s.handleClearCanvas(socket, ctx, connectionID, msg.Payload)

		case MsgSubmitDrawing:
			s.handleSubmitDrawing(socket, ctx, connectionID, msg.Payload)

		case MsgGuessWord:
			s.handleGuessWord(socket, ctx, connectionID, msg.Payload)

		case MsgEndGuessing:
			s.handleEndGuessing(socket, ctx, connectionID, msg.Payload)

		default:
			log.Printf("Dropping unknown message type '%s' from %s", msg.Type, connectionID)
		}
	}
}

/*
 * Command handlers
 */

func (s *Server) handlePing(socket *websocket.Conn, ctx context.Context, connectionID string, _ json.RawMessage) {
	response := ServerMessage{
		Type:    MsgPong,
		Payload: struct{}{},
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send pong to %s: %v", connectionID, err)
	}
}

func (s *Server) handleDrawStroke(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req DrawStrokePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "INVALID_PAYLOAD: invalid draw-stroke payload")
		return
	}

	binding, game, err := s.lookupGame(connectionID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	stroke := duet.Stroke{
		ID:     "stroke-" + uuid.New().String(),
		Points: req.Points,
		Color:  req.Color,
		Width:  req.Width,
		Tool:   req.Tool,
		Author: binding.ClientID,
	}
	if stroke.Color == "" {
		stroke.Color = "#000000"
	}
	if stroke.Width == 0 {
		stroke.Width = 2
	}
	if stroke.Tool == "" {
		stroke.Tool = duet.ToolPen
	}

	if err := game.ApplyStroke(binding.ClientID, stroke); err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	// The drawer renders its own stroke locally; everyone else gets it here.
	s.broadcastStroke(game, stroke)
}

func (s *Server) handleClearCanvas(socket *websocket.Conn, ctx context.Context, connectionID string, _ json.RawMessage) {
	binding, game, err := s.lookupGame(connectionID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	if err := game.ApplyClear(binding.ClientID); err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.broadcastCanvasCleared(game, binding.ClientID)
}

func (s *Server) handleSubmitDrawing(socket *websocket.Conn, ctx context.Context, connectionID string, _ json.RawMessage) {
	binding, game, err := s.lookupGame(connectionID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	if err := game.ApplySubmit(binding.ClientID); err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	log.Printf("Game %s: %s submitted the drawing", game.GameID, binding.ClientID)
	s.broadcastGameState(game)
}

func (s *Server) handleGuessWord(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req GuessPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.Index == nil {
		s.sendError(socket, ctx, "INVALID_PAYLOAD: guess-word requires a cell index")
		return
	}

	binding, game, err := s.lookupGame(connectionID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	result, err := game.ApplyGuess(binding.ClientID, *req.Index)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	log.Printf("Game %s: %s guessed cell %d (%s)", game.GameID, binding.ClientID, result.Index, result.Category)
	if res := game.GameResult(); res != duet.ResultNone {
		log.Printf("Game %s finished: %s", game.GameID, res)
	}

	s.broadcastGameState(game)
}

func (s *Server) handleEndGuessing(socket *websocket.Conn, ctx context.Context, connectionID string, _ json.RawMessage) {
	binding, game, err := s.lookupGame(connectionID)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	if err := game.ApplyEndGuessing(binding.ClientID); err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	log.Printf("Game %s: %s ended guessing", game.GameID, binding.ClientID)
	s.broadcastGameState(game)
}

// lookupGame resolves a connection's binding to its game.
func (s *Server) lookupGame(connectionID string) (ClientConnection, *ActiveGame, error) {
	binding, ok := s.connectionManager.GetBinding(connectionID)
	if !ok {
		return ClientConnection{}, nil, errors.New("NOT_IN_GAME: no game bound to this connection")
	}
	game, err := s.gameManager.GetGame(binding.GameID)
	if err != nil {
		return binding, nil, err
	}
	return binding, game, nil
}

/*
 * Outbound
 */

func (s *Server) sendMessage(socket *websocket.Conn, ctx context.Context, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	return socket.Write(ctx, websocket.MessageText, data)
}

func (s *Server) sendError(socket *websocket.Conn, ctx context.Context, errMsg string) {
	code, message := splitErrorCode(errMsg)
	response := ServerMessage{
		Type: MsgErrorMessage,
		Payload: ErrorMessage{
			Message: message,
			Code:    code,
		},
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Printf("Failed to send error message: %v", err)
	}
}

// splitErrorCode peels the machine-readable prefix off "SOME_CODE: message"
// errors. Errors without such a prefix keep an empty code.
func splitErrorCode(errMsg string) (code, message string) {
	head, tail, found := strings.Cut(errMsg, ": ")
	if !found || head == "" {
		return "", errMsg
	}
	for _, ch := range head {
		if (ch < 'A' || ch > 'Z') && ch != '_' {
			return "", errMsg
		}
	}
	return head, tail
}

// deliverTo sends one message to a client's current socket. A failed send
// detaches that client; the remaining recipients are unaffected.
func (s *Server) deliverTo(game *ActiveGame, clientID string, msg ServerMessage) {
	conn := s.connectionManager.GetConnectionByClient(clientID)
	if conn == nil {
		return
	}

	// Use background context for broadcasts
	if err := s.sendMessage(conn, context.Background(), msg); err != nil {
		log.Printf("Failed to deliver %s to client %s: %v", msg.Type, clientID, err)
		game.Detach(clientID)
	}
}

// broadcastGameState sends each attached client its own personalized view.
// Snapshots are built under the game lock, sends happen outside it.
func (s *Server) broadcastGameState(game *ActiveGame) {
	for _, out := range game.SnapshotStates() {
		s.deliverTo(game, out.clientID, out.message)
	}
}

func (s *Server) broadcastStroke(game *ActiveGame, stroke duet.Stroke) {
	msg := ServerMessage{
		Type:    MsgStrokeDrawn,
		Payload: StrokeDrawnMessage{GameID: game.GameID, Stroke: stroke},
	}
	for _, clientID := range game.AttachedClientIDs() {
		if clientID == stroke.Author {
			continue
		}
		s.deliverTo(game, clientID, msg)
	}
}

func (s *Server) broadcastCanvasCleared(game *ActiveGame, clearedBy string) {
	msg := ServerMessage{
		Type:    MsgCanvasCleared,
		Payload: CanvasClearedMessage{GameID: game.GameID, ClearedBy: clearedBy},
	}
	for _, clientID := range game.AttachedClientIDs() {
		s.deliverTo(game, clientID, msg)
	}
}
