package server

import "sketchduet-server/internal/duet"

// ============================================================================
// ERROR RESPONSES
// ============================================================================
type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ============================================================================
// CREATE GAME (POST /api/games)
// ============================================================================
type CreateGameResponse struct {
	GameID   string `json:"gameId"`
	ClientID string `json:"clientId"`
}

// ============================================================================
// WORD SET (GET /api/words)
// ============================================================================
type WordsResponse struct {
	Words []string `json:"words"`
}

// ============================================================================
// HEALTH (GET /health)
// ============================================================================
type HealthResponse struct {
	Status            string `json:"status"`
	ActiveGames       int    `json:"activeGames"`
	ActiveConnections int    `json:"activeConnections"`
}

// ============================================================================
// COMMAND PAYLOADS (client → server)
// ============================================================================
type DrawStrokePayload struct {
	Points []duet.Point `json:"points"`
	Color  string       `json:"color,omitempty"`
	Width  int          `json:"width,omitempty"`
	Tool   duet.Tool    `json:"tool,omitempty"`
}

// Index is a pointer so a missing field is distinguishable from cell 0.
type GuessPayload struct {
	Index *int `json:"index"`
}

// ============================================================================
// INITIAL GAME DATA (initial-game-data, sent once per attach)
// ============================================================================
type InitialGameData struct {
	Role     Role             `json:"role"`
	ClientID string           `json:"clientId"`
	State    GameStateMessage `json:"state"`
}

// ============================================================================
// GAME STATE (game-state broadcast)
// ============================================================================
// GameStateMessage is personalized per recipient: Game carries the
// recipient's own key card and never the partner's.
type GameStateMessage struct {
	GameID       string            `json:"gameId"`
	DrawerID     string            `json:"currentDrawerId,omitempty"`
	GuesserID    string            `json:"currentGuesserId,omitempty"`
	ConnectedIDs []string          `json:"connectedClientIds"`
	Game         *duet.ClientState `json:"game"`
}

// ============================================================================
// CANVAS EVENTS (stroke-drawn / canvas-cleared broadcasts)
// ============================================================================
type StrokeDrawnMessage struct {
	GameID string      `json:"gameId"`
	Stroke duet.Stroke `json:"stroke"`
}

type CanvasClearedMessage struct {
	GameID    string `json:"gameId"`
	ClearedBy string `json:"clearedBy"`
}

// ============================================================================
// GAME NOT FOUND (game-not-found, terminal)
// ============================================================================
type GameNotFoundMessage struct {
	GameID string `json:"gameId"`
}
