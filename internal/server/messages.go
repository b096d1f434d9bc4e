package server

import "encoding/json"

// Client → server command types
const (
	MsgPing          = "ping"
	MsgDrawStroke    = "draw-stroke"
	MsgClearCanvas   = "clear-canvas"
	MsgSubmitDrawing = "submit-drawing"
	MsgGuessWord     = "guess-word"
	MsgEndGuessing   = "end-guessing"
)

// Server → client message types
const (
	MsgPong            = "pong"
	MsgInitialGameData = "initial-game-data"
	MsgStrokeDrawn     = "stroke-drawn"
	MsgCanvasCleared   = "canvas-cleared"
	MsgGameState       = "game-state"
	MsgGameNotFound    = "game-not-found"
	MsgErrorMessage    = "error-message"
)

// ClientMessage is the envelope for every inbound websocket frame. The
// payload stays raw until the type switch picks a concrete shape for it.
type ClientMessage struct {
	Type     string          `json:"type"`
	GameID   string          `json:"gameId,omitempty"`
	SenderID string          `json:"senderId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
