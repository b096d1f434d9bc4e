package duet

// ClientState is one recipient's view of the game. Seats receive their own
// key card and never the opposing one; spectators receive no key card at
// all, only the team-level reveal board.
type ClientState struct {
	Words           []string    `json:"words"`
	KeyCard         KeyCard     `json:"keyCard,omitempty"` // nil for spectators and before the game starts
	Reveals         RevealBoard `json:"reveals"`
	Phase           Phase       `json:"phase"`
	Turn            int         `json:"turn"`
	CorrectThisTurn int         `json:"correctGuessesThisTurn"`
	Result          Result      `json:"result"`
	Strokes         []Stroke    `json:"strokes"`
}

func (g *Game) GetClientState(seat Seat) *ClientState {
	state := g.baseState()
	state.KeyCard = g.Cards[seat]
	return state
}

func (g *Game) GetSpectatorState() *ClientState {
	return g.baseState()
}

func (g *Game) baseState() *ClientState {
	// Reveals and Strokes are copied so a snapshot stays stable after the
	// caller releases its lock and the game mutates underneath.
	reveals := make(RevealBoard, len(g.Reveals))
	copy(reveals, g.Reveals)
	strokes := make([]Stroke, len(g.Strokes))
	copy(strokes, g.Strokes)

	return &ClientState{
		Words:           g.Words,
		Reveals:         reveals,
		Phase:           g.Phase,
		Turn:            g.Turn,
		CorrectThisTurn: g.CorrectThisTurn,
		Result:          g.Result(),
		Strokes:         strokes,
	}
}
