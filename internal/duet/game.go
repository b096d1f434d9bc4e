package duet

import (
	"errors"
	"fmt"
	"math/rand"
)

type Seat int

const (
	SeatA Seat = 0
	SeatB Seat = 1
)

func (s Seat) Other() Seat {
	if s == SeatA {
		return SeatB
	}
	return SeatA
}

func (s Seat) String() string {
	if s == SeatA {
		return "A"
	}
	return "B"
}

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseDrawing  Phase = "drawing"
	PhaseGuessing Phase = "guessing"
	PhaseWon      Phase = "game_over_win"
	PhaseLost     Phase = "game_over_loss"
)

type Result string

const (
	ResultNone Result = "none"
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
)

// Game is the authoritative state of one session. It is not safe for
// concurrent use; the server serializes all calls per game.
type Game struct {
	Id              string
	Words           []string
	Cards           [2]KeyCard
	Reveals         RevealBoard
	Phase           Phase
	Turn            int
	Drawer          Seat
	CorrectThisTurn int
	Strokes         []Stroke

	rng *rand.Rand
}

func NewGame(id string, words []string, rng *rand.Rand) (*Game, error) {
	if len(words) != GridSize {
		return nil, fmt.Errorf("INVALID_WORD_COUNT: need exactly %d words, got %d", GridSize, len(words))
	}
	seen := make(map[string]bool, len(words))
	for _, word := range words {
		if seen[word] {
			return nil, fmt.Errorf("DUPLICATE_WORD: %q appears more than once in the grid", word)
		}
		seen[word] = true
	}

	return &Game{
		Id:      id,
		Words:   words,
		Reveals: NewRevealBoard(GridSize),
		Phase:   PhaseWaiting,
		Strokes: make([]Stroke, 0),
		rng:     rng,
	}, nil
}

func (g *Game) Guesser() Seat {
	return g.Drawer.Other()
}

func (g *Game) Over() bool {
	return g.Phase == PhaseWon || g.Phase == PhaseLost
}

func (g *Game) Result() Result {
	switch g.Phase {
	case PhaseWon:
		return ResultWin
	case PhaseLost:
		return ResultLoss
	default:
		return ResultNone
	}
}

/*
 * Game start
 */

// Start fires when the second participant is seated. Key cards are generated
// exactly once here; the first seat draws first.
func (g *Game) Start() error {
	if g.Phase != PhaseWaiting {
		return errors.New("WRONG_PHASE: game has already started")
	}

	cardA, cardB, err := GenerateKeyCards(g.rng, GridSize)
	if err != nil {
		return err
	}
	g.Cards[SeatA] = cardA
	g.Cards[SeatB] = cardB

	g.Phase = PhaseDrawing
	g.Drawer = SeatA
	g.Turn = 1
	return nil
}

/*
 * Drawing phase
 */

func (g *Game) AddStroke(seat Seat, stroke Stroke) error {
	if err := g.requireDrawer(seat); err != nil {
		return err
	}
	if err := stroke.Validate(); err != nil {
		return err
	}

	g.Strokes = append(g.Strokes, stroke)
	return nil
}

func (g *Game) ClearStrokes(seat Seat) error {
	if err := g.requireDrawer(seat); err != nil {
		return err
	}

	g.Strokes = make([]Stroke, 0)
	return nil
}

func (g *Game) SubmitDrawing(seat Seat) error {
	if err := g.requireDrawer(seat); err != nil {
		return err
	}

	g.Phase = PhaseGuessing
	return nil
}

/*
 * Guessing phase
 */

type GuessResult struct {
	Index     int
	Category  Category
	TurnEnded bool
}

// Guess resolves one cell against the guesser's own key card. Green keeps
// the turn going (and may win the game), neutral hands the turn over,
// assassin loses immediately.
func (g *Game) Guess(seat Seat, index int) (GuessResult, error) {
	if err := g.requireGuesser(seat); err != nil {
		return GuessResult{}, err
	}
	if index < 0 || index >= GridSize {
		return GuessResult{}, fmt.Errorf("INVALID_INDEX: cell %d is not on the board", index)
	}
	if !g.Reveals.IsCellClickable(seat, index) {
		return GuessResult{}, fmt.Errorf("CELL_UNAVAILABLE: cell %d is not guessable from your side", index)
	}

	category := g.Cards[seat][index]
	g.Reveals.RevealFor(seat, index, category)

	switch category {
	case CategoryGreen:
		g.CorrectThisTurn++
		if g.Reveals.TeamGreenCount() >= WinThreshold {
			g.Phase = PhaseWon
		}
		return GuessResult{Index: index, Category: category}, nil
	case CategoryAssassin:
		g.Phase = PhaseLost
		return GuessResult{Index: index, Category: category}, nil
	default:
		g.endTurn()
		return GuessResult{Index: index, Category: category, TurnEnded: true}, nil
	}
}

// EndGuessing is the guesser's voluntary stop. The turn ends exactly as on
// a neutral guess, but no cell is marked.
func (g *Game) EndGuessing(seat Seat) error {
	if err := g.requireGuesser(seat); err != nil {
		return err
	}

	g.endTurn()
	return nil
}

func (g *Game) endTurn() {
	g.Drawer = g.Drawer.Other()
	g.Turn++
	g.CorrectThisTurn = 0
	g.Strokes = make([]Stroke, 0)
	g.Phase = PhaseDrawing
}

/*
 * Guards
 */

func (g *Game) requireDrawer(seat Seat) error {
	if g.Over() {
		return errors.New("GAME_ALREADY_OVER: no further commands are accepted")
	}
	if g.Phase != PhaseDrawing {
		return fmt.Errorf("WRONG_PHASE: drawing commands are not valid during the %s phase", g.Phase)
	}
	if seat != g.Drawer {
		return errors.New("NOT_YOUR_TURN: only the current drawer may do that")
	}
	return nil
}

func (g *Game) requireGuesser(seat Seat) error {
	if g.Over() {
		return errors.New("GAME_ALREADY_OVER: no further commands are accepted")
	}
	if g.Phase != PhaseGuessing {
		return fmt.Errorf("WRONG_PHASE: guessing commands are not valid during the %s phase", g.Phase)
	}
	if seat != g.Guesser() {
		return errors.New("NOT_YOUR_TURN: only the current guesser may do that")
	}
	return nil
}
