package server

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"sketchduet-server/internal/duet"
	"sketchduet-server/internal/words"
)

// Role is what a client is attached to a game as. The first two distinct
// client ids take the seats; everyone after that watches.
type Role string

const (
	RolePlayerA   Role = "player-a"
	RolePlayerB   Role = "player-b"
	RoleSpectator Role = "spectator"
)

// Seat maps a role to its board seat. Spectators have none.
func (r Role) Seat() (duet.Seat, bool) {
	switch r {
	case RolePlayerA:
		return duet.SeatA, true
	case RolePlayerB:
		return duet.SeatB, true
	}
	return duet.SeatA, false
}

func roleForSeat(seat duet.Seat) Role {
	if seat == duet.SeatA {
		return RolePlayerA
	}
	return RolePlayerB
}

type GameManager struct {
	games  map[string]*ActiveGame // normalized game id → session
	source words.Source
	rng    *rand.Rand // guarded by mu; seeds per-game generators
	mu     sync.RWMutex
}

// ActiveGame wraps one duet.Game with its attachments. All access to the
// embedded game goes through methods that hold mu, so commands within a
// session are serialized while separate sessions stay independent.
type ActiveGame struct {
	GameID     string
	Game       *duet.Game
	Seats      [2]SeatSlot
	Watchers   map[string]bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	EmptySince time.Time // zero while at least one client is attached
	mu         sync.Mutex
}

type SeatSlot struct {
	ClientID  string
	Connected bool
	JoinedAt  time.Time
}

// outbound pairs a personalized message with the client it is meant for.
type outbound struct {
	clientID string
	message  ServerMessage
}

func NewGameManager(source words.Source, rng *rand.Rand) *GameManager {
	return &GameManager{
		games:  make(map[string]*ActiveGame),
		source: source,
		rng:    rng,
	}
}

// CreateGame registers a game under a freshly allocated memorable id.
func (gm *GameManager) CreateGame() (*ActiveGame, error) {
	gm.mu.Lock()
	id := AllocateGameID(gm.rng, func(candidate string) bool {
		_, exists := gm.games[candidate]
		return exists
	})
	gm.mu.Unlock()

	return gm.GetOrCreateGame(id)
}

// GetOrCreateGame returns the game registered under id, creating it with a
// fresh word set when no such game exists. Lookups are case-insensitive.
func (gm *GameManager) GetOrCreateGame(id string) (*ActiveGame, error) {
	id = NormalizeGameID(id)
	if err := ValidateGameID(id); err != nil {
		return nil, err
	}

	gm.mu.RLock()
	game, exists := gm.games[id]
	gm.mu.RUnlock()
	if exists {
		return game, nil
	}

	wordSet, err := gm.source.NextWordSet()
	if err != nil {
		return nil, err
	}

	gm.mu.Lock()
	defer gm.mu.Unlock()

	// Someone else may have registered the id between the two locks.
	if game, exists := gm.games[id]; exists {
		return game, nil
	}

	gameRNG := rand.New(rand.NewSource(gm.rng.Int63()))
	duetGame, err := duet.NewGame(id, wordSet, gameRNG)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	game = &ActiveGame{
		GameID:     id,
		Game:       duetGame,
		Watchers:   make(map[string]bool),
		CreatedAt:  now,
		UpdatedAt:  now,
		EmptySince: now,
	}
	gm.games[id] = game
	return game, nil
}

func (gm *GameManager) GetGame(id string) (*ActiveGame, error) {
	id = NormalizeGameID(id)

	gm.mu.RLock()
	defer gm.mu.RUnlock()

	game, exists := gm.games[id]
	if !exists {
		return nil, fmt.Errorf("GAME_NOT_FOUND: no game with id '%s'", id)
	}
	return game, nil
}

func (gm *GameManager) ActiveGameCount() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	return len(gm.games)
}

// EvictIdleGames drops finished games with nobody attached and any empty
// game whose grace window has run out. Returns the evicted ids.
func (gm *GameManager) EvictIdleGames(grace time.Duration) []string {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	evicted := make([]string, 0)
	for id, game := range gm.games {
		if game.Evictable(grace) {
			delete(gm.games, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

/*
 * Attachment
 */

// Attach binds clientID to the game. A returning client reclaims its seat
// regardless of asSpectator; otherwise the first free seat is taken unless
// the client asked to watch or both seats are occupied. Filling the second
// seat starts the game.
func (ag *ActiveGame) Attach(clientID string, asSpectator bool) (Role, error) {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	for i := range ag.Seats {
		if ag.Seats[i].ClientID == clientID {
			ag.Seats[i].Connected = true
			ag.touchLocked()
			return roleForSeat(duet.Seat(i)), nil
		}
	}

	if !asSpectator {
		for i := range ag.Seats {
			if ag.Seats[i].ClientID != "" {
				continue
			}
			ag.Seats[i] = SeatSlot{ClientID: clientID, Connected: true, JoinedAt: time.Now()}
			ag.touchLocked()
			role := roleForSeat(duet.Seat(i))
			if i == int(duet.SeatB) {
				if err := ag.Game.Start(); err != nil {
					return role, err
				}
			}
			return role, nil
		}
	}

	ag.Watchers[clientID] = true
	ag.touchLocked()
	return RoleSpectator, nil
}

// Detach marks a seated client disconnected or removes a watcher. Seats are
// never vacated, so the client can reclaim its role later.
func (ag *ActiveGame) Detach(clientID string) {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	found := false
	for i := range ag.Seats {
		if ag.Seats[i].ClientID == clientID {
			ag.Seats[i].Connected = false
			found = true
		}
	}
	if ag.Watchers[clientID] {
		delete(ag.Watchers, clientID)
		found = true
	}
	if !found {
		return
	}

	ag.UpdatedAt = time.Now()
	if !ag.anyAttachedLocked() {
		ag.EmptySince = ag.UpdatedAt
	}
}

// Evictable reports whether the cleanup task may drop this game. Finished
// games go as soon as they are empty; unfinished ones wait out the grace
// window in case a player reconnects.
func (ag *ActiveGame) Evictable(grace time.Duration) bool {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	if ag.EmptySince.IsZero() {
		return false
	}
	if ag.Game.Over() {
		return true
	}
	return time.Since(ag.EmptySince) > grace
}

/*
 * Commands
 */

func (ag *ActiveGame) ApplyStroke(clientID string, stroke duet.Stroke) error {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	seat, err := ag.seatOfLocked(clientID)
	if err != nil {
		return err
	}
	if err := ag.Game.AddStroke(seat, stroke); err != nil {
		return err
	}
	ag.touchLocked()
	return nil
}

func (ag *ActiveGame) ApplyClear(clientID string) error {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	seat, err := ag.seatOfLocked(clientID)
	if err != nil {
		return err
	}
	if err := ag.Game.ClearStrokes(seat); err != nil {
		return err
	}
	ag.touchLocked()
	return nil
}

func (ag *ActiveGame) ApplySubmit(clientID string) error {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	seat, err := ag.seatOfLocked(clientID)
	if err != nil {
		return err
	}
	if err := ag.Game.SubmitDrawing(seat); err != nil {
		return err
	}
	ag.touchLocked()
	return nil
}

func (ag *ActiveGame) ApplyGuess(clientID string, index int) (duet.GuessResult, error) {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	seat, err := ag.seatOfLocked(clientID)
	if err != nil {
		return duet.GuessResult{}, err
	}
	result, err := ag.Game.Guess(seat, index)
	if err != nil {
		return duet.GuessResult{}, err
	}
	ag.touchLocked()
	return result, nil
}

func (ag *ActiveGame) ApplyEndGuessing(clientID string) error {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	seat, err := ag.seatOfLocked(clientID)
	if err != nil {
		return err
	}
	if err := ag.Game.EndGuessing(seat); err != nil {
		return err
	}
	ag.touchLocked()
	return nil
}

/*
 * Snapshots
 */

// StateFor builds the personalized game-state snapshot for one client.
func (ag *ActiveGame) StateFor(clientID string) GameStateMessage {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	role, ok := ag.roleOfLocked(clientID)
	if !ok {
		role = RoleSpectator
	}
	return ag.stateForLocked(role)
}

// SnapshotStates builds one personalized game-state message per attached
// client. The caller sends them after this returns, outside the lock.
func (ag *ActiveGame) SnapshotStates() []outbound {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	out := make([]outbound, 0, 2+len(ag.Watchers))
	for i := range ag.Seats {
		slot := ag.Seats[i]
		if slot.ClientID == "" || !slot.Connected {
			continue
		}
		out = append(out, outbound{
			clientID: slot.ClientID,
			message:  ServerMessage{Type: MsgGameState, Payload: ag.stateForLocked(roleForSeat(duet.Seat(i)))},
		})
	}
	for _, watcher := range ag.watcherIDsLocked() {
		out = append(out, outbound{
			clientID: watcher,
			message:  ServerMessage{Type: MsgGameState, Payload: ag.stateForLocked(RoleSpectator)},
		})
	}
	return out
}

// AttachedClientIDs returns every currently connected client id.
func (ag *ActiveGame) AttachedClientIDs() []string {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	return ag.connectedIDsLocked()
}

// RoleOf reports how clientID is attached, if at all.
func (ag *ActiveGame) RoleOf(clientID string) (Role, bool) {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	return ag.roleOfLocked(clientID)
}

// GameResult reports the terminal result, or ResultNone while play goes on.
func (ag *ActiveGame) GameResult() duet.Result {
	ag.mu.Lock()
	defer ag.mu.Unlock()

	return ag.Game.Result()
}

/*
 * Internals, callers hold ag.mu
 */

func (ag *ActiveGame) stateForLocked(role Role) GameStateMessage {
	var state *duet.ClientState
	if seat, ok := role.Seat(); ok {
		state = ag.Game.GetClientState(seat)
	} else {
		state = ag.Game.GetSpectatorState()
	}

	msg := GameStateMessage{
		GameID:       ag.GameID,
		ConnectedIDs: ag.connectedIDsLocked(),
		Game:         state,
	}
	if ag.Game.Phase != duet.PhaseWaiting {
		msg.DrawerID = ag.Seats[ag.Game.Drawer].ClientID
		msg.GuesserID = ag.Seats[ag.Game.Guesser()].ClientID
	}
	return msg
}

func (ag *ActiveGame) seatOfLocked(clientID string) (duet.Seat, error) {
	for i := range ag.Seats {
		if ag.Seats[i].ClientID == clientID {
			return duet.Seat(i), nil
		}
	}
	if ag.Watchers[clientID] {
		return duet.SeatA, errors.New("SPECTATOR_FORBIDDEN: spectators cannot send game commands")
	}
	return duet.SeatA, errors.New("NOT_IN_GAME: client is not attached to this game")
}

func (ag *ActiveGame) roleOfLocked(clientID string) (Role, bool) {
	for i := range ag.Seats {
		if ag.Seats[i].ClientID == clientID {
			return roleForSeat(duet.Seat(i)), true
		}
	}
	if ag.Watchers[clientID] {
		return RoleSpectator, true
	}
	return RoleSpectator, false
}

func (ag *ActiveGame) connectedIDsLocked() []string {
	ids := make([]string, 0, 2+len(ag.Watchers))
	for _, slot := range ag.Seats {
		if slot.ClientID != "" && slot.Connected {
			ids = append(ids, slot.ClientID)
		}
	}
	return append(ids, ag.watcherIDsLocked()...)
}

func (ag *ActiveGame) watcherIDsLocked() []string {
	ids := make([]string, 0, len(ag.Watchers))
	for id := range ag.Watchers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (ag *ActiveGame) anyAttachedLocked() bool {
	for _, slot := range ag.Seats {
		if slot.ClientID != "" && slot.Connected {
			return true
		}
	}
	return len(ag.Watchers) > 0
}

func (ag *ActiveGame) touchLocked() {
	ag.UpdatedAt = time.Now()
	if ag.anyAttachedLocked() {
		ag.EmptySince = time.Time{}
	}
}
