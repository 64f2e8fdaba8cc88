package games

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/engine"
)

// Errors shared by all game mappers and sessions.
var (
	ErrInvalidParams = errors.New("invalid game params")
	ErrInvalidAction = errors.New("action not legal in current state")
)

// Spec holds static metadata about a game.
type Spec struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Definition is the static rule set for a game. Definitions are read-only
// at runtime; a table change is a new definition, never an in-place edit.
type Definition struct {
	HouseEdge float64         `json:"house_edge"`
	MinBet    decimal.Decimal `json:"min_bet"`
	MaxBet    decimal.Decimal `json:"max_bet"`
}

// Result is the terminal outcome of a round. Multiplier is expressed as a
// multiple of the original base bet, so a doubled-down blackjack win pays
// Multiplier 4.0 on stake units 2. Payload is the opaque outcome stored on
// the round for fairness replay; DrawCount is the number of 4-byte RNG
// windows the round consumed.
type Result struct {
	Multiplier float64        `json:"multiplier"`
	DrawCount  int            `json:"draw_count"`
	Payload    map[string]any `json:"payload"`
}

// Game is a single-shot provably fair game: the whole outcome resolves in
// one atomic step.
type Game interface {
	Spec() Spec
	Definition() Definition

	// Play consumes draws from the generator and resolves the round.
	Play(bg *engine.ByteGenerator, params map[string]any) (Result, error)
}

// StepEffect describes wallet side effects of a session action. Extra
// stake units (double, split) are debited by the caller before the action
// result is committed.
type StepEffect struct {
	ExtraStakeUnits int
}

// Session is a live multi-step round. The full outcome (shoe order, bomb
// positions) is committed at Begin; actions only reveal it, so Apply never
// touches the RNG.
type Session interface {
	// Stage returns the current sub-state label (DEALT, CLIMBING, ...).
	Stage() string

	// Apply performs a player action. Illegal actions return
	// ErrInvalidAction, never a silent no-op.
	Apply(action string, params map[string]any) (StepEffect, error)

	// Finished reports whether the session reached a terminal state.
	Finished() bool

	// Result is valid once Finished returns true.
	Result() Result

	// View is the client-visible state. Committed-but-unrevealed parts of
	// the outcome (remaining bombs, hole cards) stay hidden until the
	// session finishes.
	View() map[string]any

	// IdleAction is the worst-case-for-player action the sweeper sends
	// through Apply when the session idles past the configured window.
	IdleAction() (string, map[string]any)

	// Snapshot serializes the session for persistence between actions.
	Snapshot() (json.RawMessage, error)
}

// MultiStep is a game whose rounds hold intermediate state across player
// actions.
type MultiStep interface {
	Game

	// Begin commits the round outcome and opens a session.
	Begin(bg *engine.ByteGenerator, params map[string]any) (Session, error)

	// Resume rebuilds a session from a persisted snapshot.
	Resume(snapshot json.RawMessage) (Session, error)
}

var registry = make(map[string]Game)

// Register adds a game to the registry.
func Register(g Game) {
	registry[g.Spec().ID] = g
}

// Get retrieves a game by ID.
func Get(id string) (Game, bool) {
	g, ok := registry[id]
	return g, ok
}

// List returns all registered game IDs, sorted.
func List() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Replay re-evaluates a round from a revealed seed triple. Multi-step
// sessions are resolved by replaying the recorded actions.
func Replay(gameID, serverSeed, clientSeed string, nonce uint64, params map[string]any, actions []RecordedAction) (Result, error) {
	g, ok := Get(gameID)
	if !ok {
		return Result{}, fmt.Errorf("unknown game %q", gameID)
	}

	bg := engine.NewByteGenerator(serverSeed, clientSeed, nonce, 0)

	ms, multi := g.(MultiStep)
	if !multi {
		return g.Play(bg, params)
	}

	sess, err := ms.Begin(bg, params)
	if err != nil {
		return Result{}, err
	}
	for _, a := range actions {
		if sess.Finished() {
			break
		}
		if _, err := sess.Apply(a.Action, a.Params); err != nil {
			return Result{}, fmt.Errorf("replaying action %q: %w", a.Action, err)
		}
	}
	if !sess.Finished() {
		return Result{}, errors.New("recorded actions do not resolve the session")
	}
	return sess.Result(), nil
}

// RecordedAction is one player action kept on a round for replay.
type RecordedAction struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

func init() {
	Register(&DiceGame{})
	Register(&LimboGame{})
	Register(&CoinflipGame{})
	Register(&RouletteGame{})
	Register(&WheelGame{})
	Register(&KenoGame{})
	Register(&SlotsGame{})
	Register(&PlinkoGame{})
	Register(&BaccaratGame{})
	Register(&BlackjackGame{})
	Register(&MinesGame{})
	Register(&TowerGame{})
	Register(&HiLoGame{})
	Register(&VideoPokerGame{})
}
