package games

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/engine"
)

// MinesGame implements Mines on a 5x5 grid. Bomb positions are committed
// for the whole round at creation and revealed incrementally.
type MinesGame struct{}

const (
	minesTiles    = 25
	minesDefault  = 3
	minesMinCount = 1
	minesMaxCount = 24
	minesEdge     = 0.01
)

// Spec returns metadata about the Mines game.
func (g *MinesGame) Spec() Spec {
	return Spec{ID: "mines", Name: "Mines"}
}

// Definition returns the static rule set for Mines.
func (g *MinesGame) Definition() Definition {
	return Definition{
		HouseEdge: minesEdge,
		MinBet:    decimal.RequireFromString("0.00000001"),
		MaxBet:    decimal.RequireFromString("100"),
	}
}

// Play resolves Mines single-shot only for replay symmetry; live rounds go
// through Begin. It commits the layout and cashes out immediately.
func (g *MinesGame) Play(bg *engine.ByteGenerator, params map[string]any) (Result, error) {
	sess, err := g.Begin(bg, params)
	if err != nil {
		return Result{}, err
	}
	if _, err := sess.Apply("cashout", nil); err != nil {
		return Result{}, err
	}
	return sess.Result(), nil
}

// Begin commits bomb positions via an unbiased shuffle and opens the
// session.
func (g *MinesGame) Begin(bg *engine.ByteGenerator, params map[string]any) (Session, error) {
	bombCount, err := paramInt(params, "mines", minesDefault)
	if err != nil {
		return nil, err
	}
	if bombCount < minesMinCount || bombCount > minesMaxCount {
		return nil, fmt.Errorf("%w: mines count must be between %d and %d, got %d", ErrInvalidParams, minesMinCount, minesMaxCount, bombCount)
	}

	perm := bg.Shuffle(minesTiles)
	bombs := make([]int, bombCount)
	copy(bombs, perm[:bombCount])

	return &minesSession{
		Bombs:     bombs,
		BombCount: bombCount,
		DrawCount: bg.Draws(),
	}, nil
}

// Resume rebuilds a Mines session from its snapshot.
func (g *MinesGame) Resume(snapshot json.RawMessage) (Session, error) {
	var s minesSession
	if err := json.Unmarshal(snapshot, &s); err != nil {
		return nil, fmt.Errorf("mines snapshot: %w", err)
	}
	return &s, nil
}

type minesSession struct {
	Bombs     []int   `json:"bombs"`
	BombCount int     `json:"bomb_count"`
	Revealed  []int   `json:"revealed"`
	Busted    bool    `json:"busted"`
	BustCell  int     `json:"bust_cell"`
	Done      bool    `json:"done"`
	DrawCount int     `json:"draw_count"`
	Final     float64 `json:"final"`
}

func (s *minesSession) Stage() string {
	if s.Done {
		return "SETTLED"
	}
	return "REVEALING"
}

func (s *minesSession) Finished() bool { return s.Done }

func (s *minesSession) Apply(action string, params map[string]any) (StepEffect, error) {
	if s.Done {
		return StepEffect{}, ErrInvalidAction
	}

	switch action {
	case "reveal":
		cell, err := paramInt(params, "cell", -1)
		if err != nil {
			return StepEffect{}, err
		}
		if cell < 0 || cell >= minesTiles {
			return StepEffect{}, fmt.Errorf("%w: cell must be 0-%d", ErrInvalidParams, minesTiles-1)
		}
		for _, r := range s.Revealed {
			if r == cell {
				return StepEffect{}, fmt.Errorf("%w: cell %d already revealed", ErrInvalidAction, cell)
			}
		}

		if s.isBomb(cell) {
			s.Busted = true
			s.BustCell = cell
			s.Done = true
			s.Final = 0
			return StepEffect{}, nil
		}

		s.Revealed = append(s.Revealed, cell)
		// Revealing every safe tile leaves nothing to play for.
		if len(s.Revealed) == minesTiles-s.BombCount {
			s.Done = true
			s.Final = s.multiplier()
		}
		return StepEffect{}, nil

	case "cashout":
		s.Done = true
		s.Final = s.multiplier()
		return StepEffect{}, nil

	default:
		return StepEffect{}, fmt.Errorf("%w: mines has no action %q", ErrInvalidAction, action)
	}
}

// multiplier after r safe reveals with m bombs:
// (1-edge) * prod_{i<r} (25-i)/(25-m-i). Zero reveals pay the stake back.
func (s *minesSession) multiplier() float64 {
	r := len(s.Revealed)
	if r == 0 {
		return 1.0
	}
	mult := 1 - minesEdge
	for i := 0; i < r; i++ {
		mult *= float64(minesTiles-i) / float64(minesTiles-s.BombCount-i)
	}
	return math.Floor(mult*10000) / 10000
}

func (s *minesSession) isBomb(cell int) bool {
	for _, b := range s.Bombs {
		if b == cell {
			return true
		}
	}
	return false
}

func (s *minesSession) Result() Result {
	return Result{
		Multiplier: s.Final,
		DrawCount:  s.DrawCount,
		Payload: map[string]any{
			"bombs":      s.Bombs,
			"bomb_count": s.BombCount,
			"revealed":   s.Revealed,
			"busted":     s.Busted,
			"multiplier": s.Final,
		},
	}
}

func (s *minesSession) View() map[string]any {
	v := map[string]any{
		"bomb_count": s.BombCount,
		"revealed":   s.Revealed,
		"multiplier": s.multiplier(),
		"stage":      s.Stage(),
	}
	// Committed bomb layout stays hidden until the round ends.
	if s.Done {
		v["bombs"] = s.Bombs
		v["busted"] = s.Busted
		v["multiplier"] = s.Final
	}
	return v
}

func (s *minesSession) IdleAction() (string, map[string]any) {
	return "cashout", nil
}

func (s *minesSession) Snapshot() (json.RawMessage, error) {
	return json.Marshal(s)
}
