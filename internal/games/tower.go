package games

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/engine"
)

// TowerGame implements the tower climb: 9 rows of 3 tiles, one bomb per
// row committed at round creation.
type TowerGame struct{}

const (
	towerRows    = 9
	towerColumns = 3
	towerEdge    = 0.01
)

// Spec returns metadata about the Tower game.
func (g *TowerGame) Spec() Spec {
	return Spec{ID: "tower", Name: "Tower"}
}

// Definition returns the static rule set for Tower.
func (g *TowerGame) Definition() Definition {
	return Definition{
		HouseEdge: towerEdge,
		MinBet:    decimal.RequireFromString("0.00000001"),
		MaxBet:    decimal.RequireFromString("100"),
	}
}

// Play resolves Tower single-shot for replay symmetry: commit and cash
// out immediately.
func (g *TowerGame) Play(bg *engine.ByteGenerator, params map[string]any) (Result, error) {
	sess, err := g.Begin(bg, params)
	if err != nil {
		return Result{}, err
	}
	if _, err := sess.Apply("cashout", nil); err != nil {
		return Result{}, err
	}
	return sess.Result(), nil
}

// Begin commits one bomb column per row.
func (g *TowerGame) Begin(bg *engine.ByteGenerator, params map[string]any) (Session, error) {
	bombs := make([]int, towerRows)
	for i := range bombs {
		bombs[i] = bg.NextIntN(towerColumns)
	}

	return &towerSession{
		Bombs:     bombs,
		DrawCount: bg.Draws(),
	}, nil
}

// Resume rebuilds a Tower session from its snapshot.
func (g *TowerGame) Resume(snapshot json.RawMessage) (Session, error) {
	var s towerSession
	if err := json.Unmarshal(snapshot, &s); err != nil {
		return nil, fmt.Errorf("tower snapshot: %w", err)
	}
	return &s, nil
}

type towerSession struct {
	Bombs       []int   `json:"bombs"`
	RowsCleared int     `json:"rows_cleared"`
	Picks       []int   `json:"picks"`
	Busted      bool    `json:"busted"`
	Done        bool    `json:"done"`
	DrawCount   int     `json:"draw_count"`
	Final       float64 `json:"final"`
}

func (s *towerSession) Stage() string {
	if s.Done {
		return "SETTLED"
	}
	return "CLIMBING"
}

func (s *towerSession) Finished() bool { return s.Done }

func (s *towerSession) Apply(action string, params map[string]any) (StepEffect, error) {
	if s.Done {
		return StepEffect{}, ErrInvalidAction
	}

	switch action {
	case "climb":
		row, err := paramInt(params, "row", -1)
		if err != nil {
			return StepEffect{}, err
		}
		col, err := paramInt(params, "col", -1)
		if err != nil {
			return StepEffect{}, err
		}
		// Rows must be climbed strictly in order.
		if row != s.RowsCleared {
			return StepEffect{}, fmt.Errorf("%w: next row is %d, got %d", ErrInvalidAction, s.RowsCleared, row)
		}
		if col < 0 || col >= towerColumns {
			return StepEffect{}, fmt.Errorf("%w: col must be 0-%d", ErrInvalidParams, towerColumns-1)
		}

		s.Picks = append(s.Picks, col)

		if s.Bombs[row] == col {
			s.Busted = true
			s.Done = true
			s.Final = 0
			return StepEffect{}, nil
		}

		s.RowsCleared++
		if s.RowsCleared == towerRows {
			s.Done = true
			s.Final = towerMultiplier(s.RowsCleared)
		}
		return StepEffect{}, nil

	case "cashout":
		s.Done = true
		s.Final = towerMultiplier(s.RowsCleared)
		return StepEffect{}, nil

	default:
		return StepEffect{}, fmt.Errorf("%w: tower has no action %q", ErrInvalidAction, action)
	}
}

// towerMultiplier after r cleared rows: (1-edge) * (3/2)^r; zero rows pay
// the stake back.
func towerMultiplier(rows int) float64 {
	if rows == 0 {
		return 1.0
	}
	mult := (1 - towerEdge) * math.Pow(1.5, float64(rows))
	return math.Floor(mult*10000) / 10000
}

func (s *towerSession) Result() Result {
	return Result{
		Multiplier: s.Final,
		DrawCount:  s.DrawCount,
		Payload: map[string]any{
			"bombs":        s.Bombs,
			"picks":        s.Picks,
			"rows_cleared": s.RowsCleared,
			"busted":       s.Busted,
			"multiplier":   s.Final,
		},
	}
}

func (s *towerSession) View() map[string]any {
	v := map[string]any{
		"rows_cleared": s.RowsCleared,
		"picks":        s.Picks,
		"multiplier":   towerMultiplier(s.RowsCleared),
		"stage":        s.Stage(),
	}
	// Bomb rows stay hidden until the round ends, then all are exposed.
	if s.Done {
		v["bombs"] = s.Bombs
		v["busted"] = s.Busted
		v["multiplier"] = s.Final
	}
	return v
}

func (s *towerSession) IdleAction() (string, map[string]any) {
	return "cashout", nil
}

func (s *towerSession) Snapshot() (json.RawMessage, error) {
	return json.Marshal(s)
}
