package games

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/engine"
)

// PlinkoGame implements the Plinko board: one left/right decision per row,
// bucket index is the number of rights.
type PlinkoGame struct{}

// plinkoPayouts maps [risk][rows] -> bucket multipliers (rows+1 entries).
// Under binomial bucket weights every table lands within 0.2% of 0.99 RTP.
var plinkoPayouts = map[string]map[int][]float64{
	"low": {
		8:  {5.6, 2.1, 1.1, 1, 0.5, 1, 1.1, 2.1, 5.6},
		12: {10, 3, 1.6, 1.4, 1.1, 1, 0.5, 1, 1.1, 1.4, 1.6, 3, 10},
		16: {16, 9, 2, 1.4, 1.4, 1.2, 1.1, 1, 0.5, 1, 1.1, 1.2, 1.4, 1.4, 2, 9, 16},
	},
	"medium": {
		8:  {13, 3, 1.3, 0.7, 0.4, 0.7, 1.3, 3, 13},
		12: {33, 11, 4, 2, 1.1, 0.6, 0.3, 0.6, 1.1, 2, 4, 11, 33},
		16: {110, 41, 10, 5, 3, 1.5, 1, 0.5, 0.3, 0.5, 1, 1.5, 3, 5, 10, 41, 110},
	},
	"high": {
		8:  {29, 4, 1.5, 0.3, 0.2, 0.3, 1.5, 4, 29},
		12: {170, 24, 8.1, 2, 0.7, 0.2, 0.2, 0.2, 0.7, 2, 8.1, 24, 170},
		16: {1000, 130, 26, 9, 4, 2, 0.2, 0.2, 0.2, 0.2, 0.2, 2, 4, 9, 26, 130, 1000},
	},
}

// Spec returns metadata about the Plinko game.
func (g *PlinkoGame) Spec() Spec {
	return Spec{ID: "plinko", Name: "Plinko"}
}

// Definition returns the static rule set for Plinko.
func (g *PlinkoGame) Definition() Definition {
	return Definition{
		HouseEdge: 0.01,
		MinBet:    decimal.RequireFromString("0.00000001"),
		MaxBet:    decimal.RequireFromString("100"),
	}
}

// Play draws one binary direction per row and pays the landing bucket.
func (g *PlinkoGame) Play(bg *engine.ByteGenerator, params map[string]any) (Result, error) {
	risk, err := paramString(params, "risk", "low")
	if err != nil {
		return Result{}, err
	}
	rowTables, ok := plinkoPayouts[risk]
	if !ok {
		return Result{}, fmt.Errorf("%w: plinko risk must be low, medium or high; got %q", ErrInvalidParams, risk)
	}

	rows, err := paramInt(params, "rows", 16)
	if err != nil {
		return Result{}, err
	}
	table, ok := rowTables[rows]
	if !ok {
		return Result{}, fmt.Errorf("%w: plinko rows must be 8, 12 or 16; got %d", ErrInvalidParams, rows)
	}

	path := make([]int, rows)
	bucket := 0
	for i := 0; i < rows; i++ {
		dir := bg.NextIntN(2)
		path[i] = dir
		bucket += dir
	}

	multiplier := table[bucket]

	return Result{
		Multiplier: multiplier,
		DrawCount:  bg.Draws(),
		Payload: map[string]any{
			"risk":       risk,
			"rows":       rows,
			"path":       path,
			"bucket":     bucket,
			"multiplier": multiplier,
		},
	}, nil
}
