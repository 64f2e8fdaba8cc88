package games

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/engine"
)

// KenoGame implements Keno: players pick up to 10 of 40 squares, the house
// draws 10 without replacement.
type KenoGame struct{}

const (
	kenoSquares   = 40
	kenoDrawCount = 10
	kenoMinPicks  = 1
	kenoMaxPicks  = 10
)

// Spec returns metadata about the Keno game.
func (g *KenoGame) Spec() Spec {
	return Spec{ID: "keno", Name: "Keno"}
}

// Definition returns the static rule set for Keno.
func (g *KenoGame) Definition() Definition {
	return Definition{
		HouseEdge: 0.01,
		MinBet:    decimal.RequireFromString("0.00000001"),
		MaxBet:    decimal.RequireFromString("100"),
	}
}

// Play draws 10 unique squares as the first ten entries of an unbiased
// shuffle and pays by the [risk][picks][hits] table.
func (g *KenoGame) Play(bg *engine.ByteGenerator, params map[string]any) (Result, error) {
	risk, err := paramString(params, "risk", "classic")
	if err != nil {
		return Result{}, err
	}
	if !isValidKenoRisk(risk) {
		return Result{}, fmt.Errorf("%w: unknown keno risk %q", ErrInvalidParams, risk)
	}

	picks, err := paramIntSlice(params, "picks")
	if err != nil {
		return Result{}, err
	}
	if len(picks) < kenoMinPicks || len(picks) > kenoMaxPicks {
		return Result{}, fmt.Errorf("%w: keno requires between %d and %d picks, got %d", ErrInvalidParams, kenoMinPicks, kenoMaxPicks, len(picks))
	}
	seen := make(map[int]bool, len(picks))
	for _, p := range picks {
		if p < 0 || p >= kenoSquares {
			return Result{}, fmt.Errorf("%w: keno pick %d out of range 0-%d", ErrInvalidParams, p, kenoSquares-1)
		}
		if seen[p] {
			return Result{}, fmt.Errorf("%w: duplicate keno pick %d", ErrInvalidParams, p)
		}
		seen[p] = true
	}

	draws := bg.Shuffle(kenoSquares)[:kenoDrawCount]

	hits := 0
	drawSet := make(map[int]bool, kenoDrawCount)
	for _, d := range draws {
		drawSet[d] = true
	}
	for _, p := range picks {
		if drawSet[p] {
			hits++
		}
	}

	multiplier := kenoMultiplier(risk, len(picks), hits)

	return Result{
		Multiplier: multiplier,
		DrawCount:  bg.Draws(),
		Payload: map[string]any{
			"risk":       risk,
			"picks":      picks,
			"draws":      draws,
			"hits":       hits,
			"multiplier": multiplier,
		},
	}, nil
}
