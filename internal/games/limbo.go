package games

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/engine"
)

// LimboGame implements the Limbo crash-multiplier game.
type LimboGame struct{}

const (
	limboHouseEdge     = 0.01
	limboMinTarget     = 1.01
	limboMaxTarget     = 1000000.0
	limboMaxMultiplier = 1000000.0
)

// Spec returns metadata about the Limbo game.
func (g *LimboGame) Spec() Spec {
	return Spec{ID: "limbo", Name: "Limbo"}
}

// Definition returns the static rule set for Limbo.
func (g *LimboGame) Definition() Definition {
	return Definition{
		HouseEdge: limboHouseEdge,
		MinBet:    decimal.RequireFromString("0.00000001"),
		MaxBet:    decimal.RequireFromString("1000"),
	}
}

// Play draws the crash point 1e8/(f*1e8)*(1-houseEdge) rounded down to two
// decimals and pays the chosen target when the crash point reaches it.
func (g *LimboGame) Play(bg *engine.ByteGenerator, params map[string]any) (Result, error) {
	target, ok, err := paramFloat(params, "target")
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, fmt.Errorf("%w: limbo requires a target multiplier", ErrInvalidParams)
	}
	if target < limboMinTarget || target > limboMaxTarget {
		return Result{}, fmt.Errorf("%w: limbo target must be between %.2f and %.0f", ErrInvalidParams, limboMinTarget, limboMaxTarget)
	}

	f := bg.NextFloat()

	crash := limboMaxMultiplier
	if f > 0 {
		floatPoint := 1e8 / (f * 1e8) * (1 - limboHouseEdge)
		crash = math.Floor(floatPoint*100) / 100
		crash = math.Max(crash, 1.0)
		crash = math.Min(crash, limboMaxMultiplier)
	}

	win := crash >= target

	multiplier := 0.0
	if win {
		multiplier = target
	}

	return Result{
		Multiplier: multiplier,
		DrawCount:  bg.Draws(),
		Payload: map[string]any{
			"crash_point": crash,
			"target":      target,
			"win":         win,
		},
	}, nil
}
