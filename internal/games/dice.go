package games

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/engine"
)

// DiceGame implements the classic over/under dice roll.
type DiceGame struct{}

const (
	diceHouseEdge = 0.01
	diceMinTarget = 0.01
	diceMaxTarget = 99.99
)

// Spec returns metadata about the Dice game.
func (g *DiceGame) Spec() Spec {
	return Spec{ID: "dice", Name: "Dice"}
}

// Definition returns the static rule set for Dice.
func (g *DiceGame) Definition() Definition {
	return Definition{
		HouseEdge: diceHouseEdge,
		MinBet:    decimal.RequireFromString("0.00000001"),
		MaxBet:    decimal.RequireFromString("1000"),
	}
}

// Play rolls 0.00-100.00 from a single float and resolves the player's
// over/under condition. Discrete formula floor(f*10001)/100 yields exactly
// 10,001 outcomes.
func (g *DiceGame) Play(bg *engine.ByteGenerator, params map[string]any) (Result, error) {
	target, ok, err := paramFloat(params, "target")
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, fmt.Errorf("%w: dice requires a target", ErrInvalidParams)
	}
	if target < diceMinTarget || target > diceMaxTarget {
		return Result{}, fmt.Errorf("%w: dice target must be between %.2f and %.2f", ErrInvalidParams, diceMinTarget, diceMaxTarget)
	}

	direction, err := paramString(params, "direction", "under")
	if err != nil {
		return Result{}, err
	}
	if direction != "under" && direction != "over" {
		return Result{}, fmt.Errorf("%w: dice direction must be \"under\" or \"over\"", ErrInvalidParams)
	}

	f := bg.NextFloat()
	roll := math.Floor(f*10001) / 100

	var win bool
	var chance float64
	if direction == "under" {
		win = roll < target
		chance = target
	} else {
		win = roll > target
		chance = 100 - target
	}

	// Multiplier convention: (1 - houseEdge) / pWin == 99 / chance.
	targetMultiplier := math.Floor((100*(1-diceHouseEdge)/chance)*10000) / 10000

	multiplier := 0.0
	if win {
		multiplier = targetMultiplier
	}

	return Result{
		Multiplier: multiplier,
		DrawCount:  bg.Draws(),
		Payload: map[string]any{
			"roll":              roll,
			"target":            target,
			"direction":         direction,
			"win":               win,
			"target_multiplier": targetMultiplier,
		},
	}, nil
}
