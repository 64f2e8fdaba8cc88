package games

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/engine"
)

// RouletteGame implements European Roulette (pockets 0-36).
type RouletteGame struct{}

// Red numbers on a European wheel.
var rouletteRed = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true,
	12: true, 14: true, 16: true, 18: true, 19: true,
	21: true, 23: true, 25: true, 27: true, 30: true,
	32: true, 34: true, 36: true,
}

// Spec returns metadata about the Roulette game.
func (g *RouletteGame) Spec() Spec {
	return Spec{ID: "roulette", Name: "Roulette"}
}

// Definition returns the static rule set for Roulette. The single-zero
// wheel gives every bet type the same 1/37 edge.
func (g *RouletteGame) Definition() Definition {
	return Definition{
		HouseEdge: 1.0 / 37.0,
		MinBet:    decimal.RequireFromString("0.00000001"),
		MaxBet:    decimal.RequireFromString("1000"),
	}
}

// Play spins the wheel from a single float and resolves one bet.
func (g *RouletteGame) Play(bg *engine.ByteGenerator, params map[string]any) (Result, error) {
	betType, err := paramString(params, "bet", "")
	if err != nil {
		return Result{}, err
	}

	// Uniform pocket draw; rejection sampling keeps 37 outcomes unbiased.
	pocket := bg.NextIntN(37)

	win, targetMultiplier, err := rouletteResolve(betType, params, pocket)
	if err != nil {
		return Result{}, err
	}

	color := "green"
	if pocket != 0 {
		if rouletteRed[pocket] {
			color = "red"
		} else {
			color = "black"
		}
	}

	multiplier := 0.0
	if win {
		multiplier = targetMultiplier
	}

	return Result{
		Multiplier: multiplier,
		DrawCount:  bg.Draws(),
		Payload: map[string]any{
			"pocket":            pocket,
			"color":             color,
			"bet":               betType,
			"win":               win,
			"target_multiplier": targetMultiplier,
		},
	}, nil
}

func rouletteResolve(betType string, params map[string]any, pocket int) (bool, float64, error) {
	switch betType {
	case "straight":
		number, ok, err := paramFloat(params, "number")
		if err != nil {
			return false, 0, err
		}
		n := int(number)
		if !ok || n < 0 || n > 36 {
			return false, 0, fmt.Errorf("%w: straight bet requires a number between 0 and 36", ErrInvalidParams)
		}
		return pocket == n, 36, nil
	case "red":
		return pocket != 0 && rouletteRed[pocket], 2, nil
	case "black":
		return pocket != 0 && !rouletteRed[pocket], 2, nil
	case "odd":
		return pocket != 0 && pocket%2 == 1, 2, nil
	case "even":
		return pocket != 0 && pocket%2 == 0, 2, nil
	case "low":
		return pocket >= 1 && pocket <= 18, 2, nil
	case "high":
		return pocket >= 19, 2, nil
	case "dozen":
		dozen, err := paramInt(params, "index", -1)
		if err != nil {
			return false, 0, err
		}
		if dozen < 0 || dozen > 2 {
			return false, 0, fmt.Errorf("%w: dozen bet requires index 0-2", ErrInvalidParams)
		}
		return pocket != 0 && (pocket-1)/12 == dozen, 3, nil
	case "column":
		col, err := paramInt(params, "index", -1)
		if err != nil {
			return false, 0, err
		}
		if col < 0 || col > 2 {
			return false, 0, fmt.Errorf("%w: column bet requires index 0-2", ErrInvalidParams)
		}
		return pocket != 0 && (pocket-1)%3 == col, 3, nil
	default:
		return false, 0, fmt.Errorf("%w: unknown roulette bet %q", ErrInvalidParams, betType)
	}
}
