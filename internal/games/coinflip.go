package games

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/engine"
)

// CoinflipGame implements a single provably fair coin flip.
type CoinflipGame struct{}

const coinflipMultiplier = 1.98 // 2 * (1 - 1% house edge)

// Spec returns metadata about the Coinflip game.
func (g *CoinflipGame) Spec() Spec {
	return Spec{ID: "coinflip", Name: "Coinflip"}
}

// Definition returns the static rule set for Coinflip.
func (g *CoinflipGame) Definition() Definition {
	return Definition{
		HouseEdge: 0.01,
		MinBet:    decimal.RequireFromString("0.00000001"),
		MaxBet:    decimal.RequireFromString("1000"),
	}
}

// Play flips one coin from a single float.
func (g *CoinflipGame) Play(bg *engine.ByteGenerator, params map[string]any) (Result, error) {
	side, err := paramString(params, "side", "")
	if err != nil {
		return Result{}, err
	}
	if side != "heads" && side != "tails" {
		return Result{}, fmt.Errorf("%w: coinflip side must be \"heads\" or \"tails\"", ErrInvalidParams)
	}

	f := bg.NextFloat()
	landed := "heads"
	if f >= 0.5 {
		landed = "tails"
	}

	win := landed == side
	multiplier := 0.0
	if win {
		multiplier = coinflipMultiplier
	}

	return Result{
		Multiplier: multiplier,
		DrawCount:  bg.Draws(),
		Payload: map[string]any{
			"side":   side,
			"landed": landed,
			"win":    win,
		},
	}, nil
}
