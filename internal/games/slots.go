package games

import (
	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/engine"
)

// SlotsGame implements a three-reel weighted slot machine. Each reel is an
// independent weighted discrete draw resolved against a cumulative-weight
// table with a binary search.
type SlotsGame struct{}

type slotSymbol struct {
	Name   string
	Weight float64
	Pay3   float64 // multiplier for three of a kind
}

// Reel strip, identical for all three reels. The acceptance test checks
// the analytic RTP of this table against the declared house edge.
var slotSymbols = []slotSymbol{
	{"cherry", 12, 8},
	{"lemon", 10, 12},
	{"orange", 8, 18},
	{"plum", 8, 24},
	{"bell", 6, 55},
	{"bar", 4, 180},
	{"seven", 3, 800},
	{"diamond", 1, 8000},
}

// Exactly two cherries anywhere on the line.
const slotsCherryPairPay = 2.0

var slotsReel = buildSlotsReel()

func buildSlotsReel() weightedTable {
	weights := make([]float64, len(slotSymbols))
	for i, s := range slotSymbols {
		weights[i] = s.Weight
	}
	return newWeightedTable(weights)
}

// Spec returns metadata about the Slots game.
func (g *SlotsGame) Spec() Spec {
	return Spec{ID: "slots", Name: "Slots"}
}

// Definition returns the static rule set for Slots.
func (g *SlotsGame) Definition() Definition {
	return Definition{
		HouseEdge: 0.04,
		MinBet:    decimal.RequireFromString("0.00000001"),
		MaxBet:    decimal.RequireFromString("100"),
	}
}

// Play draws three weighted reel stops and pays the line.
func (g *SlotsGame) Play(bg *engine.ByteGenerator, params map[string]any) (Result, error) {
	stops := make([]int, 3)
	names := make([]string, 3)
	for i := range stops {
		stops[i] = slotsReel.Pick(bg.NextFloat())
		names[i] = slotSymbols[stops[i]].Name
	}

	multiplier := slotsLinePay(stops)

	return Result{
		Multiplier: multiplier,
		DrawCount:  bg.Draws(),
		Payload: map[string]any{
			"reels":      names,
			"stops":      stops,
			"multiplier": multiplier,
		},
	}, nil
}

func slotsLinePay(stops []int) float64 {
	if stops[0] == stops[1] && stops[1] == stops[2] {
		return slotSymbols[stops[0]].Pay3
	}

	cherries := 0
	for _, s := range stops {
		if slotSymbols[s].Name == "cherry" {
			cherries++
		}
	}
	if cherries == 2 {
		return slotsCherryPairPay
	}

	return 0
}
