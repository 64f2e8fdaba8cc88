package games

import "sort"

// weightedTable is a cumulative-weight table for discrete draws: build once
// from a paytable, then resolve one uniform float per draw with a binary
// search. Shared by slots reels and any other weighted discrete outcome.
type weightedTable struct {
	cumulative []float64
	total      float64
}

func newWeightedTable(weights []float64) weightedTable {
	cum := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		total += w
		cum[i] = total
	}
	return weightedTable{cumulative: cum, total: total}
}

// Pick maps a uniform float in [0,1) to an outcome index.
func (t weightedTable) Pick(f float64) int {
	target := f * t.total
	return sort.SearchFloat64s(t.cumulative, target)
}

// Probability returns the probability of outcome i.
func (t weightedTable) Probability(i int) float64 {
	prev := 0.0
	if i > 0 {
		prev = t.cumulative[i-1]
	}
	return (t.cumulative[i] - prev) / t.total
}
