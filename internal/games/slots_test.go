package games

import (
	"math"
	"testing"
)

// Analytic RTP of the reel strip must match the declared house edge.
func TestSlotsReturnToPlayer(t *testing.T) {
	total := 0.0
	for _, s := range slotSymbols {
		total += s.Weight
	}

	rtp := 0.0
	for _, s := range slotSymbols {
		p := s.Weight / total
		rtp += p * p * p * s.Pay3
	}
	pCherry := slotSymbols[0].Weight / total
	rtp += 3 * pCherry * pCherry * (1 - pCherry) * slotsCherryPairPay

	declared := 1 - (&SlotsGame{}).Definition().HouseEdge
	if math.Abs(rtp-declared) > 0.001 {
		t.Errorf("analytic RTP %v, declared %v", rtp, declared)
	}
}

func TestSlotsLinePay(t *testing.T) {
	cases := []struct {
		name  string
		stops []int
		want  float64
	}{
		{"three cherries", []int{0, 0, 0}, 8},
		{"three diamonds", []int{7, 7, 7}, 8000},
		{"two cherries", []int{0, 0, 3}, 2},
		{"two cherries split", []int{0, 3, 0}, 2},
		{"mixed line", []int{1, 2, 3}, 0},
		{"one cherry", []int{0, 1, 2}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := slotsLinePay(tc.stops); got != tc.want {
				t.Errorf("slotsLinePay(%v) = %v, want %v", tc.stops, got, tc.want)
			}
		})
	}
}

func TestSlotsPlayDeterministic(t *testing.T) {
	g := &SlotsGame{}
	a, err := g.Play(newTestGen(42), nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.Play(newTestGen(42), nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.Multiplier != b.Multiplier || a.DrawCount != b.DrawCount {
		t.Fatalf("same seeds produced %v/%d and %v/%d", a.Multiplier, a.DrawCount, b.Multiplier, b.DrawCount)
	}
	if a.DrawCount != 3 {
		t.Errorf("draw count = %d, want 3", a.DrawCount)
	}
	stops := a.Payload["stops"].([]int)
	if got := slotsLinePay(stops); got != a.Multiplier {
		t.Errorf("multiplier %v does not match line pay %v for stops %v", a.Multiplier, got, stops)
	}
}

func TestWeightedTablePick(t *testing.T) {
	wt := newWeightedTable([]float64{1, 2, 1})
	cases := []struct {
		f    float64
		want int
	}{
		{0.0, 0},
		{0.24, 0},
		{0.26, 1},
		{0.74, 1},
		{0.76, 2},
		{0.999999, 2},
	}
	for _, tc := range cases {
		if got := wt.Pick(tc.f); got != tc.want {
			t.Errorf("Pick(%v) = %d, want %d", tc.f, got, tc.want)
		}
	}
}
