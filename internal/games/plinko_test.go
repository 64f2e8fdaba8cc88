package games

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestPlinkoGolden(t *testing.T) {
	g := &PlinkoGame{}

	res, err := g.Play(newTestGen(6), map[string]any{"risk": "low", "rows": 8.0})
	if err != nil {
		t.Fatal(err)
	}
	if res.Payload["bucket"] != 1 {
		t.Fatalf("bucket = %v, want 1", res.Payload["bucket"])
	}
	if res.Multiplier != 2.1 {
		t.Errorf("multiplier = %v, want 2.1", res.Multiplier)
	}
	if res.DrawCount != 8 {
		t.Errorf("draw count = %d, want 8", res.DrawCount)
	}

	res, err = g.Play(newTestGen(6), map[string]any{"risk": "low", "rows": 16.0})
	if err != nil {
		t.Fatal(err)
	}
	if res.Payload["bucket"] != 6 {
		t.Fatalf("bucket = %v, want 6", res.Payload["bucket"])
	}
	if res.Multiplier != 1.1 {
		t.Errorf("multiplier = %v, want 1.1", res.Multiplier)
	}
	if res.DrawCount != 16 {
		t.Errorf("draw count = %d, want 16", res.DrawCount)
	}
}

// Under binomial bucket probabilities every table must sit close to
// the declared 0.99 return.
func TestPlinkoTablesReturnToPlayer(t *testing.T) {
	for risk, byRows := range plinkoPayouts {
		for rows, table := range byRows {
			t.Run(fmt.Sprintf("%s-%d", risk, rows), func(t *testing.T) {
				if len(table) != rows+1 {
					t.Fatalf("table has %d buckets, want %d", len(table), rows+1)
				}
				rtp := 0.0
				for k, mult := range table {
					rtp += binomial(rows, k) * mult
				}
				rtp /= math.Pow(2, float64(rows))
				if math.Abs(rtp-0.99) > 0.002 {
					t.Errorf("RTP = %v, want 0.99 ± 0.002", rtp)
				}
			})
		}
	}
}

func binomial(n, k int) float64 {
	out := 1.0
	for i := 0; i < k; i++ {
		out = out * float64(n-i) / float64(i+1)
	}
	return out
}

func TestPlinkoPathMatchesBucket(t *testing.T) {
	g := &PlinkoGame{}
	for nonce := uint64(1); nonce <= 500; nonce++ {
		res, err := g.Play(newTestGen(nonce), map[string]any{"risk": "medium", "rows": 12.0})
		if err != nil {
			t.Fatal(err)
		}
		path := res.Payload["path"].([]int)
		sum := 0
		for _, d := range path {
			if d != 0 && d != 1 {
				t.Fatalf("nonce %d: direction %d", nonce, d)
			}
			sum += d
		}
		if sum != res.Payload["bucket"] {
			t.Fatalf("nonce %d: path sum %d != bucket %v", nonce, sum, res.Payload["bucket"])
		}
	}
}

func TestPlinkoInvalidParams(t *testing.T) {
	g := &PlinkoGame{}
	for _, params := range []map[string]any{
		{"risk": "extreme"},
		{"rows": 9.0},
		{"rows": "eight"},
	} {
		if _, err := g.Play(newTestGen(1), params); !errors.Is(err, ErrInvalidParams) {
			t.Errorf("params %v: err = %v, want ErrInvalidParams", params, err)
		}
	}
}
