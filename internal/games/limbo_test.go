package games

import (
	"errors"
	"testing"
)

// Crash point at nonce 1 for the shared test seeds is 1.30.
func TestLimboGolden(t *testing.T) {
	g := &LimboGame{}
	cases := []struct {
		target   float64
		wantMult float64
	}{
		{1.25, 1.25},
		{1.30, 1.30},
		{1.31, 0},
		{100, 0},
	}
	for _, tc := range cases {
		res, err := g.Play(newTestGen(1), map[string]any{"target": tc.target})
		if err != nil {
			t.Fatal(err)
		}
		if res.Payload["crash_point"] != 1.30 {
			t.Fatalf("crash_point = %v, want 1.30", res.Payload["crash_point"])
		}
		if res.Multiplier != tc.wantMult {
			t.Errorf("target %v: multiplier = %v, want %v", tc.target, res.Multiplier, tc.wantMult)
		}
		if res.DrawCount != 1 {
			t.Errorf("draw count = %d, want 1", res.DrawCount)
		}
	}
}

func TestLimboCrashBounds(t *testing.T) {
	g := &LimboGame{}
	for nonce := uint64(1); nonce <= 2000; nonce++ {
		res, err := g.Play(newTestGen(nonce), map[string]any{"target": 2.0})
		if err != nil {
			t.Fatal(err)
		}
		crash := res.Payload["crash_point"].(float64)
		if crash < 1.0 || crash > 1000000.0 {
			t.Fatalf("nonce %d: crash %v out of [1, 1e6]", nonce, crash)
		}
	}
}

func TestLimboInvalidParams(t *testing.T) {
	g := &LimboGame{}
	for _, params := range []map[string]any{
		{},
		{"target": 1.0},
		{"target": 1000001.0},
		{"target": "moon"},
	} {
		if _, err := g.Play(newTestGen(1), params); !errors.Is(err, ErrInvalidParams) {
			t.Errorf("params %v: err = %v, want ErrInvalidParams", params, err)
		}
	}
}

func TestCoinflipGolden(t *testing.T) {
	g := &CoinflipGame{}

	res, err := g.Play(newTestGen(1), map[string]any{"side": "tails"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Payload["landed"] != "tails" {
		t.Fatalf("landed = %v, want tails", res.Payload["landed"])
	}
	if res.Multiplier != 1.98 {
		t.Errorf("winning multiplier = %v, want 1.98", res.Multiplier)
	}

	res, err = g.Play(newTestGen(1), map[string]any{"side": "heads"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Multiplier != 0 {
		t.Errorf("losing multiplier = %v, want 0", res.Multiplier)
	}
}

func TestCoinflipInvalidSide(t *testing.T) {
	g := &CoinflipGame{}
	if _, err := g.Play(newTestGen(1), map[string]any{"side": "edge"}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("err = %v, want ErrInvalidParams", err)
	}
	if _, err := g.Play(newTestGen(1), nil); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("missing side: err = %v, want ErrInvalidParams", err)
	}
}
