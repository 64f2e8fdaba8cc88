package engine

import (
	"encoding/hex"
	"testing"
)

func TestHashSeedGolden(t *testing.T) {
	cases := []struct {
		seed string
		want string
	}{
		{
			"a0b1c2d3e4f5a6b7c8d9e0f1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1",
			"02a5320281a2fc086a66c76edc650412883dc8835cf8d0d989b62e377fb2f21c",
		},
		{
			"test-seed",
			"d63cd08d82aa4eb48e0cc64fb466e909bfc3879664c5caa8d8cdeda73c044190",
		},
	}
	for _, tc := range cases {
		if got := HashSeed(tc.seed); got != tc.want {
			t.Errorf("HashSeed(%q) = %s, want %s", tc.seed, got, tc.want)
		}
	}
}

func TestVerifySeed(t *testing.T) {
	seed := "test-seed"
	hash := HashSeed(seed)
	if !VerifySeed(seed, hash) {
		t.Fatal("VerifySeed rejected a correct pair")
	}
	if VerifySeed("other-seed", hash) {
		t.Fatal("VerifySeed accepted a wrong seed")
	}
	if VerifySeed(seed, "deadbeef") {
		t.Fatal("VerifySeed accepted a wrong hash")
	}
}

func TestNewServerSeedShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		seed, err := NewServerSeed()
		if err != nil {
			t.Fatal(err)
		}
		raw, err := hex.DecodeString(seed)
		if err != nil {
			t.Fatalf("server seed %q is not hex: %v", seed, err)
		}
		if len(raw) != 32 {
			t.Fatalf("server seed has %d bytes, want 32", len(raw))
		}
		if seen[seed] {
			t.Fatalf("duplicate server seed %q", seed)
		}
		seen[seed] = true
	}
}

func TestNewClientSeedShape(t *testing.T) {
	seed, err := NewClientSeed()
	if err != nil {
		t.Fatal(err)
	}
	raw, err := hex.DecodeString(seed)
	if err != nil {
		t.Fatalf("client seed %q is not hex: %v", seed, err)
	}
	if len(raw) != 8 {
		t.Fatalf("client seed has %d bytes, want 8", len(raw))
	}
}
