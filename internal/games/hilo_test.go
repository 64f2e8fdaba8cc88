package games

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func deckIndex(s string) int {
	c := card(s)
	for i, d := range cardDeck {
		if d == c {
			return i
		}
	}
	panic(fmt.Sprintf("no such card %q", s))
}

// testShoe builds a shoe dealing the given cards in order.
func testShoe(ss ...string) *Shoe {
	order := make([]int, len(ss))
	for i, s := range ss {
		order[i] = deckIndex(s)
	}
	return &Shoe{Order: order}
}

func hiloFromShoe(ss ...string) *hiloSession {
	s := &hiloSession{Shoe: testShoe(ss...), Multiplier: 1.0}
	s.Current = s.Shoe.Deal()
	return s
}

func TestHiLoGolden(t *testing.T) {
	sess, err := (&HiLoGame{}).Begin(newTestGen(2), nil)
	if err != nil {
		t.Fatal(err)
	}
	hs := sess.(*hiloSession)

	if hs.Current.String() != "♥K" {
		t.Fatalf("start card = %s, want ♥K", hs.Current)
	}
	if hs.DrawCount != 51 {
		t.Errorf("draw count = %d, want 51", hs.DrawCount)
	}

	if _, err := sess.Apply("guess", map[string]any{"direction": "lo"}); err != nil {
		t.Fatal(err)
	}
	g := hs.Guesses[0]
	if g.Card != "♣9" || !g.Win {
		t.Errorf("guess = %+v, want winning ♣9", g)
	}
	// 44 of the 51 remaining cards rank below a king.
	if math.Abs(g.Chance-44.0/51.0) > 1e-12 {
		t.Errorf("chance = %v, want %v", g.Chance, 44.0/51.0)
	}

	if _, err := sess.Apply("cashout", nil); err != nil {
		t.Fatal(err)
	}
	if got := sess.Result().Multiplier; math.Abs(got-1.1475) > 1e-9 {
		t.Errorf("multiplier = %v, want 1.1475", got)
	}
}

func TestHiLoTieLoses(t *testing.T) {
	s := hiloFromShoe("♦5", "♥5", "♦9", "♦2")

	if _, err := s.Apply("guess", map[string]any{"direction": "hi"}); err != nil {
		t.Fatal(err)
	}
	if !s.Finished() {
		t.Fatal("not finished after a losing guess")
	}
	if got := s.Result().Multiplier; got != 0 {
		t.Errorf("multiplier = %v, want 0", got)
	}
	if !s.Lost {
		t.Error("lost flag not set")
	}
}

func TestHiLoCertainGuessForcedCashout(t *testing.T) {
	s := hiloFromShoe("♦2", "♦3")

	if _, err := s.Apply("guess", map[string]any{"direction": "hi"}); err != nil {
		t.Fatal(err)
	}
	// The shoe is empty after the winning deal, so the session settles.
	if !s.Finished() {
		t.Fatal("not finished after exhausting the shoe")
	}
	// Certain guess pays only the edge factor: 0.99 / 1.0.
	if got := s.Result().Multiplier; math.Abs(got-0.99) > 1e-9 {
		t.Errorf("multiplier = %v, want 0.99", got)
	}
}

func TestHiLoImpossibleGuessRejected(t *testing.T) {
	s := hiloFromShoe("♦A", "♥A", "♦K")

	// No remaining card outranks an ace and ties lose.
	if _, err := s.Apply("guess", map[string]any{"direction": "hi"}); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("hi on ♦A: err = %v, want ErrInvalidAction", err)
	}

	// The rejection must not consume a card or end the session.
	if s.Shoe.Dealt() != 1 || s.Finished() {
		t.Error("rejected guess mutated the session")
	}
}

func TestHiLoInvalidInput(t *testing.T) {
	s := hiloFromShoe("♦5", "♥9")

	if _, err := s.Apply("guess", map[string]any{"direction": "up"}); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("direction up: err = %v, want ErrInvalidParams", err)
	}
	if _, err := s.Apply("peek", nil); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("unknown action: err = %v, want ErrInvalidAction", err)
	}
}

func TestHiLoPlayCashesOutImmediately(t *testing.T) {
	res, err := (&HiLoGame{}).Play(newTestGen(2), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Multiplier != 1.0 {
		t.Errorf("multiplier = %v, want 1.0", res.Multiplier)
	}
	if res.DrawCount != 51 {
		t.Errorf("draw count = %d, want 51", res.DrawCount)
	}
}

func TestHiLoViewHidesShoe(t *testing.T) {
	sess, err := (&HiLoGame{}).Begin(newTestGen(2), nil)
	if err != nil {
		t.Fatal(err)
	}
	v := sess.View()
	if _, ok := v["shoe"]; ok {
		t.Fatal("view exposes the shoe order")
	}
	if v["current_card"] != "♥K" {
		t.Errorf("current_card = %v, want ♥K", v["current_card"])
	}
	if v["cards_dealt"] != 1 {
		t.Errorf("cards_dealt = %v, want 1", v["cards_dealt"])
	}
	hi, lo := v["hi_chance"].(float64), v["lo_chance"].(float64)
	if hi <= 0 || lo <= 0 || hi+lo >= 1 {
		t.Errorf("chances hi=%v lo=%v out of range", hi, lo)
	}
}

func TestHiLoSnapshotRoundTrip(t *testing.T) {
	sess, err := (&HiLoGame{}).Begin(newTestGen(2), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sess.Apply("guess", map[string]any{"direction": "lo"}); err != nil {
		t.Fatal(err)
	}

	snap, err := sess.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	restored, err := (&HiLoGame{}).Resume(snap)
	if err != nil {
		t.Fatal(err)
	}
	rs := restored.(*hiloSession)
	hs := sess.(*hiloSession)

	if rs.Current != hs.Current || rs.Multiplier != hs.Multiplier {
		t.Errorf("restored current=%s mult=%v, want current=%s mult=%v",
			rs.Current, rs.Multiplier, hs.Current, hs.Multiplier)
	}
	if rs.Shoe.Dealt() != hs.Shoe.Dealt() || len(rs.Guesses) != len(hs.Guesses) {
		t.Error("restored session lost progress")
	}
}

func TestHiLoIdleActionIsCashout(t *testing.T) {
	s := hiloFromShoe("♦5", "♥9")

	action, params := s.IdleAction()
	if action != "cashout" || params != nil {
		t.Fatalf("idle action = %q %v, want cashout", action, params)
	}
	if _, err := s.Apply(action, params); err != nil {
		t.Fatal(err)
	}
	if !s.Finished() || s.Result().Multiplier != 1.0 {
		t.Error("idle cashout did not settle at the current multiplier")
	}
}
