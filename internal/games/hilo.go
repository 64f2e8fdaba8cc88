package games

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/engine"
)

// HiLoGame implements HiLo dealt from a single 52-card shoe, so the win
// probability of each guess is computed from the cards actually left.
type HiLoGame struct{}

const hiloEdge = 0.01

// Spec returns metadata about the HiLo game.
func (g *HiLoGame) Spec() Spec {
	return Spec{ID: "hilo", Name: "HiLo"}
}

// Definition returns the static rule set for HiLo.
func (g *HiLoGame) Definition() Definition {
	return Definition{
		HouseEdge: hiloEdge,
		MinBet:    decimal.RequireFromString("0.00000001"),
		MaxBet:    decimal.RequireFromString("100"),
	}
}

// Play resolves HiLo single-shot for replay symmetry: deal the start card
// and cash out.
func (g *HiLoGame) Play(bg *engine.ByteGenerator, params map[string]any) (Result, error) {
	sess, err := g.Begin(bg, params)
	if err != nil {
		return Result{}, err
	}
	if _, err := sess.Apply("cashout", nil); err != nil {
		return Result{}, err
	}
	return sess.Result(), nil
}

// Begin shuffles the shoe and deals the start card.
func (g *HiLoGame) Begin(bg *engine.ByteGenerator, params map[string]any) (Session, error) {
	order := bg.Shuffle(52)
	s := &hiloSession{
		Shoe:       &Shoe{Order: order},
		Multiplier: 1.0,
		DrawCount:  bg.Draws(),
	}
	s.Current = s.Shoe.Deal()
	return s, nil
}

// Resume rebuilds a HiLo session from its snapshot.
func (g *HiLoGame) Resume(snapshot json.RawMessage) (Session, error) {
	var s hiloSession
	if err := json.Unmarshal(snapshot, &s); err != nil {
		return nil, fmt.Errorf("hilo snapshot: %w", err)
	}
	return &s, nil
}

type hiloGuess struct {
	Direction string  `json:"direction"`
	Card      string  `json:"card"`
	Chance    float64 `json:"chance"`
	Win       bool    `json:"win"`
}

type hiloSession struct {
	Shoe       *Shoe       `json:"shoe"`
	Current    Card        `json:"current"`
	Multiplier float64     `json:"multiplier"`
	Guesses    []hiloGuess `json:"guesses"`
	Lost       bool        `json:"lost"`
	Done       bool        `json:"done"`
	DrawCount  int         `json:"draw_count"`
	Final      float64     `json:"final"`
}

func (s *hiloSession) Stage() string {
	if s.Done {
		return "SETTLED"
	}
	return "CHAIN"
}

func (s *hiloSession) Finished() bool { return s.Done }

func (s *hiloSession) Apply(action string, params map[string]any) (StepEffect, error) {
	if s.Done {
		return StepEffect{}, ErrInvalidAction
	}

	switch action {
	case "guess":
		direction, err := paramString(params, "direction", "")
		if err != nil {
			return StepEffect{}, err
		}
		if direction != "hi" && direction != "lo" {
			return StepEffect{}, fmt.Errorf("%w: hilo direction must be \"hi\" or \"lo\"", ErrInvalidParams)
		}

		chance := s.winChance(direction)
		// A guess that cannot win (hi on an ace-high card) is rejected
		// rather than swallowing the stake.
		if chance == 0 {
			return StepEffect{}, fmt.Errorf("%w: %s cannot win on %s", ErrInvalidAction, direction, s.Current)
		}

		next := s.Shoe.Deal()
		win := hiloSatisfies(direction, s.Current, next)

		s.Guesses = append(s.Guesses, hiloGuess{
			Direction: direction,
			Card:      next.String(),
			Chance:    chance,
			Win:       win,
		})
		s.Current = next

		if !win {
			s.Lost = true
			s.Done = true
			s.Final = 0
			return StepEffect{}, nil
		}

		s.Multiplier *= (1 - hiloEdge) / chance
		// Exhausting the shoe is a forced cashout.
		if len(s.Shoe.Remaining()) == 0 {
			s.Done = true
			s.Final = s.rounded()
		}
		return StepEffect{}, nil

	case "cashout":
		s.Done = true
		s.Final = s.rounded()
		return StepEffect{}, nil

	default:
		return StepEffect{}, fmt.Errorf("%w: hilo has no action %q", ErrInvalidAction, action)
	}
}

// winChance is the fraction of remaining shoe cards strictly satisfying
// the guess; ties lose.
func (s *hiloSession) winChance(direction string) float64 {
	remaining := s.Shoe.Remaining()
	if len(remaining) == 0 {
		return 0
	}
	wins := 0
	for _, c := range remaining {
		if hiloSatisfies(direction, s.Current, c) {
			wins++
		}
	}
	return float64(wins) / float64(len(remaining))
}

func hiloSatisfies(direction string, current, next Card) bool {
	cur := cardRankValue(current.Rank)
	nxt := cardRankValue(next.Rank)
	if direction == "hi" {
		return nxt > cur
	}
	return nxt < cur
}

func (s *hiloSession) rounded() float64 {
	return math.Floor(s.Multiplier*10000) / 10000
}

func (s *hiloSession) Result() Result {
	return Result{
		Multiplier: s.Final,
		DrawCount:  s.DrawCount,
		Payload: map[string]any{
			"start_card": s.startCard(),
			"guesses":    s.Guesses,
			"lost":       s.Lost,
			"multiplier": s.Final,
		},
	}
}

func (s *hiloSession) startCard() string {
	return cardDeck[s.Shoe.Order[0]%52].String()
}

func (s *hiloSession) View() map[string]any {
	return map[string]any{
		"stage":        s.Stage(),
		"current_card": s.Current.String(),
		"cards_dealt":  s.Shoe.Dealt(),
		"guesses":      s.Guesses,
		"multiplier":   s.rounded(),
		"hi_chance":    s.winChance("hi"),
		"lo_chance":    s.winChance("lo"),
	}
}

func (s *hiloSession) IdleAction() (string, map[string]any) {
	return "cashout", nil
}

func (s *hiloSession) Snapshot() (json.RawMessage, error) {
	return json.Marshal(s)
}
