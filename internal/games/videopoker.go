package games

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/engine"
)

// VideoPokerGame implements Jacks-or-Better video poker dealt from a
// 52-card shoe shuffled per round.
type VideoPokerGame struct{}

// videoPokerPays is the 9/6 Jacks-or-Better paytable.
var videoPokerPays = map[string]float64{
	pokerRoyalFlush:    800,
	pokerStraightFlush: 50,
	pokerFourOfAKind:   25,
	pokerFullHouse:     9,
	pokerFlush:         6,
	pokerStraight:      4,
	pokerThreeOfAKind:  3,
	pokerTwoPair:       2,
	pokerJacksOrBetter: 1,
}

// Spec returns metadata about the Video Poker game.
func (g *VideoPokerGame) Spec() Spec {
	return Spec{ID: "videopoker", Name: "Video Poker"}
}

// Definition returns the static rule set for Video Poker.
func (g *VideoPokerGame) Definition() Definition {
	return Definition{
		HouseEdge: 0.005,
		MinBet:    decimal.RequireFromString("0.00000001"),
		MaxBet:    decimal.RequireFromString("100"),
	}
}

// Play resolves Video Poker single-shot for replay symmetry: stand pat on
// the dealt hand.
func (g *VideoPokerGame) Play(bg *engine.ByteGenerator, params map[string]any) (Result, error) {
	sess, err := g.Begin(bg, params)
	if err != nil {
		return Result{}, err
	}
	if _, err := sess.Apply("draw", map[string]any{"holds": []any{true, true, true, true, true}}); err != nil {
		return Result{}, err
	}
	return sess.Result(), nil
}

// Begin shuffles the shoe and deals the initial five cards.
func (g *VideoPokerGame) Begin(bg *engine.ByteGenerator, params map[string]any) (Session, error) {
	order := bg.Shuffle(52)
	s := &videoPokerSession{
		Shoe:      &Shoe{Order: order},
		DrawCount: bg.Draws(),
	}
	for i := 0; i < 5; i++ {
		s.Hand = append(s.Hand, s.Shoe.Deal())
	}
	return s, nil
}

// Resume rebuilds a Video Poker session from its snapshot.
func (g *VideoPokerGame) Resume(snapshot json.RawMessage) (Session, error) {
	var s videoPokerSession
	if err := json.Unmarshal(snapshot, &s); err != nil {
		return nil, fmt.Errorf("videopoker snapshot: %w", err)
	}
	return &s, nil
}

type videoPokerSession struct {
	Shoe      *Shoe   `json:"shoe"`
	Hand      []Card  `json:"hand"`
	Holds     []bool  `json:"holds,omitempty"`
	Rank      string  `json:"rank,omitempty"`
	Done      bool    `json:"done"`
	DrawCount int     `json:"draw_count"`
	Final     float64 `json:"final"`
}

func (s *videoPokerSession) Stage() string {
	if s.Done {
		return "SETTLED"
	}
	return "DEALT"
}

func (s *videoPokerSession) Finished() bool { return s.Done }

func (s *videoPokerSession) Apply(action string, params map[string]any) (StepEffect, error) {
	if s.Done {
		return StepEffect{}, ErrInvalidAction
	}

	if action != "draw" {
		return StepEffect{}, fmt.Errorf("%w: videopoker has no action %q", ErrInvalidAction, action)
	}

	holds, err := paramBoolSlice(params, "holds")
	if err != nil {
		return StepEffect{}, err
	}
	if len(holds) != 5 {
		return StepEffect{}, fmt.Errorf("%w: draw requires exactly 5 holds", ErrInvalidParams)
	}

	for i, held := range holds {
		if !held {
			s.Hand[i] = s.Shoe.Deal()
		}
	}

	s.Holds = holds
	s.Rank = evaluatePokerHand(s.Hand)
	s.Done = true
	s.Final = videoPokerPays[s.Rank]

	return StepEffect{}, nil
}

func (s *videoPokerSession) Result() Result {
	return Result{
		Multiplier: s.Final,
		DrawCount:  s.DrawCount,
		Payload: map[string]any{
			"hand":       cardStrings(s.Hand),
			"holds":      s.Holds,
			"rank":       s.Rank,
			"multiplier": s.Final,
		},
	}
}

func (s *videoPokerSession) View() map[string]any {
	v := map[string]any{
		"stage": s.Stage(),
		"hand":  cardStrings(s.Hand),
	}
	if s.Done {
		v["rank"] = s.Rank
		v["multiplier"] = s.Final
	}
	return v
}

// IdleAction stands pat: hold everything.
func (s *videoPokerSession) IdleAction() (string, map[string]any) {
	return "draw", map[string]any{"holds": []any{true, true, true, true, true}}
}

func (s *videoPokerSession) Snapshot() (json.RawMessage, error) {
	return json.Marshal(s)
}
