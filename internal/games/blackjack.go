package games

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/engine"
)

// BlackjackGame implements Blackjack dealt from a single 52-card shoe per
// round. Deal order: player, dealer, player, dealer. Dealer stands on all
// 17s unless HitSoft17 is set; blackjack pays 3:2; one split, no resplit.
type BlackjackGame struct {
	HitSoft17 bool
}

const blackjackMaxSplits = 1

// Spec returns metadata about the Blackjack game.
func (g *BlackjackGame) Spec() Spec {
	return Spec{ID: "blackjack", Name: "Blackjack"}
}

// Definition returns the static rule set for Blackjack.
func (g *BlackjackGame) Definition() Definition {
	return Definition{
		HouseEdge: 0.005,
		MinBet:    decimal.RequireFromString("0.00000001"),
		MaxBet:    decimal.RequireFromString("1000"),
	}
}

// Play resolves Blackjack single-shot for replay symmetry: stand on the
// dealt hand.
func (g *BlackjackGame) Play(bg *engine.ByteGenerator, params map[string]any) (Result, error) {
	sess, err := g.Begin(bg, params)
	if err != nil {
		return Result{}, err
	}
	for !sess.Finished() {
		if _, err := sess.Apply("stand", nil); err != nil {
			return Result{}, err
		}
	}
	return sess.Result(), nil
}

// Begin shuffles the shoe, deals both hands and resolves naturals.
func (g *BlackjackGame) Begin(bg *engine.ByteGenerator, params map[string]any) (Session, error) {
	order := bg.Shuffle(52)
	s := &blackjackSession{
		Shoe:      &Shoe{Order: order},
		HitSoft17: g.HitSoft17,
		DrawCount: bg.Draws(),
	}

	player := []Card{s.Shoe.Deal()}
	dealer := []Card{s.Shoe.Deal()}
	player = append(player, s.Shoe.Deal())
	dealer = append(dealer, s.Shoe.Deal())

	s.Dealer = dealer
	s.Hands = []bjHand{{Cards: player, Stake: 1}}

	playerBJ := blackjackHandValue(player) == 21
	dealerBJ := blackjackHandValue(dealer) == 21

	// Naturals settle at the deal; no actions are possible.
	if playerBJ || dealerBJ {
		s.DealerDone = true
		s.Done = true
		switch {
		case playerBJ && dealerBJ:
			s.Final = 1.0
		case playerBJ:
			s.Final = 2.5
		default:
			s.Final = 0
		}
	}

	return s, nil
}

// Resume rebuilds a Blackjack session from its snapshot.
func (g *BlackjackGame) Resume(snapshot json.RawMessage) (Session, error) {
	var s blackjackSession
	if err := json.Unmarshal(snapshot, &s); err != nil {
		return nil, fmt.Errorf("blackjack snapshot: %w", err)
	}
	return &s, nil
}

type bjHand struct {
	Cards     []Card `json:"cards"`
	Stake     int    `json:"stake"`
	Stood     bool   `json:"stood"`
	Busted    bool   `json:"busted"`
	Doubled   bool   `json:"doubled"`
	FromSplit bool   `json:"from_split"`
}

type blackjackSession struct {
	Shoe       *Shoe    `json:"shoe"`
	Dealer     []Card   `json:"dealer"`
	Hands      []bjHand `json:"hands"`
	Active     int      `json:"active"`
	Splits     int      `json:"splits"`
	HitSoft17  bool     `json:"hit_soft_17"`
	DealerDone bool     `json:"dealer_done"`
	Done       bool     `json:"done"`
	DrawCount  int      `json:"draw_count"`
	Final      float64  `json:"final"`
}

func (s *blackjackSession) Stage() string {
	switch {
	case s.Done:
		return "SETTLED"
	case s.Active >= len(s.Hands):
		return "DEALER_TURN"
	default:
		return "PLAYER_TURN"
	}
}

func (s *blackjackSession) Finished() bool { return s.Done }

func (s *blackjackSession) Apply(action string, params map[string]any) (StepEffect, error) {
	if s.Done || s.Active >= len(s.Hands) {
		return StepEffect{}, ErrInvalidAction
	}

	hand := &s.Hands[s.Active]

	switch action {
	case "hit":
		hand.Cards = append(hand.Cards, s.Shoe.Deal())
		if blackjackHandValue(hand.Cards) > 21 {
			hand.Busted = true
			s.advance()
		}
		return StepEffect{}, nil

	case "stand":
		hand.Stood = true
		s.advance()
		return StepEffect{}, nil

	case "double":
		if len(hand.Cards) != 2 || hand.Doubled {
			return StepEffect{}, fmt.Errorf("%w: double is only allowed on a fresh two-card hand", ErrInvalidAction)
		}
		hand.Doubled = true
		hand.Stake *= 2
		hand.Cards = append(hand.Cards, s.Shoe.Deal())
		if blackjackHandValue(hand.Cards) > 21 {
			hand.Busted = true
		} else {
			hand.Stood = true
		}
		s.advance()
		return StepEffect{ExtraStakeUnits: 1}, nil

	case "split":
		if len(hand.Cards) != 2 || hand.Cards[0].Rank != hand.Cards[1].Rank {
			return StepEffect{}, fmt.Errorf("%w: split requires two cards of equal rank", ErrInvalidAction)
		}
		if s.Splits >= blackjackMaxSplits {
			return StepEffect{}, fmt.Errorf("%w: no resplit", ErrInvalidAction)
		}
		s.Splits++

		second := hand.Cards[1]
		hand.Cards = []Card{hand.Cards[0], s.Shoe.Deal()}
		hand.FromSplit = true
		s.Hands = append(s.Hands, bjHand{
			Cards:     []Card{second, s.Shoe.Deal()},
			Stake:     1,
			FromSplit: true,
		})
		return StepEffect{ExtraStakeUnits: 1}, nil

	default:
		return StepEffect{}, fmt.Errorf("%w: blackjack has no action %q", ErrInvalidAction, action)
	}
}

// advance moves to the next unplayed hand, or runs the dealer and settles
// once every hand is stood or busted.
func (s *blackjackSession) advance() {
	s.Active++
	if s.Active < len(s.Hands) {
		return
	}

	allBusted := true
	for _, h := range s.Hands {
		if !h.Busted {
			allBusted = false
			break
		}
	}

	if !allBusted {
		s.playDealer()
	}
	s.DealerDone = true
	s.settle()
}

func (s *blackjackSession) playDealer() {
	for {
		value := blackjackHandValue(s.Dealer)
		if value > 17 {
			return
		}
		if value == 17 && !(s.HitSoft17 && blackjackIsSoft(s.Dealer)) {
			return
		}
		s.Dealer = append(s.Dealer, s.Shoe.Deal())
	}
}

func (s *blackjackSession) settle() {
	dealerValue := blackjackHandValue(s.Dealer)
	dealerBust := dealerValue > 21

	total := 0.0
	for _, h := range s.Hands {
		if h.Busted {
			continue
		}
		value := blackjackHandValue(h.Cards)
		switch {
		case dealerBust || value > dealerValue:
			total += 2.0 * float64(h.Stake)
		case value == dealerValue:
			total += 1.0 * float64(h.Stake)
		}
	}

	s.Done = true
	s.Final = total
}

func (s *blackjackSession) Result() Result {
	hands := make([]map[string]any, len(s.Hands))
	for i, h := range s.Hands {
		hands[i] = map[string]any{
			"cards":  cardStrings(h.Cards),
			"value":  blackjackHandValue(h.Cards),
			"stake":  h.Stake,
			"busted": h.Busted,
		}
	}
	return Result{
		Multiplier: s.Final,
		DrawCount:  s.DrawCount,
		Payload: map[string]any{
			"hands":        hands,
			"dealer_cards": cardStrings(s.Dealer),
			"dealer_value": blackjackHandValue(s.Dealer),
			"multiplier":   s.Final,
		},
	}
}

func (s *blackjackSession) View() map[string]any {
	hands := make([]map[string]any, len(s.Hands))
	for i, h := range s.Hands {
		hands[i] = map[string]any{
			"cards":  cardStrings(h.Cards),
			"value":  blackjackHandValue(h.Cards),
			"stake":  h.Stake,
			"busted": h.Busted,
			"stood":  h.Stood,
		}
	}

	v := map[string]any{
		"stage":       s.Stage(),
		"hands":       hands,
		"active_hand": s.Active,
	}

	// The hole card stays hidden until the player is done.
	if s.DealerDone {
		v["dealer_cards"] = cardStrings(s.Dealer)
		v["dealer_value"] = blackjackHandValue(s.Dealer)
	} else {
		v["dealer_cards"] = []string{s.Dealer[0].String(), "??"}
	}
	if s.Done {
		v["multiplier"] = s.Final
	}
	return v
}

// IdleAction stands the active hand; the sweeper repeats it until the
// session settles.
func (s *blackjackSession) IdleAction() (string, map[string]any) {
	return "stand", nil
}

func (s *blackjackSession) Snapshot() (json.RawMessage, error) {
	return json.Marshal(s)
}
