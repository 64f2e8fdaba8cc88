package games

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/provablyhq/casino-engine/internal/engine"
)

// BaccaratGame implements Baccarat dealt from a fresh eight-deck shoe
// shuffled per round. Deal order: player, banker, player, banker, then
// third cards per the standard tableau.
type BaccaratGame struct{}

const baccaratDecks = 8

// Spec returns metadata about the Baccarat game.
func (g *BaccaratGame) Spec() Spec {
	return Spec{ID: "baccarat", Name: "Baccarat"}
}

// Definition returns the static rule set for Baccarat. The edge differs
// per bet; the definition carries the banker-bet figure.
func (g *BaccaratGame) Definition() Definition {
	return Definition{
		HouseEdge: 0.0106,
		MinBet:    decimal.RequireFromString("0.00000001"),
		MaxBet:    decimal.RequireFromString("1000"),
	}
}

// Play shuffles the shoe, deals by the tableau and resolves one bet.
func (g *BaccaratGame) Play(bg *engine.ByteGenerator, params map[string]any) (Result, error) {
	bet, err := paramString(params, "bet", "")
	if err != nil {
		return Result{}, err
	}
	if bet != "player" && bet != "banker" && bet != "tie" {
		return Result{}, fmt.Errorf("%w: baccarat bet must be player, banker or tie", ErrInvalidParams)
	}

	shoe := newShoe(bg.Shuffle(baccaratDecks * 52))

	playerCards := []Card{shoe.Deal()}
	bankerCards := []Card{shoe.Deal()}
	playerCards = append(playerCards, shoe.Deal())
	bankerCards = append(bankerCards, shoe.Deal())

	playerScore := baccaratHandScore(playerCards)
	bankerScore := baccaratHandScore(bankerCards)

	playerDraws := false
	bankerDraws := false

	// Naturals (8 or 9) freeze both hands.
	if playerScore < 8 && bankerScore < 8 {
		if playerScore <= 5 {
			playerDraws = true
			playerCards = append(playerCards, shoe.Deal())
			playerScore = baccaratHandScore(playerCards)
		}

		if playerDraws {
			third := baccaratCardValue(playerCards[2].Rank)
			bankerDraws = bankerShouldDraw(bankerScore, third)
		} else {
			bankerDraws = bankerScore <= 5
		}

		if bankerDraws {
			bankerCards = append(bankerCards, shoe.Deal())
			bankerScore = baccaratHandScore(bankerCards)
		}
	}

	var winner string
	switch {
	case playerScore > bankerScore:
		winner = "player"
	case bankerScore > playerScore:
		winner = "banker"
	default:
		winner = "tie"
	}

	multiplier := 0.0
	switch {
	case bet == winner && bet == "player":
		multiplier = 2.0
	case bet == winner && bet == "banker":
		multiplier = 1.95 // 5% commission on the win
	case bet == winner && bet == "tie":
		multiplier = 9.0
	case winner == "tie":
		multiplier = 1.0 // player/banker bets push on a tie
	}

	return Result{
		Multiplier: multiplier,
		DrawCount:  bg.Draws(),
		Payload: map[string]any{
			"bet":          bet,
			"player_cards": cardStrings(playerCards),
			"banker_cards": cardStrings(bankerCards),
			"player_score": playerScore,
			"banker_score": bankerScore,
			"winner":       winner,
		},
	}, nil
}

// bankerShouldDraw implements the standard baccarat banker third-card
// rule given the point value of the player's third card.
func bankerShouldDraw(bankerScore, playerThirdCard int) bool {
	switch bankerScore {
	case 0, 1, 2:
		return true
	case 3:
		return playerThirdCard != 8
	case 4:
		return playerThirdCard >= 2 && playerThirdCard <= 7
	case 5:
		return playerThirdCard >= 4 && playerThirdCard <= 7
	case 6:
		return playerThirdCard == 6 || playerThirdCard == 7
	default: // 7, 8, 9
		return false
	}
}
