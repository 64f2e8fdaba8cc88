package games

import (
	"fmt"
	"sort"
)

// Card represents a playing card with rank and suit.
type Card struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

// String returns a human-readable card representation like "♦2" or "♠A".
func (c Card) String() string {
	return c.Suit + c.Rank
}

// Suits in deck-index order: ♦, ♥, ♠, ♣
var cardSuits = []string{"♦", "♥", "♠", "♣"}

// Ranks in order: 2-10, J, Q, K, A
var cardRanks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

// The full 52-card deck in index order: ♦2, ♥2, ♠2, ♣2, ♦3, ...
var cardDeck [52]Card

func init() {
	i := 0
	for _, rank := range cardRanks {
		for _, suit := range cardSuits {
			cardDeck[i] = Card{Rank: rank, Suit: suit}
			i++
		}
	}
}

// Shoe is a dealt-from arena of shuffled card indices: a fixed slice with a
// cursor, never a shrinking collection, so replay only needs the
// permutation and the number of cards dealt.
type Shoe struct {
	Order  []int `json:"order"`
	Cursor int   `json:"cursor"`
}

// newShoe builds a shoe of decks*52 cards from a committed permutation of
// card indices. For multi-deck shoes the permutation indexes into repeated
// 52-card decks.
func newShoe(order []int) *Shoe {
	return &Shoe{Order: order}
}

// Deal pops the next card from the front of the shoe.
func (s *Shoe) Deal() Card {
	if s.Cursor >= len(s.Order) {
		panic(fmt.Sprintf("games: shoe exhausted after %d cards", len(s.Order)))
	}
	c := cardDeck[s.Order[s.Cursor]%52]
	s.Cursor++
	return c
}

// Remaining returns the cards not yet dealt, in order.
func (s *Shoe) Remaining() []Card {
	out := make([]Card, 0, len(s.Order)-s.Cursor)
	for _, idx := range s.Order[s.Cursor:] {
		out = append(out, cardDeck[idx%52])
	}
	return out
}

// Dealt returns how many cards have been dealt so far.
func (s *Shoe) Dealt() int {
	return s.Cursor
}

// cardRankValue returns the ordering value of a card rank.
// 2=2, ..., 10=10, J=11, Q=12, K=13, A=14 (aces high).
func cardRankValue(rank string) int {
	switch rank {
	case "A":
		return 14
	case "K":
		return 13
	case "Q":
		return 12
	case "J":
		return 11
	case "10":
		return 10
	case "9":
		return 9
	case "8":
		return 8
	case "7":
		return 7
	case "6":
		return 6
	case "5":
		return 5
	case "4":
		return 4
	case "3":
		return 3
	case "2":
		return 2
	default:
		return 0
	}
}

// baccaratCardValue returns the baccarat point value of a card.
// 2-9: face value, 10/J/Q/K: 0, A: 1
func baccaratCardValue(rank string) int {
	switch rank {
	case "A":
		return 1
	case "2":
		return 2
	case "3":
		return 3
	case "4":
		return 4
	case "5":
		return 5
	case "6":
		return 6
	case "7":
		return 7
	case "8":
		return 8
	case "9":
		return 9
	default: // 10, J, Q, K
		return 0
	}
}

// blackjackCardValue returns the blackjack point value of a card.
// 2-10: face value, J/Q/K: 10, A: 11 (soft)
func blackjackCardValue(rank string) int {
	switch rank {
	case "A":
		return 11
	case "J", "Q", "K", "10":
		return 10
	default:
		return cardRankValue(rank)
	}
}

// blackjackHandValue calculates the best blackjack hand value, reducing
// soft aces from 11 to 1 while the hand is over 21.
func blackjackHandValue(cards []Card) int {
	total := 0
	aces := 0
	for _, c := range cards {
		total += blackjackCardValue(c.Rank)
		if c.Rank == "A" {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// blackjackIsSoft reports whether the hand counts an ace as 11.
func blackjackIsSoft(cards []Card) bool {
	total := 0
	aces := 0
	for _, c := range cards {
		total += blackjackCardValue(c.Rank)
		if c.Rank == "A" {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return aces > 0
}

// baccaratHandScore calculates the baccarat hand score (sum mod 10).
func baccaratHandScore(cards []Card) int {
	total := 0
	for _, c := range cards {
		total += baccaratCardValue(c.Rank)
	}
	return total % 10
}

// Poker hand ranks, worst to best.
const (
	pokerHighCard      = "high_card"
	pokerPair          = "pair"
	pokerJacksOrBetter = "jacks_or_better"
	pokerTwoPair       = "two_pair"
	pokerThreeOfAKind  = "three_of_a_kind"
	pokerStraight      = "straight"
	pokerFlush         = "flush"
	pokerFullHouse     = "full_house"
	pokerFourOfAKind   = "four_of_a_kind"
	pokerStraightFlush = "straight_flush"
	pokerRoyalFlush    = "royal_flush"
)

// evaluatePokerHand returns the rank label of the best 5-card poker hand.
func evaluatePokerHand(cards []Card) string {
	if len(cards) != 5 {
		return "invalid"
	}

	values := make([]int, 5)
	for i, c := range cards {
		values[i] = cardRankValue(c.Rank)
	}
	sort.Ints(values)

	isFlush := true
	for i := 1; i < 5; i++ {
		if cards[i].Suit != cards[0].Suit {
			isFlush = false
			break
		}
	}

	isStraight := values[4]-values[0] == 4 && allUnique(values)
	// Wheel straight: A,2,3,4,5 sorts to [2,3,4,5,14]
	if values[0] == 2 && values[1] == 3 && values[2] == 4 && values[3] == 5 && values[4] == 14 {
		isStraight = true
	}

	freq := make(map[int]int)
	for _, v := range values {
		freq[v]++
	}
	counts := make([]int, 0, len(freq))
	for _, c := range freq {
		counts = append(counts, c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))

	switch {
	case isFlush && isStraight:
		if values[0] == 10 {
			return pokerRoyalFlush
		}
		return pokerStraightFlush
	case counts[0] == 4:
		return pokerFourOfAKind
	case counts[0] == 3 && counts[1] == 2:
		return pokerFullHouse
	case isFlush:
		return pokerFlush
	case isStraight:
		return pokerStraight
	case counts[0] == 3:
		return pokerThreeOfAKind
	case counts[0] == 2 && counts[1] == 2:
		return pokerTwoPair
	case counts[0] == 2:
		for v, c := range freq {
			if c == 2 && v >= 11 { // J, Q, K, A
				return pokerJacksOrBetter
			}
		}
		return pokerPair
	default:
		return pokerHighCard
	}
}

func allUnique(vals []int) bool {
	seen := make(map[int]bool, len(vals))
	for _, v := range vals {
		if seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func cardStrings(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}
