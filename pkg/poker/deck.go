package poker

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
)

// Suit represents a card suit.
type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

// Rank represents a card rank, Two through Ace.
type Rank string

const (
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
	Ace   Rank = "A"
)

// rankOrder assigns the ordinal used for straight/tiebreaker comparisons,
// with Ace high (14). The wheel straight is special-cased in the evaluator.
var rankOrder = map[Rank]int{
	Two: 2, Three: 3, Four: 4, Five: 5, Six: 6, Seven: 7, Eight: 8,
	Nine: 9, Ten: 10, Jack: 11, Queen: 12, King: 13, Ace: 14,
}

// Card is an immutable (rank, suit) pair.
type Card struct {
	suit Suit
	rank Rank
}

// NewCard builds a Card from its rank and suit.
func NewCard(rank Rank, suit Suit) Card {
	return Card{rank: rank, suit: suit}
}

// Suit returns the card's suit.
func (c Card) Suit() Suit { return c.suit }

// Rank returns the card's rank.
func (c Card) Rank() Rank { return c.rank }

// RankOrder returns the card's ordinal rank, Ace high (14).
func (c Card) RankOrder() int { return rankOrder[c.rank] }

// String renders the card as e.g. "A♠" or "10♦".
func (c Card) String() string {
	return string(c.rank) + string(c.suit)
}

type cardJSON struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

// MarshalJSON implements json.Marshaler.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(cardJSON{Rank: string(c.rank), Suit: string(c.suit)})
}

// UnmarshalJSON implements json.Unmarshaler, accepting the common suit/rank
// aliases seen across client payloads (unicode glyphs, letters, words).
func (c *Card) UnmarshalJSON(data []byte) error {
	var raw cardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	suit, err := parseSuit(raw.Suit)
	if err != nil {
		return err
	}
	rank, err := parseRank(raw.Rank)
	if err != nil {
		return err
	}
	c.suit = suit
	c.rank = rank
	return nil
}

func parseSuit(s string) (Suit, error) {
	switch s {
	case "♠", "s", "S", "spades", "Spades":
		return Spades, nil
	case "♥", "h", "H", "hearts", "Hearts":
		return Hearts, nil
	case "♦", "d", "D", "diamonds", "Diamonds":
		return Diamonds, nil
	case "♣", "c", "C", "clubs", "Clubs":
		return Clubs, nil
	default:
		return "", fmt.Errorf("invalid suit: %q", s)
	}
}

func parseRank(s string) (Rank, error) {
	switch s {
	case "A", "a", "ace", "Ace":
		return Ace, nil
	case "K", "k", "king", "King":
		return King, nil
	case "Q", "q", "queen", "Queen":
		return Queen, nil
	case "J", "j", "jack", "Jack":
		return Jack, nil
	case "10", "T", "t", "ten", "Ten":
		return Ten, nil
	case "9", "nine", "Nine":
		return Nine, nil
	case "8", "eight", "Eight":
		return Eight, nil
	case "7", "seven", "Seven":
		return Seven, nil
	case "6", "six", "Six":
		return Six, nil
	case "5", "five", "Five":
		return Five, nil
	case "4", "four", "Four":
		return Four, nil
	case "3", "three", "Three":
		return Three, nil
	case "2", "two", "Two":
		return Two, nil
	default:
		return "", fmt.Errorf("invalid rank: %q", s)
	}
}

// ErrDeckExhausted is returned by Draw when fewer than the requested number
// of cards remain.
var ErrDeckExhausted = errors.New("poker: deck exhausted")

// Deck is the 52-card universe with a cursor over an already-shuffled
// ordering. Cards are drawn from the front; nothing is reshuffled mid-hand.
type Deck struct {
	cards []Card
}

// allCards returns the 52 distinct (rank, suit) combinations in a fixed,
// canonical order. NewShuffledDeck permutes a copy of this slice.
func allCards() []Card {
	suits := []Suit{Spades, Hearts, Diamonds, Clubs}
	ranks := []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}
	cards := make([]Card, 0, 52)
	for _, s := range suits {
		for _, r := range ranks {
			cards = append(cards, Card{suit: s, rank: r})
		}
	}
	return cards
}

// NewShuffledDeck produces a uniformly shuffled 52-card deck using a
// Fisher-Yates permutation over the rng. The rng must be seedable so tests
// can reproduce an exact deal order (see S2 in the scenario suite).
func NewShuffledDeck(rng *rand.Rand) *Deck {
	cards := allCards()
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return &Deck{cards: cards}
}

// Draw removes and returns the next n cards from the top of the deck.
// It fails with ErrDeckExhausted, leaving the deck unmodified, if fewer
// than n cards remain.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n < 0 {
		return nil, fmt.Errorf("poker: negative draw count %d", n)
	}
	if len(d.cards) < n {
		return nil, ErrDeckExhausted
	}
	drawn := make([]Card, n)
	copy(drawn, d.cards[:n])
	d.cards = d.cards[n:]
	return drawn, nil
}

// Remaining returns the number of undealt cards left in the deck.
func (d *Deck) Remaining() int { return len(d.cards) }

// DeckState is the serializable cursor state of a deck: State captures it
// and RestoreDeck rebuilds a Deck from it.
type DeckState struct {
	RemainingCards []Card `json:"remaining_cards"`
}

// State returns the deck's current persistable state.
func (d *Deck) State() DeckState {
	cards := make([]Card, len(d.cards))
	copy(cards, d.cards)
	return DeckState{RemainingCards: cards}
}

// RestoreDeck rebuilds a Deck from a previously captured state, with no
// reshuffle — the remaining cursor order is exactly as persisted.
func RestoreDeck(state DeckState) *Deck {
	cards := make([]Card, len(state.RemainingCards))
	copy(cards, state.RemainingCards)
	return &Deck{cards: cards}
}
