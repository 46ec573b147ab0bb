package poker

import "testing"

func hand(cards ...Card) []Card { return cards }

func TestEvaluateCategories(t *testing.T) {
	tests := []struct {
		name         string
		cards        []Card
		wantCategory Category
		wantTie      []int
	}{
		{
			name: "Royal flush collapses into StraightFlush",
			cards: hand(
				NewCard(Ace, Hearts), NewCard(King, Hearts), NewCard(Queen, Hearts),
				NewCard(Jack, Hearts), NewCard(Ten, Hearts), NewCard(Three, Clubs), NewCard(Four, Diamonds),
			),
			wantCategory: StraightFlush,
			wantTie:      []int{14},
		},
		{
			name: "Straight flush",
			cards: hand(
				NewCard(Nine, Spades), NewCard(Eight, Spades), NewCard(Seven, Spades),
				NewCard(Six, Spades), NewCard(Five, Spades), NewCard(Two, Hearts), NewCard(Three, Diamonds),
			),
			wantCategory: StraightFlush,
			wantTie:      []int{9},
		},
		{
			name: "Wheel straight ranks below six-high straight",
			cards: hand(
				NewCard(Ace, Hearts), NewCard(Two, Clubs), NewCard(Three, Diamonds),
				NewCard(Four, Spades), NewCard(Five, Hearts), NewCard(King, Clubs), NewCard(Queen, Diamonds),
			),
			wantCategory: Straight,
			wantTie:      []int{5},
		},
		{
			name: "Four of a kind",
			cards: hand(
				NewCard(Ace, Hearts), NewCard(Ace, Spades), NewCard(Ace, Clubs),
				NewCard(Ace, Diamonds), NewCard(King, Hearts), NewCard(Queen, Clubs), NewCard(Jack, Spades),
			),
			wantCategory: Quads,
			wantTie:      []int{14, 13},
		},
		{
			name: "Full house",
			cards: hand(
				NewCard(King, Hearts), NewCard(King, Spades), NewCard(King, Clubs),
				NewCard(Ten, Diamonds), NewCard(Ten, Hearts), NewCard(Two, Clubs), NewCard(Three, Diamonds),
			),
			wantCategory: FullHouse,
			wantTie:      []int{13, 10},
		},
		{
			name: "Two pair picks the top two pairs and a kicker",
			cards: hand(
				NewCard(King, Hearts), NewCard(King, Spades), NewCard(Ten, Clubs),
				NewCard(Ten, Diamonds), NewCard(Nine, Hearts), NewCard(Nine, Clubs), NewCard(Two, Diamonds),
			),
			wantCategory: TwoPair,
			wantTie:      []int{13, 10, 9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := Evaluate(tt.cards)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if value.Category != tt.wantCategory {
				t.Errorf("category = %v, want %v", value.Category, tt.wantCategory)
			}
			if len(value.Tiebreakers) < len(tt.wantTie) {
				t.Fatalf("tiebreakers too short: %v", value.Tiebreakers)
			}
			for i, want := range tt.wantTie {
				if value.Tiebreakers[i] != want {
					t.Errorf("tiebreaker[%d] = %d, want %d (full: %v)", i, value.Tiebreakers[i], want, value.Tiebreakers)
				}
			}
		})
	}
}

func TestEvaluateInsufficientCards(t *testing.T) {
	_, err := Evaluate(hand(NewCard(Ace, Hearts), NewCard(King, Hearts)))
	if err != ErrInsufficientCards {
		t.Fatalf("expected ErrInsufficientCards, got %v", err)
	}
}

func TestCompareTotalOrder(t *testing.T) {
	flush, err := Evaluate(hand(
		NewCard(Ace, Spades), NewCard(King, Spades), NewCard(Queen, Spades),
		NewCard(Jack, Spades), NewCard(Two, Spades),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pair, err := Evaluate(hand(
		NewCard(Ace, Spades), NewCard(Ace, Hearts), NewCard(King, Clubs),
		NewCard(Queen, Diamonds), NewCard(Two, Hearts),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if Compare(flush, pair) != 1 {
		t.Errorf("expected flush to beat pair")
	}
	if Compare(pair, flush) != -1 {
		t.Errorf("expected pair to lose to flush")
	}
	if Compare(flush, flush) != 0 {
		t.Errorf("expected a hand to tie itself")
	}
}

func TestCompareWheelBelowSixHigh(t *testing.T) {
	wheel, err := Evaluate(hand(
		NewCard(Ace, Hearts), NewCard(Two, Clubs), NewCard(Three, Diamonds),
		NewCard(Four, Spades), NewCard(Five, Hearts),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sixHigh, err := Evaluate(hand(
		NewCard(Six, Hearts), NewCard(Two, Clubs), NewCard(Three, Diamonds),
		NewCard(Four, Spades), NewCard(Five, Hearts),
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if Compare(wheel, sixHigh) != -1 {
		t.Errorf("expected wheel straight to rank below six-high straight")
	}
}
