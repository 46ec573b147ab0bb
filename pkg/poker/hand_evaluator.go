package poker

import (
	"errors"
	"fmt"
	"sort"

	chehsunliu "github.com/chehsunliu/poker"
)

// Category is a poker hand category, ordered weakest to strongest.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	Trips
	Straight
	Flush
	FullHouse
	Quads
	StraightFlush
)

var categoryNames = map[Category]string{
	HighCard:      "High Card",
	Pair:          "Pair",
	TwoPair:       "Two Pair",
	Trips:         "Three of a Kind",
	Straight:      "Straight",
	Flush:         "Flush",
	FullHouse:     "Full House",
	Quads:         "Four of a Kind",
	StraightFlush: "Straight Flush",
}

func (c Category) String() string { return categoryNames[c] }

// HandValue is the comparable strength key produced by Evaluate: a category
// plus descending tiebreaker ranks, together with the winning 5-card
// selection and a presentational description.
type HandValue struct {
	Category    Category
	Tiebreakers []int
	BestHand    []Card
	Description string
}

// ErrInsufficientCards is returned when fewer than 5 cards are supplied.
var ErrInsufficientCards = errors.New("poker: at least 5 cards are required to evaluate a hand")

// Evaluate returns the best 5-card HandValue obtainable from the given
// 5-7 cards (hole cards plus community cards, in any order).
//
// chehsunliu/poker supplies the authoritative ranking oracle used to pick
// the winning 5-card combination out of 6 or 7 candidates; the category and
// descending tiebreaker tuple are then derived directly from that winning
// combination rather than from chehsunliu's internal rank class, so the
// result matches the exact (category, tiebreakers[]) shape this engine's
// callers (pot distribution, showdown events) require.
func Evaluate(cards []Card) (HandValue, error) {
	if len(cards) < 5 {
		return HandValue{}, ErrInsufficientCards
	}

	best, err := bestFiveCardCombination(cards)
	if err != nil {
		return HandValue{}, err
	}

	category, tiebreakers := classify(best)
	return HandValue{
		Category:    category,
		Tiebreakers: tiebreakers,
		BestHand:    best,
		Description: describe(category, tiebreakers),
	}, nil
}

// Compare implements the total order over HandValue: lexicographic on
// category, then on tiebreakers. Returns -1, 0, or 1.
func Compare(a, b HandValue) int {
	if a.Category != b.Category {
		if a.Category < b.Category {
			return -1
		}
		return 1
	}
	for i := 0; i < len(a.Tiebreakers) && i < len(b.Tiebreakers); i++ {
		if a.Tiebreakers[i] != b.Tiebreakers[i] {
			if a.Tiebreakers[i] < b.Tiebreakers[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// bestFiveCardCombination converts cards to chehsunliu's representation,
// asks it for the best achievable rank, then finds (by exhaustive 5-card
// search, cheap at 21 combinations worst case for 7 cards) which concrete
// combination attains it.
func bestFiveCardCombination(cards []Card) ([]Card, error) {
	if len(cards) == 5 {
		return append([]Card{}, cards...), nil
	}

	chCards := make([]chehsunliu.Card, len(cards))
	for i, c := range cards {
		conv, err := toChehsunliu(c)
		if err != nil {
			return nil, err
		}
		chCards[i] = conv
	}
	bestRank := chehsunliu.Evaluate(chCards)

	for _, combo := range combinations(cards, 5) {
		comboCh := make([]chehsunliu.Card, 5)
		for i, c := range combo {
			conv, err := toChehsunliu(c)
			if err != nil {
				return nil, err
			}
			comboCh[i] = conv
		}
		if chehsunliu.Evaluate(comboCh) == bestRank {
			return combo, nil
		}
	}
	// Unreachable for well-formed input: chehsunliu's best rank is always
	// attained by some 5-card subset of the cards it was given.
	return nil, fmt.Errorf("poker: no 5-card combination matched the evaluated rank")
}

func toChehsunliu(c Card) (chehsunliu.Card, error) {
	var rankChar byte
	switch c.Rank() {
	case Two:
		rankChar = '2'
	case Three:
		rankChar = '3'
	case Four:
		rankChar = '4'
	case Five:
		rankChar = '5'
	case Six:
		rankChar = '6'
	case Seven:
		rankChar = '7'
	case Eight:
		rankChar = '8'
	case Nine:
		rankChar = '9'
	case Ten:
		rankChar = 'T'
	case Jack:
		rankChar = 'J'
	case Queen:
		rankChar = 'Q'
	case King:
		rankChar = 'K'
	case Ace:
		rankChar = 'A'
	default:
		var zero chehsunliu.Card
		return zero, fmt.Errorf("poker: invalid rank %q", c.Rank())
	}

	var suitChar byte
	switch c.Suit() {
	case Spades:
		suitChar = 's'
	case Hearts:
		suitChar = 'h'
	case Diamonds:
		suitChar = 'd'
	case Clubs:
		suitChar = 'c'
	default:
		var zero chehsunliu.Card
		return zero, fmt.Errorf("poker: invalid suit %q", c.Suit())
	}

	return chehsunliu.NewCard(string([]byte{rankChar, suitChar})), nil
}

func combinations(cards []Card, k int) [][]Card {
	var out [][]Card
	if k > len(cards) || k <= 0 {
		return out
	}
	var generate func(start int, current []Card)
	generate = func(start int, current []Card) {
		if len(current) == k {
			combo := make([]Card, k)
			copy(combo, current)
			out = append(out, combo)
			return
		}
		for i := start; i <= len(cards)-(k-len(current)); i++ {
			generate(i+1, append(current, cards[i]))
		}
	}
	generate(0, nil)
	return out
}

// classify derives the category and descending tiebreaker ranks for an
// exact 5-card hand. Ace is high (14) except in the wheel straight
// (A-2-3-4-5), which ranks as 5-high so it naturally sorts below every
// other straight.
func classify(hand []Card) (Category, []int) {
	ranks := make([]int, len(hand))
	for i, c := range hand {
		ranks[i] = c.RankOrder()
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	isFlush := true
	for _, c := range hand {
		if c.Suit() != hand[0].Suit() {
			isFlush = false
			break
		}
	}

	straightHigh, isStraight := straightHighCard(ranks)

	counts := map[int]int{}
	for _, r := range ranks {
		counts[r]++
	}
	groups := groupByCount(counts)

	switch {
	case isFlush && isStraight:
		return StraightFlush, []int{straightHigh}
	case groups[4] != nil:
		quad := groups[4][0]
		kicker := highestNotIn(ranks, groups[4])
		return Quads, []int{quad, kicker}
	case groups[3] != nil && groups[2] != nil:
		return FullHouse, []int{groups[3][0], groups[2][0]}
	case isFlush:
		return Flush, append([]int{}, ranks...)
	case isStraight:
		return Straight, []int{straightHigh}
	case groups[3] != nil:
		trips := groups[3][0]
		kickers := descendingExcluding(ranks, groups[3])
		return Trips, append([]int{trips}, kickers...)
	case len(groups[2]) == 2:
		pairs := groups[2]
		sort.Sort(sort.Reverse(sort.IntSlice(pairs)))
		kicker := highestNotIn(ranks, pairs)
		return TwoPair, []int{pairs[0], pairs[1], kicker}
	case groups[2] != nil:
		pair := groups[2][0]
		kickers := descendingExcluding(ranks, groups[2])
		return Pair, append([]int{pair}, kickers...)
	default:
		return HighCard, append([]int{}, ranks...)
	}
}

// groupByCount returns, for each multiplicity (4,3,2,1), the distinct ranks
// that occur that many times.
func groupByCount(counts map[int]int) map[int][]int {
	groups := map[int][]int{}
	for rank, n := range counts {
		groups[n] = append(groups[n], rank)
	}
	for _, ranks := range groups {
		sort.Sort(sort.Reverse(sort.IntSlice(ranks)))
	}
	return groups
}

func highestNotIn(ranksDesc []int, exclude []int) int {
	excluded := map[int]bool{}
	for _, r := range exclude {
		excluded[r] = true
	}
	for _, r := range ranksDesc {
		if !excluded[r] {
			return r
		}
	}
	return 0
}

func descendingExcluding(ranksDesc []int, exclude []int) []int {
	excluded := map[int]bool{}
	for _, r := range exclude {
		excluded[r] = true
	}
	var out []int
	for _, r := range ranksDesc {
		if !excluded[r] {
			out = append(out, r)
		}
	}
	return out
}

// wheelRanks is the rank set of the A-2-3-4-5 straight.
var wheelRanks = map[int]bool{14: true, 5: true, 4: true, 3: true, 2: true}

// straightHighCard reports whether the 5 (possibly duplicated, though a
// valid poker hand never duplicates) ranks form a straight, and if so its
// high card — 5 for the wheel, regardless of the Ace's nominal value 14.
func straightHighCard(ranksDesc []int) (int, bool) {
	distinct := map[int]bool{}
	for _, r := range ranksDesc {
		distinct[r] = true
	}
	if len(distinct) != 5 {
		return 0, false
	}

	allWheel := true
	for r := range distinct {
		if !wheelRanks[r] {
			allWheel = false
			break
		}
	}
	if allWheel {
		return 5, true
	}

	high := ranksDesc[0]
	low := ranksDesc[len(ranksDesc)-1]
	if high-low == 4 {
		return high, true
	}
	return 0, false
}

func describe(category Category, tiebreakers []int) string {
	rankName := func(r int) string {
		for rank, order := range rankOrder {
			if order == r {
				return string(rank)
			}
		}
		return "?"
	}

	switch category {
	case FullHouse:
		return fmt.Sprintf("Full House, %ss full of %ss", rankName(tiebreakers[0]), rankName(tiebreakers[1]))
	case TwoPair:
		return fmt.Sprintf("Two Pair, %ss and %ss", rankName(tiebreakers[0]), rankName(tiebreakers[1]))
	case Quads:
		return fmt.Sprintf("Four of a Kind, %ss", rankName(tiebreakers[0]))
	case Trips:
		return fmt.Sprintf("Three of a Kind, %ss", rankName(tiebreakers[0]))
	case Pair:
		return fmt.Sprintf("Pair of %ss", rankName(tiebreakers[0]))
	case Straight, StraightFlush:
		label := "Straight"
		if category == StraightFlush {
			label = "Straight Flush"
		}
		return fmt.Sprintf("%s, %s high", label, rankName(tiebreakers[0]))
	case Flush:
		return fmt.Sprintf("Flush, %s high", rankName(tiebreakers[0]))
	default:
		return fmt.Sprintf("High Card, %s", rankName(tiebreakers[0]))
	}
}
