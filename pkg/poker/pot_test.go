package poker

import "testing"

func seatedPlayer(seat int, committed int64, status Status) *Player {
	p := NewPlayer("user", "user", 0)
	p.Seat = seat
	p.CommittedThisHand = committed
	p.Status = status
	return p
}

func TestBuildPotsSingleLevel(t *testing.T) {
	players := []*Player{
		seatedPlayer(0, 10, Active),
		seatedPlayer(1, 10, Active),
		seatedPlayer(2, 10, Active),
	}

	pots := BuildPots(players)
	if len(pots) != 1 {
		t.Fatalf("expected 1 pot, got %d", len(pots))
	}
	if pots[0].Amount != 30 {
		t.Errorf("expected pot of 30, got %d", pots[0].Amount)
	}
	for _, seat := range []int{0, 1, 2} {
		if !pots[0].EligibleSeats[seat] {
			t.Errorf("seat %d should be eligible", seat)
		}
	}
}

// Mirrors scenario S3: one short all-in creates a main pot and a side pot.
func TestBuildPotsSidePot(t *testing.T) {
	players := []*Player{
		seatedPlayer(0, 50, AllIn),    // Seat1 all-in for 50
		seatedPlayer(1, 200, Active),  // Seat2 called the 200 raise
		seatedPlayer(2, 200, Active),  // Seat3 raised to 200
	}

	pots := BuildPots(players)
	if len(pots) != 2 {
		t.Fatalf("expected main pot + side pot, got %d pots", len(pots))
	}

	main := pots[0]
	if main.Amount != 150 {
		t.Errorf("expected main pot of 150, got %d", main.Amount)
	}
	for _, seat := range []int{0, 1, 2} {
		if !main.EligibleSeats[seat] {
			t.Errorf("seat %d should be eligible for the main pot", seat)
		}
	}

	side := pots[1]
	if side.Amount != 300 {
		t.Errorf("expected side pot of 300, got %d", side.Amount)
	}
	if side.EligibleSeats[0] {
		t.Errorf("all-in seat 0 must not be eligible for the side pot")
	}
	if !side.EligibleSeats[1] || !side.EligibleSeats[2] {
		t.Errorf("seats 1 and 2 should be eligible for the side pot")
	}
}

func TestBuildPotsKeepsFoldedChipsButNotFoldedSeat(t *testing.T) {
	players := []*Player{
		seatedPlayer(0, 60, Active),
		seatedPlayer(1, 60, Active),
		seatedPlayer(2, 10, Folded),
	}

	pots := BuildPots(players)
	if len(pots) != 1 {
		t.Fatalf("expected 1 pot, got %d", len(pots))
	}
	if pots[0].Amount != 130 {
		t.Errorf("expected pot of 130 (60+60+10 from the folded player's dead money), got %d", pots[0].Amount)
	}
	if pots[0].EligibleSeats[2] {
		t.Errorf("folded seat must not be eligible to win")
	}
}

func hv(category Category, tiebreakers ...int) *HandValue {
	return &HandValue{Category: category, Tiebreakers: tiebreakers, Description: category.String()}
}

// Mirrors scenario S6: pot=101, two tied seats, dealer at Seat3 (seat index 2);
// the earliest winner clockwise from the dealer receives the extra chip.
func TestDistributeOddChipGoesToEarliestClockwiseFromDealer(t *testing.T) {
	seat1 := seatedPlayer(0, 101, Active)
	seat1.HandValue = hv(Pair, 10)
	seat2 := seatedPlayer(1, 101, Active)
	seat2.HandValue = hv(Pair, 10)

	players := map[int]*Player{0: seat1, 1: seat2}
	pots := []*Pot{{Amount: 101, EligibleSeats: map[int]bool{0: true, 1: true}}}

	results := Distribute(pots, players, 2 /* dealer seat */, 3)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Payouts[0] != 51 {
		t.Errorf("expected seat 0 to receive 51, got %d", results[0].Payouts[0])
	}
	if results[0].Payouts[1] != 50 {
		t.Errorf("expected seat 1 to receive 50, got %d", results[0].Payouts[1])
	}
}

func TestDistributeSingleWinnerTakesWholeLayer(t *testing.T) {
	winner := seatedPlayer(0, 150, Active)
	winner.HandValue = hv(StraightFlush, 9)
	loser := seatedPlayer(1, 150, Active)
	loser.HandValue = hv(Pair, 5)

	players := map[int]*Player{0: winner, 1: loser}
	pots := []*Pot{{Amount: 150, EligibleSeats: map[int]bool{0: true, 1: true}}}

	results := Distribute(pots, players, 1, 2)
	if results[0].Payouts[0] != 150 {
		t.Errorf("expected winner to take the whole pot, got %d", results[0].Payouts[0])
	}
	if _, ok := results[0].Payouts[1]; ok {
		t.Errorf("loser should not receive a payout")
	}
	if winner.Stack != 150 {
		t.Errorf("expected winner stack mutated to 150, got %d", winner.Stack)
	}
}

func TestDistributeConservesChips(t *testing.T) {
	players := []*Player{
		seatedPlayer(0, 50, AllIn),
		seatedPlayer(1, 200, Active),
		seatedPlayer(2, 200, Active),
	}
	players[0].HandValue = hv(Straight, 8)
	players[1].HandValue = hv(Pair, 4)
	players[2].HandValue = hv(TwoPair, 9, 4)

	pots := BuildPots(players)
	bySeat := map[int]*Player{0: players[0], 1: players[1], 2: players[2]}

	total := TotalCommitted(players)
	results := Distribute(pots, bySeat, 2, 3)

	var distributed int64
	for _, r := range results {
		for _, amt := range r.Payouts {
			distributed += amt
		}
	}
	if distributed != total {
		t.Errorf("expected distributed chips to equal committed chips: got %d, want %d", distributed, total)
	}
}

// TestBuildPotsRefundsUncalledRaise covers the case where the top layer of
// committed chips has only one eligible seat: nobody else could match a
// raise (e.g. a short-stacked all-in capped the rest of the table), so that
// top layer is awarded back to its sole contributor without needing a
// separate "return uncalled bet" step.
func TestBuildPotsRefundsUncalledRaise(t *testing.T) {
	caller := seatedPlayer(0, 50, Active)
	raiser := seatedPlayer(1, 200, Active)

	pots := BuildPots([]*Player{caller, raiser})
	if len(pots) != 2 {
		t.Fatalf("expected 2 pots, got %d", len(pots))
	}
	if pots[0].Amount != 100 || !pots[0].EligibleSeats[0] || !pots[0].EligibleSeats[1] {
		t.Errorf("expected a 100-chip pot eligible to both seats, got %+v", pots[0])
	}
	if pots[1].Amount != 150 || pots[1].EligibleSeats[0] || !pots[1].EligibleSeats[1] {
		t.Errorf("expected the uncalled 150 chips to return solely to seat 1, got %+v", pots[1])
	}
}
