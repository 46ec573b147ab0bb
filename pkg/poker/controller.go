package poker

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/tablesmith/holdemserver/pkg/statemachine"
)

// Phase is the Hand Controller's tagged state variant (§9): a single
// state lives on the Table rather than being inferred from scattered
// per-column flags.
type Phase int

const (
	Lobby Phase = iota
	PreFlop
	Flop
	Turn
	River
	Showdown
	Complete
	Corrupt
)

func (p Phase) String() string {
	switch p {
	case Lobby:
		return "Lobby"
	case PreFlop:
		return "PreFlop"
	case Flop:
		return "Flop"
	case Turn:
		return "Turn"
	case River:
		return "River"
	case Showdown:
		return "Showdown"
	case Complete:
		return "Complete"
	case Corrupt:
		return "Corrupt"
	default:
		return "Unknown"
	}
}

// PhaseStateFn follows Rob Pike's self-describing state function pattern:
// each phase function performs whatever entry bookkeeping it owns and
// returns the function for the next phase. The Hand Controller dispatches
// through a statemachine.StateMachine[Table] exactly the way the phase
// and player machines in the reference implementation do, but with one
// state machine per table instead of one per table plus one per player.
type PhaseStateFn = statemachine.StateFn[Table]

// Turn timer defaults (§4.5).
const DefaultActionDeadline = 30 * time.Second

// Sentinel errors for the four-tier error taxonomy (§7).
var (
	ErrMalformed          = errors.New("poker: malformed command")
	ErrOutOfRange         = errors.New("poker: value out of range")
	ErrNotYourTurn        = errors.New("poker: not your turn")
	ErrTableFull          = errors.New("poker: table is full")
	ErrTableInProgress    = errors.New("poker: hand already in progress")
	ErrInsufficientChips  = errors.New("poker: insufficient chips")
	ErrNotEnoughPlayers   = errors.New("poker: at least two players with positive stacks are required")
	ErrSeatNotOccupied    = errors.New("poker: seat is not occupied")
)

// IllegalActionError is returned when a PlayerAction fails a legality
// precondition (§4.3); it never mutates table state.
type IllegalActionError struct{ Reason string }

func (e *IllegalActionError) Error() string { return fmt.Sprintf("poker: illegal action: %s", e.Reason) }

// CorruptTableError marks a fatal invariant violation (§7); the table is
// frozen and further commands must be rejected by the dispatcher.
type CorruptTableError struct{ Reason string }

func (e *CorruptTableError) Error() string { return fmt.Sprintf("poker: table corrupt: %s", e.Reason) }

// Clock is the minimal time source the controller needs to stamp turn
// deadlines. github.com/coder/quartz's Clock and Mock both satisfy it.
type Clock interface {
	Now() time.Time
}

// Table is the Table State entity (§3): the data model for one table,
// mutated exclusively through the Hand Controller's exported methods.
type Table struct {
	mu sync.RWMutex

	ID         string
	MaxSeats   int
	SmallBlind int64
	BigBlind   int64

	seats map[int]*Player

	DealerSeat      int // -1 until the first hand starts
	Phase           Phase
	CurrentBet      int64
	LastRaiseIncr   int64
	CurrentTurn     int // -1 when no seat is on the clock
	HandNumber      int
	Deck            *Deck
	Community       []Card
	CurrentDeadline *time.Time

	clock Clock
	log   slog.Logger

	stateMachine *statemachine.StateMachine[Table]

	autoStartDelay      time.Duration
	autoStartMinPlayers int
	autoStartDeadline   *time.Time
}

// NewTable creates an empty table in the Lobby phase.
func NewTable(id string, maxSeats int, smallBlind, bigBlind int64, clock Clock, log slog.Logger) *Table {
	t := &Table{
		ID:          id,
		MaxSeats:    maxSeats,
		SmallBlind:  smallBlind,
		BigBlind:    bigBlind,
		seats:       make(map[int]*Player),
		DealerSeat:  -1,
		Phase:       Lobby,
		CurrentTurn: -1,
		clock:       clock,
		log:         log,
	}
	t.stateMachine = statemachine.NewStateMachine(t, phaseLobby)
	return t
}

// phase state functions only exist to give the phase machine somewhere to
// live; all of the actual work happens in the exported command methods
// below, which call SetState directly once a transition is decided. This
// mirrors the teacher's GameStateFn shape while keeping the engine's
// single source of truth for "what phase are we in" on Table.Phase.
func phaseLobby(t *Table, cb func(string, statemachine.StateEvent)) PhaseStateFn {
	if cb != nil {
		cb("Lobby", statemachine.StateEntered)
	}
	return phaseLobby
}

func phaseFor(p Phase) PhaseStateFn {
	switch p {
	case PreFlop:
		return phaseGeneric("PreFlop")
	case Flop:
		return phaseGeneric("Flop")
	case Turn:
		return phaseGeneric("Turn")
	case River:
		return phaseGeneric("River")
	case Showdown:
		return phaseGeneric("Showdown")
	case Complete:
		return phaseGeneric("Complete")
	default:
		return phaseLobby
	}
}

func phaseGeneric(name string) PhaseStateFn {
	var fn PhaseStateFn
	fn = func(t *Table, cb func(string, statemachine.StateEvent)) PhaseStateFn {
		if cb != nil {
			cb(name, statemachine.StateEntered)
		}
		return fn
	}
	return fn
}

func (t *Table) setPhase(p Phase) {
	t.Phase = p
	t.stateMachine.SetState(phaseFor(p))
}

// Seats returns the occupied seat numbers in ascending order.
func (t *Table) Seats() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seatsLocked()
}

func (t *Table) seatsLocked() []int {
	out := make([]int, 0, len(t.seats))
	for seat := range t.seats {
		out = append(out, seat)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j] < out[i] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// Deadline returns the seat currently on the clock and its action
// deadline, or ok=false if no seat is currently on the clock.
func (t *Table) Deadline() (seat int, deadline time.Time, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.CurrentDeadline == nil {
		return 0, time.Time{}, false
	}
	return t.CurrentTurn, *t.CurrentDeadline, true
}

// Player returns the player seated at seat, or nil.
func (t *Table) Player(seat int) *Player {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seats[seat]
}

// Join seats a player at the first free seat and returns it, along with the
// PlayerJoined event (§6). It fails with ErrTableFull if no seat is free.
func (t *Table) Join(userID, name string, buyIn int64) (int, []HandEvent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for seat := 0; seat < t.MaxSeats; seat++ {
		if _, occupied := t.seats[seat]; !occupied {
			p := NewPlayer(userID, name, buyIn)
			p.Seat = seat
			p.Status = SittingOut
			t.seats[seat] = p
			event := HandEvent{Kind: EventPlayerJoined, Payload: PlayerJoinedPayload{Seat: seat, UserID: userID, BuyIn: buyIn}}
			return seat, []HandEvent{event}, nil
		}
	}
	return 0, nil, ErrTableFull
}

// Leave implements LeaveTable (§6). Outside a hand the seat is released
// immediately. During a hand the seat is marked SittingOut and flagged
// WantsToLeave; if it was this seat's turn to act, it is auto-folded first
// (emitting the same ActionTaken a user-initiated fold would). The seat
// itself is released — emitting PlayerLeft — once the hand reaches
// Complete, not before: removing it mid-hand would corrupt the pot/seat
// ring invariants (§3) other seats still rely on for turn order and payout.
func (t *Table) Leave(seat int) []HandEvent {
	t.mu.Lock()
	p, ok := t.seats[seat]
	if !ok {
		t.mu.Unlock()
		return nil
	}

	if t.Phase == Lobby || t.Phase == Complete {
		delete(t.seats, seat)
		t.scheduleAutoStartLocked()
		t.mu.Unlock()
		return []HandEvent{{Kind: EventPlayerLeft, Payload: PlayerLeftPayload{Seat: seat, UserID: p.UserID}}}
	}

	p.WantsToLeave = true
	isActing := seat == t.CurrentTurn && p.Status == Active
	if !isActing {
		p.Status = SittingOut
	}
	t.mu.Unlock()

	if isActing {
		events, err := t.Action(seat, ActionFold, 0)
		if err != nil {
			return nil
		}
		return events
	}
	return nil
}

// releaseDepartedSeatsLocked deletes every seat flagged WantsToLeave,
// emitting PlayerLeft for each. Called once a hand reaches Complete, while
// the caller still holds t.mu.
func (t *Table) releaseDepartedSeatsLocked() []HandEvent {
	var events []HandEvent
	for seat, p := range t.seats {
		if p.WantsToLeave {
			delete(t.seats, seat)
			events = append(events, HandEvent{Kind: EventPlayerLeft, Payload: PlayerLeftPayload{Seat: seat, UserID: p.UserID}})
		}
	}
	return events
}

// nextOccupiedSeat returns the next occupied seat clockwise from `from`
// (exclusive), wrapping modulo MaxSeats. It returns (0, false) if no
// other seat is occupied.
func (t *Table) nextOccupiedSeat(from int) (int, bool) {
	for i := 1; i <= t.MaxSeats; i++ {
		seat := (from + i) % t.MaxSeats
		if _, ok := t.seats[seat]; ok {
			return seat, true
		}
	}
	return 0, false
}

// nextSeatMatching returns the next seat clockwise from `from` (exclusive)
// satisfying pred, wrapping modulo MaxSeats. It returns (0, false) if none
// match within one full revolution.
func (t *Table) nextSeatMatching(from int, pred func(*Player) bool) (int, bool) {
	for i := 1; i <= t.MaxSeats; i++ {
		seat := (from + i) % t.MaxSeats
		if p, ok := t.seats[seat]; ok && pred(p) {
			return seat, true
		}
	}
	return 0, false
}

func (t *Table) eligibleToStart() []*Player {
	var out []*Player
	for _, seat := range t.seatsLocked() {
		p := t.seats[seat]
		if p.IsEligibleToStartHand() {
			out = append(out, p)
		}
	}
	return out
}

// StartHand implements §4.3's StartHand transition.
func (t *Table) StartHand(seed int64) ([]HandEvent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Phase != Lobby && t.Phase != Complete {
		return nil, ErrTableInProgress
	}
	t.autoStartDeadline = nil
	eligible := t.eligibleToStart()
	if len(eligible) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	for _, p := range t.seats {
		p.ResetForHand()
	}

	if t.DealerSeat == -1 {
		seats := t.seatsLocked()
		t.DealerSeat = seats[0]
	} else if next, ok := t.nextOccupiedSeat(t.DealerSeat); ok {
		t.DealerSeat = next
	}
	dealer := t.DealerSeat
	t.seats[dealer].Role = RoleDealer

	headsUp := len(eligible) == 2

	var sbSeat, bbSeat int
	if headsUp {
		sbSeat = dealer
		bb, _ := t.nextSeatMatching(dealer, func(p *Player) bool { return p.IsEligibleToStartHand() })
		bbSeat = bb
	} else {
		sb, _ := t.nextSeatMatching(dealer, func(p *Player) bool { return p.IsEligibleToStartHand() })
		sbSeat = sb
		bb, _ := t.nextSeatMatching(sbSeat, func(p *Player) bool { return p.IsEligibleToStartHand() })
		bbSeat = bb
	}
	t.seats[sbSeat].Role = RoleSmallBlind
	t.seats[bbSeat].Role = RoleBigBlind

	var rng *rand.Rand
	if seed != 0 {
		rng = rand.New(rand.NewSource(seed))
	} else {
		rng = rand.New(rand.NewSource(t.clock.Now().UnixNano()))
	}
	t.Deck = NewShuffledDeck(rng)
	t.Community = nil
	t.HandNumber++

	events := make([]HandEvent, 0, 8)

	events = append(events, t.postBlind(sbSeat, t.SmallBlind)...)
	events = append(events, t.postBlind(bbSeat, t.BigBlind)...)

	seatOrder := t.dealHoleCards()
	for _, seat := range seatOrder {
		events = append(events, HandEvent{Kind: EventHoleCardsDealt, Payload: HoleCardsDealtPayload{
			Seat: seat, Cards: t.seats[seat].HoleCards,
		}})
	}

	t.CurrentBet = t.BigBlind
	t.LastRaiseIncr = t.BigBlind

	var firstTurn int
	if headsUp {
		firstTurn = sbSeat
	} else {
		first, _ := t.nextSeatMatching(bbSeat, func(p *Player) bool { return p.Status == Active })
		firstTurn = first
	}
	t.armTurn(firstTurn)

	t.setPhase(PreFlop)

	events = append([]HandEvent{{Kind: EventHandStarted, Payload: HandStartedPayload{
		DealerSeat: dealer, SmallBlind: t.SmallBlind, BigBlind: t.BigBlind,
		SeatOrder: seatOrder, HandNumber: t.HandNumber,
	}}}, events...)
	events = append(events, HandEvent{Kind: EventTurnChanged, Payload: t.turnChangedPayload()})

	return events, nil
}

func (t *Table) postBlind(seat int, amount int64) []HandEvent {
	p := t.seats[seat]
	posted := amount
	if posted > p.Stack {
		posted = p.Stack
	}
	p.Stack -= posted
	p.CommittedThisRound += posted
	p.CommittedThisHand += posted
	if p.Stack == 0 {
		p.Status = AllIn
	}
	return []HandEvent{{Kind: EventBlindPosted, Payload: BlindPostedPayload{Seat: seat, Amount: posted, Role: p.Role}}}
}

// dealHoleCards deals 2 cards to each Active player in two round-robin
// passes beginning left of the dealer, and returns the seats in deal
// order (first pass order; §4.3).
func (t *Table) dealHoleCards() []int {
	var order []int
	seat := t.DealerSeat
	for i := 0; i < t.MaxSeats; i++ {
		next, ok := t.nextOccupiedSeat(seat)
		if !ok {
			break
		}
		seat = next
		if t.seats[seat].Status == Active {
			order = append(order, seat)
		}
		if seat == t.DealerSeat {
			break
		}
	}

	for pass := 0; pass < 2; pass++ {
		for _, s := range order {
			card, _ := t.Deck.Draw(1)
			t.seats[s].HoleCards = append(t.seats[s].HoleCards, card[0])
		}
	}
	return order
}

func (t *Table) armTurn(seat int) {
	t.CurrentTurn = seat
	deadline := t.clock.Now().Add(DefaultActionDeadline)
	t.CurrentDeadline = &deadline
}

func (t *Table) cancelTurn() {
	t.CurrentTurn = -1
	t.CurrentDeadline = nil
}

func (t *Table) turnChangedPayload() TurnChangedPayload {
	if t.CurrentDeadline == nil {
		return TurnChangedPayload{Seat: t.CurrentTurn}
	}
	return TurnChangedPayload{Seat: t.CurrentTurn, DeadlineMilli: t.CurrentDeadline.UnixMilli()}
}

// Action implements PlayerAction (§4.3) and its legality table. A
// rejected action never mutates state.
func (t *Table) Action(seat int, kind ActionKind, amount int64) ([]HandEvent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Phase != PreFlop && t.Phase != Flop && t.Phase != Turn && t.Phase != River {
		return nil, &IllegalActionError{Reason: "no hand in progress"}
	}
	if seat != t.CurrentTurn {
		return nil, ErrNotYourTurn
	}
	p, ok := t.seats[seat]
	if !ok || !p.CanAct() {
		return nil, &IllegalActionError{Reason: "seat is not active"}
	}

	switch kind {
	case ActionFold:
		p.Status = Folded
		p.HasActedThisRound = true
	case ActionCheck:
		if p.CommittedThisRound != t.CurrentBet {
			return nil, &IllegalActionError{Reason: "cannot check when facing a bet"}
		}
		p.HasActedThisRound = true
	case ActionCall:
		if t.CurrentBet <= p.CommittedThisRound {
			return nil, &IllegalActionError{Reason: "nothing to call"}
		}
		if p.Stack <= 0 {
			return nil, &IllegalActionError{Reason: "no chips to call with"}
		}
		toCall := t.CurrentBet - p.CommittedThisRound
		if toCall > p.Stack {
			toCall = p.Stack
		}
		p.Stack -= toCall
		p.CommittedThisRound += toCall
		p.CommittedThisHand += toCall
		if p.Stack == 0 {
			p.Status = AllIn
		}
		p.HasActedThisRound = true
		amount = toCall
	case ActionRaise:
		minRaise := t.CurrentBet + t.LastRaiseIncr
		if amount < minRaise {
			return nil, &IllegalActionError{Reason: "raise below minimum increment"}
		}
		if amount > p.CommittedThisRound+p.Stack {
			return nil, &IllegalActionError{Reason: "raise exceeds stack"}
		}
		delta := amount - p.CommittedThisRound
		p.Stack -= delta
		p.CommittedThisRound = amount
		p.CommittedThisHand += delta
		t.LastRaiseIncr = amount - t.CurrentBet
		t.CurrentBet = amount
		t.resetActedExcept(seat)
		if p.Stack == 0 {
			p.Status = AllIn
		}
		p.HasActedThisRound = true
	case ActionAllIn:
		if p.Stack <= 0 {
			return nil, &IllegalActionError{Reason: "no chips to go all-in with"}
		}
		allIn := p.CommittedThisRound + p.Stack
		p.Stack = 0
		p.CommittedThisHand += allIn - p.CommittedThisRound
		p.CommittedThisRound = allIn
		p.Status = AllIn
		p.HasActedThisRound = true

		delta := allIn - t.CurrentBet
		if allIn > t.CurrentBet && delta >= t.LastRaiseIncr {
			t.LastRaiseIncr = delta
			t.CurrentBet = allIn
			t.resetActedExcept(seat)
			p.HasActedThisRound = true
		} else if allIn > t.CurrentBet {
			t.CurrentBet = allIn
		}
		amount = allIn
	default:
		return nil, ErrMalformed
	}

	p.LastAction = t.clock.Now()
	events := []HandEvent{{Kind: EventActionTaken, Payload: ActionTakenPayload{
		Seat: seat, Kind: kind, Amount: amount,
		NewPot: TotalCommitted(t.playersSlice()), NewCurrentBet: t.CurrentBet,
	}}}

	t.cancelTurn()
	more, err := t.advanceAfterAction(seat)
	if err != nil {
		return nil, err
	}
	events = append(events, more...)
	return events, nil
}

func (t *Table) resetActedExcept(seat int) {
	for s, p := range t.seats {
		if s == seat {
			continue
		}
		if p.Status == Active {
			p.HasActedThisRound = false
		}
	}
}

func (t *Table) playersSlice() []*Player {
	out := make([]*Player, 0, len(t.seats))
	for _, seat := range t.seatsLocked() {
		out = append(out, t.seats[seat])
	}
	return out
}

func (t *Table) nonFoldedSeats() []int {
	var out []int
	for _, seat := range t.seatsLocked() {
		if t.seats[seat].Status != Folded && t.seats[seat].Status != SittingOut {
			out = append(out, seat)
		}
	}
	return out
}

// advanceAfterAction decides, after an accepted action, whether the hand
// ends by fold, the round is complete (street advance / showdown), or
// action simply continues to the next seat clockwise from actedSeat.
func (t *Table) advanceAfterAction(actedSeat int) ([]HandEvent, error) {
	remaining := t.nonFoldedSeats()
	if len(remaining) == 1 {
		return t.endByFold(remaining[0])
	}

	if !t.roundComplete() {
		next, ok := t.nextSeatMatching(actedSeat, func(p *Player) bool {
			return p.Status == Active && (!p.HasActedThisRound || p.CommittedThisRound < t.CurrentBet)
		})
		if !ok {
			return nil, &CorruptTableError{Reason: "round not complete but no actionable seat found"}
		}
		t.armTurn(next)
		return []HandEvent{{Kind: EventTurnChanged, Payload: t.turnChangedPayload()}}, nil
	}

	return t.advanceStreet()
}

// roundComplete implements the §4.3 RoundComplete predicate.
func (t *Table) roundComplete() bool {
	for _, p := range t.seats {
		if p.Status == Active && (!p.HasActedThisRound || p.CommittedThisRound != t.CurrentBet) {
			return false
		}
	}
	return true
}

// allRemainingAllIn reports whether no further betting is possible: every
// non-folded seat is AllIn, or exactly one is Active and the rest AllIn.
func (t *Table) allRemainingAllIn() bool {
	activeCount := 0
	for _, seat := range t.nonFoldedSeats() {
		if t.seats[seat].Status == Active {
			activeCount++
		}
	}
	return activeCount <= 1
}

func (t *Table) resetRound() {
	t.CurrentBet = 0
	t.LastRaiseIncr = t.BigBlind
	for _, p := range t.seats {
		p.CommittedThisRound = 0
		if p.Status == Active {
			p.HasActedThisRound = false
		}
	}
}

func (t *Table) advanceStreet() ([]HandEvent, error) {
	var events []HandEvent

	runout := t.allRemainingAllIn()

	switch t.Phase {
	case PreFlop:
		if _, err := t.Deck.Draw(1); err != nil { // burn
			return nil, &CorruptTableError{Reason: err.Error()}
		}
		cards, err := t.Deck.Draw(3)
		if err != nil {
			return nil, &CorruptTableError{Reason: err.Error()}
		}
		t.Community = append(t.Community, cards...)
		t.resetRound()
		t.setPhase(Flop)
		events = append(events, HandEvent{Kind: EventFlopRevealed, Payload: FlopRevealedPayload{Cards: cards}})
	case Flop:
		if _, err := t.Deck.Draw(1); err != nil {
			return nil, &CorruptTableError{Reason: err.Error()}
		}
		cards, err := t.Deck.Draw(1)
		if err != nil {
			return nil, &CorruptTableError{Reason: err.Error()}
		}
		t.Community = append(t.Community, cards[0])
		t.resetRound()
		t.setPhase(Turn)
		events = append(events, HandEvent{Kind: EventTurnRevealed, Payload: TurnRevealedPayload{Card: cards[0]}})
	case Turn:
		if _, err := t.Deck.Draw(1); err != nil {
			return nil, &CorruptTableError{Reason: err.Error()}
		}
		cards, err := t.Deck.Draw(1)
		if err != nil {
			return nil, &CorruptTableError{Reason: err.Error()}
		}
		t.Community = append(t.Community, cards[0])
		t.resetRound()
		t.setPhase(River)
		events = append(events, HandEvent{Kind: EventRiverRevealed, Payload: RiverRevealedPayload{Card: cards[0]}})
	case River:
		showdownEvents, err := t.runShowdown()
		if err != nil {
			return nil, err
		}
		return append(events, showdownEvents...), nil
	}

	if runout {
		more, err := t.advanceStreet()
		if err != nil {
			return nil, err
		}
		return append(events, more...), nil
	}

	first, ok := t.nextSeatMatching(t.DealerSeat, func(p *Player) bool { return p.Status == Active })
	if !ok {
		// Everyone left standing is all-in; finish the runout to showdown.
		more, err := t.advanceStreet()
		if err != nil {
			return nil, err
		}
		return append(events, more...), nil
	}
	t.armTurn(first)
	events = append(events, HandEvent{Kind: EventTurnChanged, Payload: t.turnChangedPayload()})
	return events, nil
}

func (t *Table) endByFold(winnerSeat int) ([]HandEvent, error) {
	t.cancelTurn()
	pot := TotalCommitted(t.playersSlice())
	t.seats[winnerSeat].Stack += pot
	t.setPhase(Complete)
	t.scheduleAutoStartLocked()
	events := []HandEvent{{Kind: EventHandComplete, Payload: HandCompletePayload{
		Winners: []int{winnerSeat},
		Payouts: map[int]int64{winnerSeat: pot},
		Reason:  "fold",
	}}}
	events = append(events, t.releaseDepartedSeatsLocked()...)
	return events, nil
}

func (t *Table) runShowdown() ([]HandEvent, error) {
	t.cancelTurn()
	t.setPhase(Showdown)

	players := t.playersSlice()
	var perSeat []SeatHandResult
	for _, p := range players {
		if p.Status == Folded || p.Status == SittingOut {
			continue
		}
		all := append(append([]Card{}, p.HoleCards...), t.Community...)
		value, err := Evaluate(all)
		if err != nil {
			return nil, &CorruptTableError{Reason: err.Error()}
		}
		p.HandValue = &value
		perSeat = append(perSeat, SeatHandResult{Seat: p.Seat, Description: value.Description})
	}

	pots := BuildPots(players)
	bySeat := make(map[int]*Player, len(players))
	for _, p := range players {
		bySeat[p.Seat] = p
	}
	results := Distribute(pots, bySeat, t.DealerSeat, t.MaxSeats)

	payouts := map[int]int64{}
	var winnersPerPot [][]int
	for _, r := range results {
		winnersPerPot = append(winnersPerPot, r.Winners)
		for seat, amt := range r.Payouts {
			payouts[seat] += amt
		}
	}

	var winners []int
	for seat := range payouts {
		winners = append(winners, seat)
	}

	t.setPhase(Complete)
	t.scheduleAutoStartLocked()

	events := []HandEvent{
		{Kind: EventShowdown, Payload: ShowdownPayload{PerSeatHand: perSeat, Payouts: payouts, WinnersPerPot: winnersPerPot}},
		{Kind: EventHandComplete, Payload: HandCompletePayload{Winners: winners, Payouts: payouts, Reason: "showdown"}},
	}
	events = append(events, t.releaseDepartedSeatsLocked()...)
	return events, nil
}

// TimeoutExpired implements §4.3's TimeoutExpired(seat): a Check if legal,
// else a Fold, applied through the same path as a user-submitted action;
// the resulting ActionTaken payload has Timeout set.
func (t *Table) TimeoutExpired(seat int) ([]HandEvent, error) {
	t.mu.RLock()
	canCheck := false
	if p, ok := t.seats[seat]; ok {
		canCheck = p.CommittedThisRound == t.CurrentBet
	}
	t.mu.RUnlock()

	kind := ActionFold
	if canCheck {
		kind = ActionCheck
	}
	events, err := t.Action(seat, kind, 0)
	if err != nil {
		return nil, err
	}
	for i, e := range events {
		if p, ok := e.Payload.(ActionTakenPayload); ok {
			p.Timeout = true
			events[i].Payload = p
			break
		}
	}
	return events, nil
}
