package dispatcher

import (
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/decred/slog"

	"github.com/tablesmith/holdemserver/pkg/poker"
)

// DefaultAutoStartDelay and DefaultAutoStartMinPlayers configure every
// table's ready-up/auto-start behavior (§12): once this many seated
// players are marked ready, the next hand starts automatically this long
// after the previous one completes.
const (
	DefaultAutoStartDelay      = 5 * time.Second
	DefaultAutoStartMinPlayers = 2
)

// subscriber is one live Subscribe() caller's mailbox. Delivery is
// asynchronous and must never block command application, so broadcast
// always does a non-blocking send into a buffered channel.
type subscriber struct {
	userID string
	ch     chan Event
}

// TableActor is the single-threaded executor for one table: exactly one
// command is applied at a time, backed by a buffered mailbox so that
// callers targeting different tables never contend with each other.
type TableActor struct {
	table *poker.Table
	store *Store
	log   slog.Logger
	clock quartz.Clock

	mailbox    chan actorRequest
	done       chan struct{}
	timerFired chan struct{}

	mu           sync.Mutex
	nextSeq      int64
	handNumber   int
	subscribers  map[string]*subscriber
	closed       bool
	lastActivity time.Time

	retryBudget int
}

type actorRequest struct {
	cmd   Command
	reply chan actorResponse
}

type actorResponse struct {
	ack *Ack
	err error
}

// NewTableActor wraps an already-constructed poker.Table with dispatcher
// bookkeeping, persists and broadcasts the table's TableCreated event, and
// starts its mailbox loop. clock drives both the turn-action and auto-start
// deadlines' AfterFunc scheduling, so passing a *quartz.Mock lets tests
// advance past a deadline deterministically instead of sleeping past it.
func NewTableActor(table *poker.Table, store *Store, clock quartz.Clock, log slog.Logger) *TableActor {
	table.EnableAutoStart(DefaultAutoStartDelay, DefaultAutoStartMinPlayers)

	a := &TableActor{
		table:        table,
		store:        store,
		log:          log,
		clock:        clock,
		mailbox:      make(chan actorRequest, 64),
		done:         make(chan struct{}),
		timerFired:   make(chan struct{}, 1),
		subscribers:  make(map[string]*subscriber),
		retryBudget:  3,
		lastActivity: clock.Now(),
	}
	created := a.envelopeAndPersist([]poker.HandEvent{{Kind: poker.EventTableCreated, Payload: poker.TableCreatedPayload{
		TableID: table.ID, MaxPlayers: table.MaxSeats, SmallBlind: table.SmallBlind, BigBlind: table.BigBlind,
	}}})
	a.broadcast(created)
	go a.run()
	return a
}

// nextDeadline returns whichever of the turn-action deadline and the
// auto-start deadline elapses first, so run()'s select only ever needs a
// single timer.
func (a *TableActor) nextDeadline() (time.Time, bool) {
	_, turnDeadline, hasTurn := a.table.Deadline()
	autoDeadline, hasAuto := a.table.AutoStartDeadline()

	switch {
	case hasTurn && hasAuto:
		if turnDeadline.Before(autoDeadline) {
			return turnDeadline, true
		}
		return autoDeadline, true
	case hasTurn:
		return turnDeadline, true
	case hasAuto:
		return autoDeadline, true
	default:
		return time.Time{}, false
	}
}

// run is the actor's single executor goroutine: every table mutation,
// whether triggered by a submitted command or by a deadline firing, happens
// here and only here. The deadline itself is scheduled via a.clock.AfterFunc
// rather than time.AfterFunc/time.NewTimer, so a *quartz.Mock clock lets
// tests advance past a deadline deterministically; the fired callback only
// signals timerFired; it never touches table state itself, since AfterFunc
// callbacks run on their own goroutine and must not race this one.
func (a *TableActor) run() {
	for {
		deadline, hasDeadline := a.nextDeadline()

		var timer *quartz.Timer
		if hasDeadline {
			d := deadline.Sub(a.clock.Now())
			if d < 0 {
				d = 0
			}
			timer = a.clock.AfterFunc(d, func() {
				select {
				case a.timerFired <- struct{}{}:
				default:
				}
			})
		}

		select {
		case req := <-a.mailbox:
			ack, err := a.apply(req.cmd)
			req.reply <- actorResponse{ack: ack, err: err}
		case <-a.timerFired:
			a.applyTimeout()
			a.applyAutoStart()
		case <-a.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// applyTimeout synthesizes a TimeoutExpired command for whichever seat was
// on the clock when the deadline fired. It is a no-op if the turn has
// since moved on (e.g. the player acted just before the timer fired).
func (a *TableActor) applyTimeout() {
	seat, deadline, ok := a.table.Deadline()
	if !ok || a.clock.Now().Before(deadline) {
		return
	}
	events, err := a.table.TimeoutExpired(seat)
	if err != nil {
		a.log.Warnf("timeout handling failed for table %s seat %d: %v", a.table.ID, seat, err)
		return
	}
	envelopes := a.envelopeAndPersist(events)
	a.broadcast(envelopes)
}

// applyAutoStart starts the next hand once the auto-start deadline has
// elapsed. It is a no-op if the deadline was canceled or pushed out since
// the timer fired (e.g. a player un-readied in the meantime), or if the
// table has since left the Lobby/Complete phase a new hand can start from.
func (a *TableActor) applyAutoStart() {
	deadline, ok := a.table.AutoStartDeadline()
	if !ok || a.clock.Now().Before(deadline) {
		return
	}
	events, err := a.table.StartHand(0)
	if err != nil {
		a.log.Debugf("auto-start skipped for table %s: %v", a.table.ID, err)
		return
	}
	envelopes := a.envelopeAndPersist(events)
	a.broadcast(envelopes)
}

// Submit enqueues cmd and blocks until it has been applied (or rejected).
// Commands to different actors never block one another; within this
// actor, commands are applied strictly in the order Submit was called.
func (a *TableActor) Submit(cmd Command) (*Ack, error) {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return nil, ErrTableClosed
	}

	reply := make(chan actorResponse, 1)
	select {
	case a.mailbox <- actorRequest{cmd: cmd, reply: reply}:
	case <-a.done:
		return nil, ErrTableClosed
	}

	select {
	case resp := <-reply:
		return resp.ack, resp.err
	case <-a.done:
		select {
		case resp := <-reply:
			return resp.ack, resp.err
		default:
			return nil, ErrTableClosed
		}
	}
}

func (a *TableActor) apply(cmd Command) (*Ack, error) {
	var events []poker.HandEvent
	var err error

	switch cmd.Kind {
	case CmdJoinTable:
		if cmd.BuyIn < a.table.BigBlind*10 {
			return nil, &ValidationError{Reason: "buy-in must be at least 10 big blinds"}
		}
		_, joinEvents, joinErr := a.table.Join(cmd.UserID, cmd.UserID, cmd.BuyIn)
		if joinErr != nil {
			return nil, joinErr
		}
		events = joinEvents
	case CmdLeaveTable:
		for _, seat := range a.table.Seats() {
			if p := a.table.Player(seat); p != nil && p.UserID == cmd.UserID {
				events = a.table.Leave(seat)
				break
			}
		}
	case CmdStartHand:
		events, err = a.table.StartHand(cmd.Seed)
	case CmdPlayerReady:
		seat := -1
		for _, s := range a.table.Seats() {
			if p := a.table.Player(s); p != nil && p.UserID == cmd.UserID {
				seat = s
				break
			}
		}
		if seat == -1 {
			return nil, &ValidationError{Reason: "user is not seated at this table"}
		}
		events, err = a.table.SetReady(seat, cmd.Ready)
	case CmdPlayerAction:
		seat := -1
		for _, s := range a.table.Seats() {
			if p := a.table.Player(s); p != nil && p.UserID == cmd.UserID {
				seat = s
				break
			}
		}
		if seat == -1 {
			return nil, &ValidationError{Reason: "user is not seated at this table"}
		}
		events, err = a.table.Action(seat, cmd.ActionKind, cmd.Amount)
	default:
		return nil, ErrUnknownCommand
	}

	if err != nil {
		return nil, err
	}

	envelopes := a.envelopeAndPersist(events)
	a.mu.Lock()
	frozen := a.closed
	a.mu.Unlock()
	if frozen {
		return nil, ErrTableClosed
	}
	a.broadcast(envelopes)

	a.mu.Lock()
	seq := a.nextSeq
	a.lastActivity = a.clock.Now()
	a.mu.Unlock()

	return &Ack{TableID: a.table.ID, AppliedAtSeq: seq, EventsEmitted: len(envelopes)}, nil
}

// envelopeAndPersist assigns strictly increasing sequence numbers, wraps
// each poker.HandEvent into the dispatcher Event envelope, and durably
// stores them before they are eligible for broadcast (write-ahead).
func (a *TableActor) envelopeAndPersist(events []poker.HandEvent) []Event {
	if len(events) == 0 {
		return nil
	}

	a.mu.Lock()
	out := make([]Event, 0, len(events))
	for _, e := range events {
		a.nextSeq++
		out = append(out, Event{
			SequenceNumber: a.nextSeq,
			TableID:        a.table.ID,
			HandNumber:     a.table.HandNumber,
			Kind:           e.Kind,
			Timestamp:      a.clock.Now(),
			Payload:        e.Payload,
		})
	}
	a.mu.Unlock()

	if a.store != nil {
		attempt := 0
		for {
			if err := a.store.AppendEvents(a.table.ID, out); err == nil {
				break
			} else {
				attempt++
				if attempt > a.retryBudget {
					a.log.Errorf("persist failed after %d attempts, freezing table %s", attempt, a.table.ID)
					a.mu.Lock()
					a.closed = true
					a.mu.Unlock()
					break
				}
			}
		}
	}
	return out
}

// broadcast fans events out to every subscriber without blocking the
// actor loop: a full subscriber mailbox drops the slowest events rather
// than stalling command application, since subscribers reconcile gaps by
// requesting events since their last seen sequence number.
func (a *TableActor) broadcast(events []Event) {
	if len(events) == 0 {
		return
	}
	a.mu.Lock()
	subs := make([]*subscriber, 0, len(a.subscribers))
	for _, s := range a.subscribers {
		subs = append(subs, s)
	}
	a.mu.Unlock()

	for _, s := range subs {
		for _, e := range events {
			if a.visibleTo(e, s.userID) {
				select {
				case s.ch <- e:
				default:
					a.log.Warnf("subscriber %s mailbox full, dropping event seq=%d", s.userID, e.SequenceNumber)
				}
			}
		}
	}
}

// visibleTo implements the HoleCardsDealt privacy rule: that event kind
// is delivered only to the user currently occupying the seat it names,
// never broadcast to the table at large.
func (a *TableActor) visibleTo(e Event, userID string) bool {
	if e.Kind != poker.EventHoleCardsDealt {
		return true
	}
	if userID == "" {
		return false
	}
	var seat int
	switch payload := e.Payload.(type) {
	case poker.HoleCardsDealtPayload:
		seat = payload.Seat
	case map[string]interface{}:
		// Events replayed from the store carry their payload as a generic
		// JSON object, with numbers decoded as float64.
		s, ok := payload["Seat"].(float64)
		if !ok {
			return false
		}
		seat = int(s)
	default:
		return false
	}
	p := a.table.Player(seat)
	return p != nil && p.UserID == userID
}

// Subscribe returns a channel of events for userID beginning after
// sinceSequence, replaying stored history first and then streaming live.
func (a *TableActor) Subscribe(userID string, sinceSequence int64) (<-chan Event, func(), error) {
	ch := make(chan Event, 256)

	a.mu.Lock()
	a.subscribers[userID] = &subscriber{userID: userID, ch: ch}
	a.mu.Unlock()

	if a.store != nil {
		history, err := a.store.EventsSince(a.table.ID, sinceSequence)
		if err != nil {
			return nil, nil, err
		}
		go func() {
			for _, e := range history {
				if a.visibleTo(e, userID) {
					ch <- e
				}
			}
		}()
	}

	cancel := func() {
		a.mu.Lock()
		delete(a.subscribers, userID)
		a.mu.Unlock()
	}
	return ch, cancel, nil
}

// ProjectView builds the PublicState projection for userID: full table
// state, every seat's public fields, userID's own hole cards and, once the
// hand has gone to showdown, the hole cards of every seat that was shown
// down there. A hand won by fold reveals no other seat's cards.
func (a *TableActor) ProjectView(userID string) PublicState {
	a.mu.Lock()
	seq := a.nextSeq
	a.mu.Unlock()

	view := PublicState{
		TableID:     a.table.ID,
		Phase:       a.table.Phase,
		DealerSeat:  a.table.DealerSeat,
		CurrentBet:  a.table.CurrentBet,
		CurrentTurn: a.table.CurrentTurn,
		Community:   a.table.Community,
		AsOfSeq:     seq,
	}

	afterShowdown := a.table.Phase == poker.Showdown || a.table.Phase == poker.Complete
	for _, seat := range a.table.Seats() {
		p := a.table.Player(seat)
		sv := SeatView{
			Seat: seat, UserID: p.UserID, Name: p.Name, Stack: p.Stack,
			CommittedThisRound: p.CommittedThisRound, Status: p.Status, Role: p.Role,
			IsReady: p.IsReady, IsDisconnected: p.IsDisconnected,
		}
		// HandValue is set only for seats evaluated at showdown and is
		// cleared on the next deal.
		if p.UserID == userID || (afterShowdown && p.HandValue != nil) {
			sv.HoleCards = p.HoleCards
		}
		view.Seats = append(view.Seats, sv)
	}
	return view
}

// IdleFor reports how long this table has had no occupied seats and no
// applied command, for the registry's idle-table reaper. ok is false while
// any seat is occupied, since an occupied table is never eligible for reap
// regardless of how long it has sat without activity.
func (a *TableActor) IdleFor() (idle time.Duration, ok bool) {
	for _, seat := range a.table.Seats() {
		if a.table.Player(seat) != nil {
			return 0, false
		}
	}
	a.mu.Lock()
	since := a.lastActivity
	a.mu.Unlock()
	return a.clock.Now().Sub(since), true
}

// Close marks the actor closed, emits TableClosed, then stops the mailbox
// loop: in-flight and future Submit calls receive ErrTableClosed.
func (a *TableActor) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	closedEvents := a.envelopeAndPersist([]poker.HandEvent{{Kind: poker.EventTableClosed, Payload: poker.TableClosedPayload{}}})
	a.broadcast(closedEvents)

	close(a.done)
}
