package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/decred/slog"

	"github.com/tablesmith/holdemserver/pkg/poker"
)

func newTestActor(t *testing.T, maxSeats int) (*TableActor, *quartz.Mock) {
	t.Helper()
	store, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	clock := quartz.NewMock(t)
	table := poker.NewTable("t1", maxSeats, 10, 20, clock, slog.Disabled)
	return NewTableActor(table, store, clock, slog.Disabled), clock
}

func TestSubmitJoinAndStartHand(t *testing.T) {
	actor, _ := newTestActor(t, 2)

	if _, err := actor.Submit(Command{Kind: CmdJoinTable, UserID: "alice", BuyIn: 1000}); err != nil {
		t.Fatalf("join alice: %v", err)
	}
	if _, err := actor.Submit(Command{Kind: CmdJoinTable, UserID: "bob", BuyIn: 1000}); err != nil {
		t.Fatalf("join bob: %v", err)
	}

	ack, err := actor.Submit(Command{Kind: CmdStartHand, Seed: 1})
	if err != nil {
		t.Fatalf("start hand: %v", err)
	}
	if ack.EventsEmitted == 0 {
		t.Errorf("expected StartHand to emit at least one event")
	}
}

func TestSubmitRejectsUndersizedBuyIn(t *testing.T) {
	actor, _ := newTestActor(t, 2)

	_, err := actor.Submit(Command{Kind: CmdJoinTable, UserID: "alice", BuyIn: 50})
	if err == nil {
		t.Fatalf("expected undersized buy-in to be rejected")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Errorf("expected a ValidationError, got %T: %v", err, err)
	}
}

func TestSubscribeReceivesHoleCardsOnlyForOwnSeat(t *testing.T) {
	actor, _ := newTestActor(t, 2)
	actor.Submit(Command{Kind: CmdJoinTable, UserID: "alice", BuyIn: 1000})
	actor.Submit(Command{Kind: CmdJoinTable, UserID: "bob", BuyIn: 1000})

	aliceEvents, cancelAlice, err := actor.Subscribe("alice", 0)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancelAlice()

	if _, err := actor.Submit(Command{Kind: CmdStartHand, Seed: 1}); err != nil {
		t.Fatalf("start hand: %v", err)
	}

	sawOwnHoleCards := false
	sawOtherHoleCards := false
	timeout := time.After(2 * time.Second)
drain:
	for {
		select {
		case e := <-aliceEvents:
			if e.Kind == poker.EventHoleCardsDealt {
				payload := e.Payload.(poker.HoleCardsDealtPayload)
				if payload.Seat == 0 {
					sawOwnHoleCards = true
				} else {
					sawOtherHoleCards = true
				}
			}
		case <-timeout:
			break drain
		default:
			if sawOwnHoleCards {
				break drain
			}
		}
	}

	if !sawOwnHoleCards {
		t.Errorf("expected alice's subscription to see her own hole cards")
	}
	if sawOtherHoleCards {
		t.Errorf("alice's subscription must not see another seat's hole cards")
	}
}

// TestPlayerReadyTogglesProjection covers §12's ready-up toggle: marking a
// seated player ready is reflected in the public projection and emits a
// PlayerReady event, without starting a hand on its own.
func TestPlayerReadyTogglesProjection(t *testing.T) {
	actor, _ := newTestActor(t, 2)
	actor.Submit(Command{Kind: CmdJoinTable, UserID: "alice", BuyIn: 1000})
	actor.Submit(Command{Kind: CmdJoinTable, UserID: "bob", BuyIn: 1000})

	ack, err := actor.Submit(Command{Kind: CmdPlayerReady, UserID: "alice", Ready: true})
	if err != nil {
		t.Fatalf("mark alice ready: %v", err)
	}
	if ack.EventsEmitted != 1 {
		t.Errorf("expected exactly one PlayerReady event, got %d", ack.EventsEmitted)
	}

	view := actor.ProjectView("alice")
	for _, seat := range view.Seats {
		if seat.UserID == "alice" && !seat.IsReady {
			t.Errorf("expected alice's seat to be marked ready in the projection")
		}
		if seat.UserID == "bob" && seat.IsReady {
			t.Errorf("expected bob's seat to remain not-ready")
		}
	}
	if view.Phase != poker.Lobby {
		t.Errorf("marking a single player ready must not start a hand on its own, got phase %s", view.Phase)
	}
}

// TestAutoStartFiresOnceBothPlayersAreReady covers §12's auto-start: once
// enough seated players are ready after a hand completes, the actor's own
// deadline (not a caller) synthesizes the next StartHand. The mock clock is
// advanced explicitly past the auto-start delay rather than slept past, so
// this test is deterministic regardless of real wall-clock scheduling.
func TestAutoStartFiresOnceBothPlayersAreReady(t *testing.T) {
	actor, clock := newTestActor(t, 2)
	actor.Submit(Command{Kind: CmdJoinTable, UserID: "alice", BuyIn: 1000})
	actor.Submit(Command{Kind: CmdJoinTable, UserID: "bob", BuyIn: 1000})

	actor.Submit(Command{Kind: CmdPlayerReady, UserID: "alice", Ready: true})
	actor.Submit(Command{Kind: CmdPlayerReady, UserID: "bob", Ready: true})

	if _, err := actor.Submit(Command{Kind: CmdStartHand, Seed: 1}); err != nil {
		t.Fatalf("start hand: %v", err)
	}

	// Fold pre-flop to drive the hand to Complete, which arms auto-start
	// since both seats are still marked ready.
	view := actor.ProjectView("alice")
	toAct := view.CurrentTurn
	userID := "alice"
	for _, s := range view.Seats {
		if s.Seat == toAct {
			userID = s.UserID
		}
	}
	if _, err := actor.Submit(Command{Kind: CmdPlayerAction, TableID: "t1", UserID: userID, ActionKind: poker.ActionFold}); err != nil {
		t.Fatalf("fold: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	clock.Advance(DefaultAutoStartDelay + time.Second).MustWait(ctx)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("expected auto-start to begin a new hand, phase stuck at %s", actor.ProjectView("alice").Phase)
		default:
		}
		if actor.ProjectView("alice").Phase == poker.PreFlop {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestProjectViewRevealsOnlyOwnHoleCardsBeforeShowdown(t *testing.T) {
	actor, _ := newTestActor(t, 2)
	actor.Submit(Command{Kind: CmdJoinTable, UserID: "alice", BuyIn: 1000})
	actor.Submit(Command{Kind: CmdJoinTable, UserID: "bob", BuyIn: 1000})
	actor.Submit(Command{Kind: CmdStartHand, Seed: 1})

	view := actor.ProjectView("alice")
	for _, seat := range view.Seats {
		if seat.UserID == "alice" && len(seat.HoleCards) != 2 {
			t.Errorf("expected alice to see her own 2 hole cards, got %d", len(seat.HoleCards))
		}
		if seat.UserID == "bob" && len(seat.HoleCards) != 0 {
			t.Errorf("expected bob's hole cards hidden from alice's projection")
		}
	}
}
