package dispatcher

import (
	"testing"
	"time"

	"github.com/tablesmith/holdemserver/pkg/poker"
)

func TestAppendAndReadEventsSince(t *testing.T) {
	store, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	events := []Event{
		{SequenceNumber: 1, TableID: "t1", HandNumber: 1, Kind: poker.EventHandStarted, Timestamp: time.Now(), Payload: map[string]interface{}{"dealerSeat": float64(0)}},
		{SequenceNumber: 2, TableID: "t1", HandNumber: 1, Kind: poker.EventBlindPosted, Timestamp: time.Now(), Payload: map[string]interface{}{"seat": float64(0), "amount": float64(10)}},
	}
	if err := store.AppendEvents("t1", events); err != nil {
		t.Fatalf("append events: %v", err)
	}

	got, err := store.EventsSince("t1", 0)
	if err != nil {
		t.Fatalf("events since: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].SequenceNumber != 1 || got[1].SequenceNumber != 2 {
		t.Errorf("expected events in ascending sequence order, got %d, %d", got[0].SequenceNumber, got[1].SequenceNumber)
	}

	gotSince1, err := store.EventsSince("t1", 1)
	if err != nil {
		t.Fatalf("events since 1: %v", err)
	}
	if len(gotSince1) != 1 || gotSince1[0].SequenceNumber != 2 {
		t.Errorf("expected exactly the event after sequence 1")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	deadline := int64(123456789)
	if err := store.SaveSnapshot("t1", 5, []byte(`{"phase":"Flop"}`), &deadline, time.Now()); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	seq, stateJSON, timerDeadline, ok, err := store.LoadSnapshot("t1")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if !ok {
		t.Fatalf("expected snapshot to exist")
	}
	if seq != 5 {
		t.Errorf("expected sequence 5, got %d", seq)
	}
	if string(stateJSON) != `{"phase":"Flop"}` {
		t.Errorf("unexpected state json: %s", stateJSON)
	}
	if timerDeadline == nil || *timerDeadline != deadline {
		t.Errorf("expected timer deadline %d, got %v", deadline, timerDeadline)
	}
}

func TestLoadSnapshotMissingReturnsNotOK(t *testing.T) {
	store, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	_, _, _, ok, err := store.LoadSnapshot("nonexistent")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if ok {
		t.Fatalf("expected no snapshot for nonexistent table")
	}
}
