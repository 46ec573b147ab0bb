package dispatcher

import (
	"context"
	"testing"

	"github.com/coder/quartz"
	"github.com/decred/slog"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	store, err := OpenStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewRegistry(store, quartz.NewMock(t), slog.Disabled)
}

func TestCreateTableThenSubmitRoutesToActor(t *testing.T) {
	registry := newTestRegistry(t)

	if _, err := registry.Submit(Command{Kind: CmdCreateTable, TableID: "main", MaxPlayers: 6, SmallBlind: 10, BigBlind: 20}); err != nil {
		t.Fatalf("create table: %v", err)
	}

	if _, err := registry.Submit(Command{Kind: CmdJoinTable, TableID: "main", UserID: "alice", BuyIn: 1000}); err != nil {
		t.Fatalf("join: %v", err)
	}

	if got := registry.ListTables(); len(got) != 1 || got[0] != "main" {
		t.Errorf("expected table list [main], got %v", got)
	}
}

func TestCreateTableDuplicateRejected(t *testing.T) {
	registry := newTestRegistry(t)
	registry.Submit(Command{Kind: CmdCreateTable, TableID: "main", MaxPlayers: 6, SmallBlind: 10, BigBlind: 20})

	_, err := registry.Submit(Command{Kind: CmdCreateTable, TableID: "main", MaxPlayers: 6, SmallBlind: 10, BigBlind: 20})
	if err == nil {
		t.Fatalf("expected duplicate table creation to be rejected")
	}
}

func TestSubmitUnknownTableReturnsNotFound(t *testing.T) {
	registry := newTestRegistry(t)
	_, err := registry.Submit(Command{Kind: CmdJoinTable, TableID: "ghost", UserID: "alice", BuyIn: 1000})
	if err != ErrTableNotFound {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func TestReapIdleRemovesOnlyEmptyTables(t *testing.T) {
	registry := newTestRegistry(t)
	registry.Submit(Command{Kind: CmdCreateTable, TableID: "empty", MaxPlayers: 2, SmallBlind: 10, BigBlind: 20})
	registry.Submit(Command{Kind: CmdCreateTable, TableID: "occupied", MaxPlayers: 2, SmallBlind: 10, BigBlind: 20})
	if _, err := registry.Submit(Command{Kind: CmdJoinTable, TableID: "occupied", UserID: "alice", BuyIn: 1000}); err != nil {
		t.Fatalf("join: %v", err)
	}

	removed := registry.ReapIdle(0)
	if len(removed) != 1 || removed[0] != "empty" {
		t.Fatalf("expected only the empty table to be reaped, got %v", removed)
	}
	if _, ok := registry.Lookup("empty"); ok {
		t.Errorf("expected empty table to be removed from the registry")
	}
	if _, ok := registry.Lookup("occupied"); !ok {
		t.Errorf("expected occupied table to remain registered")
	}
}

func TestSnapshotAllCoversEveryTable(t *testing.T) {
	registry := newTestRegistry(t)
	registry.Submit(Command{Kind: CmdCreateTable, TableID: "a", MaxPlayers: 2, SmallBlind: 10, BigBlind: 20})
	registry.Submit(Command{Kind: CmdCreateTable, TableID: "b", MaxPlayers: 2, SmallBlind: 10, BigBlind: 20})

	seqs, err := registry.SnapshotAll(context.Background())
	if err != nil {
		t.Fatalf("snapshot all: %v", err)
	}
	if len(seqs) != 2 {
		t.Errorf("expected 2 tables snapshotted, got %d", len(seqs))
	}
}
