package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/decred/slog"
	"golang.org/x/sync/errgroup"

	"github.com/tablesmith/holdemserver/pkg/poker"
)

// Registry is the table registry (§5): a coarse lookup/insert map that is
// never held locked during command execution, since each table's actual
// work happens inside its own TableActor goroutine. clock is a quartz.Clock
// rather than a bare poker.Clock since it is handed both to poker.NewTable
// (which only needs Now()) and to NewTableActor (which also needs AfterFunc
// to schedule deadlines through the same clock).
type Registry struct {
	store *Store
	clock quartz.Clock
	log   slog.Logger

	mu     sync.RWMutex
	actors map[string]*TableActor
}

// NewRegistry creates an empty table registry backed by store (nil is
// permitted for ephemeral/test registries that skip persistence).
func NewRegistry(store *Store, clock quartz.Clock, log slog.Logger) *Registry {
	return &Registry{
		store:  store,
		clock:  clock,
		log:    log,
		actors: make(map[string]*TableActor),
	}
}

// CreateTable implements the CreateTable command: allocates a new table
// and its actor, and registers it.
func (r *Registry) CreateTable(tableID string, maxPlayers int, smallBlind, bigBlind int64) (*TableActor, error) {
	if maxPlayers < 2 || maxPlayers > 9 {
		return nil, &ValidationError{Reason: "maxPlayers must be between 2 and 9"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actors[tableID]; exists {
		return nil, &ValidationError{Reason: fmt.Sprintf("table %s already exists", tableID)}
	}

	table := poker.NewTable(tableID, maxPlayers, smallBlind, bigBlind, r.clock, r.log)
	actor := NewTableActor(table, r.store, r.clock, r.log)
	r.actors[tableID] = actor
	return actor, nil
}

// Lookup returns the actor for tableID, or ok=false.
func (r *Registry) Lookup(tableID string) (*TableActor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actors[tableID]
	return a, ok
}

// Remove closes and forgets a table's actor, e.g. after it has been idle
// with no seated players for a configured duration.
func (r *Registry) Remove(tableID string) {
	r.mu.Lock()
	a, ok := r.actors[tableID]
	delete(r.actors, tableID)
	r.mu.Unlock()
	if ok {
		a.Close()
	}
}

// ReapIdle closes and removes every table that has had no occupied seats
// for at least idleFor, returning the IDs it removed. Intended to be called
// periodically (e.g. from a background ticker in cmd/pokersrv) so an empty
// lobby table doesn't linger forever.
func (r *Registry) ReapIdle(idleFor time.Duration) []string {
	r.mu.RLock()
	candidates := make(map[string]*TableActor, len(r.actors))
	for id, a := range r.actors {
		candidates[id] = a
	}
	r.mu.RUnlock()

	var removed []string
	for id, a := range candidates {
		idle, ok := a.IdleFor()
		if !ok || idle < idleFor {
			continue
		}
		r.Remove(id)
		removed = append(removed, id)
	}
	return removed
}

// Submit routes a command to its table's actor, creating the table first
// for CmdCreateTable.
func (r *Registry) Submit(cmd Command) (*Ack, error) {
	if cmd.Kind == CmdCreateTable {
		actor, err := r.CreateTable(cmd.TableID, cmd.MaxPlayers, cmd.SmallBlind, cmd.BigBlind)
		if err != nil {
			return nil, err
		}
		actor.mu.Lock()
		seq := actor.nextSeq
		actor.mu.Unlock()
		return &Ack{TableID: actor.table.ID, AppliedAtSeq: seq, EventsEmitted: 1}, nil
	}

	actor, ok := r.Lookup(cmd.TableID)
	if !ok {
		return nil, ErrTableNotFound
	}
	return actor.Submit(cmd)
}

// ListTables returns every currently registered table ID. Table listing
// is itself a projection: the lobby surface reads this, not internal
// actor state.
func (r *Registry) ListTables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.actors))
	for id := range r.actors {
		out = append(out, id)
	}
	return out
}

// SnapshotAll concurrently snapshots every registered table's public
// projection sequence number, bounded by a small worker pool so a large
// lobby never spawns an unbounded number of goroutines at once.
func (r *Registry) SnapshotAll(ctx context.Context) (map[string]int64, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.actors))
	actors := make([]*TableActor, 0, len(r.actors))
	for id, a := range r.actors {
		ids = append(ids, id)
		actors = append(actors, a)
	}
	r.mu.RUnlock()

	results := make([]int64, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i := range ids {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			view := actors[i].ProjectView("")
			results[i] = view.AsOfSeq
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(ids))
	for i, id := range ids {
		out[id] = results[i]
	}
	return out, nil
}
