package poker

import "time"

// Auto-start (§12) arms a deadline after a hand completes, once enough
// seated players have marked themselves ready; the next hand starts once
// that deadline elapses and nobody has canceled it. Unlike the teacher's
// Game, which fires this off its own time.AfterFunc goroutine, Table only
// ever stores the deadline: the dispatcher's actor polls AutoStartDeadline
// in the same select loop it already uses for the turn-action deadline,
// so starting a new hand is still serialized through the actor's single
// mailbox goroutine rather than a second, independently-racing timer.

// EnableAutoStart configures the delay after a hand completes before the
// next one starts automatically, and the minimum number of ready seated
// players required to arm it. A zero delay disables auto-start.
func (t *Table) EnableAutoStart(delay time.Duration, minPlayers int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.autoStartDelay = delay
	t.autoStartMinPlayers = minPlayers
}

func (t *Table) scheduleAutoStartLocked() {
	t.autoStartDeadline = nil
	if t.autoStartDelay <= 0 {
		return
	}
	if t.readyCountLocked() < t.autoStartMinPlayers {
		return
	}
	deadline := t.clock.Now().Add(t.autoStartDelay)
	t.autoStartDeadline = &deadline
}

func (t *Table) readyCountLocked() int {
	n := 0
	for _, p := range t.seats {
		if p.IsReady && p.Stack > 0 {
			n++
		}
	}
	return n
}

// AutoStartDeadline returns the pending auto-start deadline, if any.
func (t *Table) AutoStartDeadline() (deadline time.Time, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.autoStartDeadline == nil {
		return time.Time{}, false
	}
	return *t.autoStartDeadline, true
}

// SetReady toggles a seated player's ready flag and re-evaluates the
// auto-start deadline: it arms when the table just reached its configured
// minimum of ready players, or clears when it just dropped below it.
func (t *Table) SetReady(seat int, ready bool) ([]HandEvent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.seats[seat]
	if !ok {
		return nil, ErrSeatNotOccupied
	}
	p.IsReady = ready
	if t.Phase == Lobby || t.Phase == Complete {
		t.scheduleAutoStartLocked()
	}
	return []HandEvent{{Kind: EventPlayerReady, Payload: PlayerReadyPayload{Seat: seat, UserID: p.UserID, Ready: ready}}}, nil
}
