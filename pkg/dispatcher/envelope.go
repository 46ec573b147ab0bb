// Package dispatcher owns the Table Server described in the engine's
// external interface: one actor per table that serializes commands,
// invokes the Hand Controller, persists the resulting events, and
// broadcasts projections to subscribers.
package dispatcher

import (
	"time"

	"github.com/tablesmith/holdemserver/pkg/poker"
)

// Event is the fully addressed, persisted form of a poker.HandEvent: the
// Hand Controller's event plus the sequence/timestamp/table envelope
// described in the external interface. The controller package stays
// ignorant of sequencing and persistence; this package adds both.
type Event struct {
	SequenceNumber int64
	TableID        string
	HandNumber     int
	Kind           poker.EventKind
	Timestamp      time.Time
	Payload        interface{}
}

// CommandKind identifies one of the six inbound commands.
type CommandKind string

const (
	CmdCreateTable  CommandKind = "CREATE_TABLE"
	CmdJoinTable    CommandKind = "JOIN_TABLE"
	CmdLeaveTable   CommandKind = "LEAVE_TABLE"
	CmdStartHand    CommandKind = "START_HAND"
	CmdPlayerAction CommandKind = "PLAYER_ACTION"
	CmdPlayerReady  CommandKind = "PLAYER_READY"
)

// Command is the union of inbound requests a TableActor accepts via
// Submit. Only the fields relevant to Kind are populated.
type Command struct {
	Kind CommandKind

	TableID    string
	ByUserID   string
	MaxPlayers int
	SmallBlind int64
	BigBlind   int64

	UserID string
	BuyIn  int64
	Ready  bool

	ActionKind poker.ActionKind
	Amount     int64

	Seed int64 // test hook: StartHand deck seed, 0 = derive from clock
}

// Ack is returned to a caller whose command was accepted and applied.
type Ack struct {
	TableID        string
	AppliedAtSeq   int64
	EventsEmitted  int
}

// PublicState is the PublicState projection returned by ProjectView: the
// public table state plus the viewing user's own hole cards and, after a
// showdown, those of every seat that was shown down.
type PublicState struct {
	TableID     string
	Phase       poker.Phase
	DealerSeat  int
	CurrentBet  int64
	CurrentTurn int
	Community   []poker.Card
	Seats       []SeatView
	AsOfSeq     int64
}

// SeatView is one seat's public projection; HoleCards is populated only
// when the view is being built for that seat's own user, or the seat was
// shown down at showdown.
type SeatView struct {
	Seat               int
	UserID             string
	Name               string
	Stack              int64
	CommittedThisRound int64
	Status             poker.Status
	Role               poker.Role
	IsReady            bool
	IsDisconnected     bool
	HoleCards          []poker.Card
}
