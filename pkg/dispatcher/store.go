package dispatcher

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tablesmith/holdemserver/pkg/poker"
)

// Store persists the append-only event log and periodic table snapshots.
// It is the "persistence collaborator" the external interface defers
// schema details to.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) the SQLite-backed event/snapshot
// store at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: open store: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			table_id        TEXT NOT NULL,
			sequence_number INTEGER NOT NULL,
			hand_number     INTEGER NOT NULL,
			kind            TEXT NOT NULL,
			timestamp_unix  INTEGER NOT NULL,
			payload_json    TEXT NOT NULL,
			PRIMARY KEY (table_id, sequence_number)
		);

		CREATE TABLE IF NOT EXISTS snapshots (
			table_id               TEXT PRIMARY KEY,
			sequence_number        INTEGER NOT NULL,
			state_json             TEXT NOT NULL,
			timer_deadline_unix_ms INTEGER,
			updated_at_unix        INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("dispatcher: create schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// AppendEvents durably stores events in order. A command is only ACKed
// once this call returns nil, per the write-ahead persistence policy.
func (s *Store) AppendEvents(tableID string, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return &TransientError{Reason: err.Error()}
	}
	stmt, err := tx.Prepare(`INSERT INTO events (table_id, sequence_number, hand_number, kind, timestamp_unix, payload_json) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return &TransientError{Reason: err.Error()}
	}
	defer stmt.Close()

	for _, e := range events {
		payloadJSON, err := json.Marshal(e.Payload)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("dispatcher: marshal event payload: %w", err)
		}
		if _, err := stmt.Exec(tableID, e.SequenceNumber, e.HandNumber, string(e.Kind), e.Timestamp.UnixNano(), string(payloadJSON)); err != nil {
			tx.Rollback()
			return &TransientError{Reason: err.Error()}
		}
	}
	if err := tx.Commit(); err != nil {
		return &TransientError{Reason: err.Error()}
	}
	return nil
}

// EventsSince returns every stored event for tableID with sequence number
// strictly greater than since, ordered ascending.
func (s *Store) EventsSince(tableID string, since int64) ([]Event, error) {
	rows, err := s.db.Query(`SELECT sequence_number, hand_number, kind, timestamp_unix, payload_json FROM events WHERE table_id = ? AND sequence_number > ? ORDER BY sequence_number ASC`, tableID, since)
	if err != nil {
		return nil, &TransientError{Reason: err.Error()}
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var kind, payloadJSON string
		var tsNano int64
		if err := rows.Scan(&e.SequenceNumber, &e.HandNumber, &kind, &tsNano, &payloadJSON); err != nil {
			return nil, &TransientError{Reason: err.Error()}
		}
		e.TableID = tableID
		e.Kind = poker.EventKind(kind)
		e.Timestamp = time.Unix(0, tsNano)
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, fmt.Errorf("dispatcher: unmarshal event payload: %w", err)
		}
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveSnapshot upserts the latest full-state snapshot for a table.
func (s *Store) SaveSnapshot(tableID string, seq int64, stateJSON []byte, timerDeadlineUnixMs *int64, now time.Time) error {
	var deadline interface{}
	if timerDeadlineUnixMs != nil {
		deadline = *timerDeadlineUnixMs
	}
	_, err := s.db.Exec(`
		INSERT INTO snapshots (table_id, sequence_number, state_json, timer_deadline_unix_ms, updated_at_unix)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(table_id) DO UPDATE SET
			sequence_number = excluded.sequence_number,
			state_json = excluded.state_json,
			timer_deadline_unix_ms = excluded.timer_deadline_unix_ms,
			updated_at_unix = excluded.updated_at_unix
	`, tableID, seq, string(stateJSON), deadline, now.Unix())
	if err != nil {
		return &TransientError{Reason: err.Error()}
	}
	return nil
}

// LoadSnapshot returns the latest snapshot for a table, or ok=false if
// none exists yet.
func (s *Store) LoadSnapshot(tableID string) (seq int64, stateJSON []byte, timerDeadlineUnixMs *int64, ok bool, err error) {
	row := s.db.QueryRow(`SELECT sequence_number, state_json, timer_deadline_unix_ms FROM snapshots WHERE table_id = ?`, tableID)
	var state string
	var deadline sql.NullInt64
	if scanErr := row.Scan(&seq, &state, &deadline); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return 0, nil, nil, false, nil
		}
		return 0, nil, nil, false, &TransientError{Reason: scanErr.Error()}
	}
	if deadline.Valid {
		v := deadline.Int64
		timerDeadlineUnixMs = &v
	}
	return seq, []byte(state), timerDeadlineUnixMs, true, nil
}
