// Package history keeps the conversation log. Recent turns feed the fallback
// responder's prompt context; the log itself is best-effort, an append failure
// never breaks a turn.
package history

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/lyra-voice/lyra/pkg/core/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id          TEXT PRIMARY KEY,
	utterance   TEXT NOT NULL,
	response    TEXT NOT NULL,
	fallback    INTEGER NOT NULL DEFAULT 0,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_started ON turns(started_at);
`

// Store is a sqlite-backed conversation log.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the log at path. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// One writer; sqlite serializes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append records one finished turn.
func (s *Store) Append(turn types.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO turns (id, utterance, response, fallback, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.Utterance, turn.Response, boolToInt(turn.Fallback), turn.StartedAt, turn.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Recent returns up to n turns, oldest first, so they can be replayed into a
// prompt in conversation order.
func (s *Store) Recent(n int) []types.Turn {
	if n <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, utterance, response, fallback, started_at, finished_at
		 FROM turns ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var turns []types.Turn
	for rows.Next() {
		var t types.Turn
		var fb int
		if err := rows.Scan(&t.ID, &t.Utterance, &t.Response, &fb, &t.StartedAt, &t.FinishedAt); err != nil {
			return nil
		}
		t.Fallback = fb != 0
		turns = append(turns, t)
	}
	if rows.Err() != nil {
		return nil
	}
	// Reverse into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
