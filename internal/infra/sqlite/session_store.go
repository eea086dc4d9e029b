package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voice-quiz-service/internal/domain"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS quiz_sessions (
	user_id    TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	version    INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SessionStore persists payloads in a single SQLite table, one row per user.
type SessionStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to the SQLite database at dsn, applies pragmas and creates
// the sessions table if needed.
func Open(dsn string) (*SessionStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SessionStore{db: db, now: time.Now}, nil
}

func (s *SessionStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for raw queries.
func (s *SessionStore) DB() *sql.DB {
	return s.db
}

func (s *SessionStore) Load(ctx context.Context, userID string) (domain.Payload, int64, error) {
	var (
		raw     string
		version int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT payload, version FROM quiz_sessions WHERE user_id = ?`, userID).Scan(&raw, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load session: %w", err)
	}

	var payload domain.Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		// keep the version so the user is still known and the row can be replaced
		return domain.Payload{}, version, fmt.Errorf("%w: user %s: %w", domain.ErrMalformedSession, userID, err)
	}
	return payload, version, nil
}

// Save inserts a new row when expected is 0 and otherwise updates the row
// only while it is still at the expected version.
func (s *SessionStore) Save(ctx context.Context, userID string, payload domain.Payload, expected int64) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	var res sql.Result
	if expected == 0 {
		res, err = s.db.ExecContext(ctx, `INSERT INTO quiz_sessions (user_id, payload, version, updated_at) VALUES (?, ?, 1, ?)
			ON CONFLICT(user_id) DO NOTHING`,
			userID, string(data), s.now().Unix())
	} else {
		res, err = s.db.ExecContext(ctx, `UPDATE quiz_sessions SET payload = ?, version = version + 1, updated_at = ?
			WHERE user_id = ? AND version = ?`,
			string(data), s.now().Unix(), userID, expected)
	}
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: user %s is no longer at version %d", domain.ErrSessionConflict, userID, expected)
	}
	return nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}
