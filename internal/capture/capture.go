// Package capture stores telemetry sessions in SQLite so bench runs can be
// replayed later.
package capture

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	started_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS records (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	at_ms      INTEGER NOT NULL,
	field      TEXT NOT NULL,
	kind       TEXT NOT NULL,
	value      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS records_session ON records(session_id, at_ms, id);
`

// Record is one field update at an offset from the session start.
type Record struct {
	At    time.Duration
	Field string
	Value any // uint16 or string
}

type Session struct {
	ID        string
	Name      string
	StartedAt time.Time
	Records   int
}

type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path. ":memory:" works for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serialises writes.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// NewSession registers a session and returns its ID.
func (s *Store) NewSession(ctx context.Context, name string, started time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, name, started_at) VALUES (?, ?, ?)`,
		id, name, started.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// Append stores one update. Values other than uint16, int and string are
// stored as their decimal or %v text.
func (s *Store) Append(ctx context.Context, session string, r Record) error {
	kind, val := encode(r.Value)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (session_id, at_ms, field, kind, value) VALUES (?, ?, ?, ?, ?)`,
		session, r.At.Milliseconds(), r.Field, kind, val)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Records returns a session's updates in recording order.
func (s *Store) Records(ctx context.Context, session string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT at_ms, field, kind, value FROM records WHERE session_id = ? ORDER BY at_ms, id`, session)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			atMs              int64
			field, kind, text string
		)
		if err := rows.Scan(&atMs, &field, &kind, &text); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, Record{
			At:    time.Duration(atMs) * time.Millisecond,
			Field: field,
			Value: decode(kind, text),
		})
	}
	return out, rows.Err()
}

// Sessions lists sessions, newest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.started_at, COUNT(r.id)
		FROM sessions s LEFT JOIN records r ON r.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC, s.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			ss      Session
			started int64
		)
		if err := rows.Scan(&ss.ID, &ss.Name, &started, &ss.Records); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ss.StartedAt = time.UnixMilli(started)
		out = append(out, ss)
	}
	return out, rows.Err()
}

func encode(v any) (kind, text string) {
	switch x := v.(type) {
	case uint16:
		return "int", strconv.FormatUint(uint64(x), 10)
	case int:
		return "int", strconv.Itoa(x)
	case bool:
		if x {
			return "int", "1"
		}
		return "int", "0"
	case string:
		return "text", x
	default:
		return "text", fmt.Sprint(x)
	}
}

func decode(kind, text string) any {
	if kind == "int" {
		if n, err := strconv.ParseUint(text, 10, 16); err == nil {
			return uint16(n)
		}
	}
	return text
}
