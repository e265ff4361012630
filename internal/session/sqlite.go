package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/tallyloom/internal/format"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	format         TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	financial      INTEGER NOT NULL DEFAULT 0,
	organizational INTEGER NOT NULL DEFAULT 0,
	payload        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);
`

// SQLiteStore keeps sessions in a single SQLite database. The full session
// is stored as a JSON payload next to the columns List needs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path. Pass
// ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save inserts or replaces the session.
func (st *SQLiteStore) Save(ctx context.Context, s *Session) error {
	if s == nil || !validID(s.ID) {
		return errors.New("session id must be a uuid")
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = st.db.ExecContext(ctx, `
		INSERT INTO sessions (id, name, format, created_at, financial, organizational, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			format = excluded.format,
			created_at = excluded.created_at,
			financial = excluded.financial,
			organizational = excluded.organizational,
			payload = excluded.payload`,
		s.ID, s.Name, s.Format.String(), s.CreatedAt.UTC().Format(time.RFC3339Nano),
		len(s.Financial), len(s.Organizational), string(payload))
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Load reads a session by id.
func (st *SQLiteStore) Load(ctx context.Context, id string) (*Session, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var payload string
	err := st.db.QueryRowContext(ctx, `SELECT payload FROM sessions WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	var s Session
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return &s, nil
}

// List returns every stored session, oldest first.
func (st *SQLiteStore) List(ctx context.Context) ([]Meta, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT id, name, format, created_at, financial, organizational
		FROM sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	out := []Meta{}
	for rows.Next() {
		var m Meta
		var tag, created string
		if err := rows.Scan(&m.ID, &m.Name, &tag, &created, &m.Financial, &m.Organizational); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if m.Format, err = format.ParseTag(tag); err != nil {
			return nil, fmt.Errorf("session %s: %w", m.ID, err)
		}
		if m.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("session %s: bad created_at: %w", m.ID, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	sortMetas(out)
	return out, nil
}

// Delete removes a session.
func (st *SQLiteStore) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	res, err := st.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes every session.
func (st *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := st.db.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clearing sessions: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (st *SQLiteStore) Close() error { return st.db.Close() }
