package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/unistate/internal/todo"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema
// 1 - Added index on dispatches.kind
const currentSchemaVersion = 1

// ErrSessionNotFound is returned when a session id has no sessions row.
var ErrSessionNotFound = errors.New("journal: session not found")

// Entry is one recorded dispatch.
type Entry struct {
	Session     string
	Seq         int64
	Kind        todo.Kind
	Payload     string // canonical JSON of the action envelope
	StateDigest string // digest of the state after the reduction
}

// Session is the header row of one recording.
type Session struct {
	ID            string
	InitialDigest string
}

// Journal provides durable storage for dispatch trails.
type Journal struct {
	db *sql.DB
}

// Open creates or opens a SQLite journal at path.
// Applies pragmas and migrations. Safe to call on an existing file.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// BeginSession writes the header row for a new session.
// Writing the same id twice is a no-op.
func (j *Journal) BeginSession(ctx context.Context, s Session) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sessions (id, initial_digest)
		VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, s.ID, s.InitialDigest)
	if err != nil {
		return fmt.Errorf("begin session %s: %w", s.ID, err)
	}
	return nil
}

// Append inserts an entry. Duplicate (session, seq) pairs are ignored.
// The session must exist (foreign key).
func (j *Journal) Append(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO dispatches (session, seq, kind, payload, state_digest)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session, seq) DO NOTHING
	`, e.Session, e.Seq, string(e.Kind), e.Payload, e.StateDigest)
	if err != nil {
		return fmt.Errorf("append entry %s/%d: %w", e.Session, e.Seq, err)
	}
	return nil
}

// ReadSession returns the header row for id.
func (j *Journal) ReadSession(ctx context.Context, id string) (Session, error) {
	var s Session
	err := j.db.QueryRowContext(ctx, `
		SELECT id, initial_digest FROM sessions WHERE id = ?
	`, id).Scan(&s.ID, &s.InitialDigest)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session %s: %w", id, err)
	}
	return s, nil
}

// ListSessions returns session ids in the order they were begun.
func (j *Journal) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Entries returns every entry of a session in seq order.
func (j *Journal) Entries(ctx context.Context, session string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session, seq, kind, payload, state_digest
		FROM dispatches
		WHERE session = ?
		ORDER BY seq ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("read entries %s: %w", session, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.Session, &e.Seq, &kind, &e.Payload, &e.StateDigest); err != nil {
			return nil, fmt.Errorf("read entries %s: %w", session, err)
		}
		e.Kind = todo.Kind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByKind returns how many entries of each kind a session holds.
func (j *Journal) CountByKind(ctx context.Context, session string) (map[todo.Kind]int, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT kind, COUNT(*) FROM dispatches
		WHERE session = ?
		GROUP BY kind
		ORDER BY kind ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("count entries %s: %w", session, err)
	}
	defer rows.Close()

	counts := make(map[todo.Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("count entries %s: %w", session, err)
		}
		counts[todo.Kind(kind)] = n
	}
	return counts, rows.Err()
}

// LastSeq returns the highest seq recorded for a session, or 0.
func (j *Journal) LastSeq(ctx context.Context, session string) (int64, error) {
	var seq sql.NullInt64
	err := j.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM dispatches WHERE session = ?
	`, session).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq %s: %w", session, err)
	}
	return seq.Int64, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if needed and runs migrations. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 adds the kind index used by CountByKind.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_dispatches_kind
		ON dispatches(session, kind)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// pragma reads a pragma value. Used by tests.
func (j *Journal) pragma(name string) (string, error) {
	var value string
	if err := j.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}
