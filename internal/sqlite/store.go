// Package sqlite implements the artefact store on SQLite. It owns all
// persistence of artefacts, events, edges, tags, notes, and projects;
// multi-statement operations run inside a single transaction so partial
// writes are never observable.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/stemma/internal/sqlite/migrations"
)

// queryer is satisfied by both *sql.DB and *sql.Tx, so store methods run
// unchanged inside or outside a transaction.
type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store provides typed access to the stemma database. All paths handed
// to the store are expected to be canonical (see internal/identity).
type Store struct {
	db *sql.DB
	q  queryer
}

// Open opens (creating if necessary) the database at path, enables
// foreign keys, and applies pending schema migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, q: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// WithTx runs fn against a store bound to a single transaction,
// committing on success and rolling back on error. Calls are
// reentrant: a store already bound to a transaction runs fn directly,
// so composed operations share one atomic scope.
func (s *Store) WithTx(fn func(*Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// now returns the canonical stored form of the current time.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// timeLayouts lists accepted stored timestamp forms: our own RFC 3339
// and the SQLite datetime() form that imported bundles may carry.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999-07:00",
}

// parseTime decodes a stored timestamp, tolerating foreign formats from
// imported bundles. Unparseable values yield the zero time rather than
// an error; the raw string is still preserved in the row.
func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// nullable maps an empty string to NULL for optional TEXT columns.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullablePtr maps a nil pointer to NULL.
func nullablePtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// stringOrEmpty unwraps an optional column read.
func stringOrEmpty(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

// ptrOrNil converts an optional column read to a pointer.
func ptrOrNil(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// The modernc driver does not export a typed error for this.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
