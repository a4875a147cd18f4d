// Package sqlite is the record store: projects, styles, prompts, examples,
// tags, tasks and exports kept in a single embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
	"github.com/hugo-lorenzo-mato/promptbank/internal/query"
	"github.com/hugo-lorenzo-mato/promptbank/internal/template"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the SQLite record store.
type Store struct {
	path         string
	db           *sql.DB
	introspect   core.TemplateIntrospector
	defaultLimit int
	busyTimeout  time.Duration
	now          func() time.Time
}

// Option configures the store.
type Option func(*Store)

// WithIntrospector sets the placeholder extractor used when a style template
// changes.
func WithIntrospector(fn core.TemplateIntrospector) Option {
	return func(s *Store) {
		s.introspect = fn
	}
}

// WithDefaultLimit sets the search page size used when a filter has none.
func WithDefaultLimit(n int) Option {
	return func(s *Store) {
		s.defaultLimit = n
	}
}

// WithBusyTimeout sets how long a writer waits on another process's lock.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.busyTimeout = d
	}
}

// Open opens the database at path, creating it and applying the bootstrap
// schema when the file does not exist yet or is empty.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:         path,
		introspect:   template.NamedArguments,
		defaultLimit: query.DefaultLimit,
		busyTimeout:  5 * time.Second,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	needInit := true
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		needInit = false
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_time_format=sqlite",
		path, s.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: statements from this process are serialized and
	// SQLite's file lock arbitrates against worker processes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	s.db = db

	if needInit {
		if _, err := db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying bootstrap schema: %w", err)
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Reset drops every table and re-applies the bootstrap schema.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("resetting schema: %w", err)
	}
	return nil
}

// QueryRows runs an arbitrary read query and returns ordered rows.
func (s *Store) QueryRows(ctx context.Context, q string, args ...any) ([]core.Row, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rows: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// withTx runs fn inside a transaction and commits it.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// cascade runs a fixed sequence of deletes without a surrounding
// transaction. Each statement commits on its own, so a failure part way
// leaves orphaned rows behind; the error names the step that failed.
func (s *Store) cascade(ctx context.Context, what string, id int64, stmts []string) error {
	for i, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("deleting %s %d (step %d of %d): %w", what, id, i+1, len(stmts), err)
		}
	}
	return nil
}

func lastInsertID(res sql.Result) (int64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted id: %w", err)
	}
	return id, nil
}

func insertPromptTags(ctx context.Context, q Querier, promptID int64, tags []string) error {
	for _, tag := range tags {
		if _, err := q.ExecContext(ctx, "INSERT INTO tags (value, prompt_id) VALUES (?, ?)", tag, promptID); err != nil {
			return fmt.Errorf("inserting prompt tag %q: %w", tag, err)
		}
	}
	return nil
}

func insertExampleTags(ctx context.Context, q Querier, exampleID int64, tags []string) error {
	for _, tag := range tags {
		if _, err := q.ExecContext(ctx, "INSERT INTO tags (value, example_id) VALUES (?, ?)", tag, exampleID); err != nil {
			return fmt.Errorf("inserting example tag %q: %w", tag, err)
		}
	}
	return nil
}
