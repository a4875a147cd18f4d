package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// replicatedTables lists every table copied back from a clone, parents
// first.
var replicatedTables = []string{
	"projects",
	"styles",
	"style_keys",
	"prompts",
	"prompt_values",
	"examples",
	"tags",
	"tasks",
	"exports",
	"sqlite_sequence",
}

// Snapshot writes a transactionally consistent copy of the database to dst.
// dst must not exist.
func (s *Store) Snapshot(ctx context.Context, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
		return fmt.Errorf("snapshotting database to %s: %w", dst, err)
	}
	return nil
}

// ReplaceFrom overwrites the content of every table with the content of the
// database at src. The replacement is a single transaction, so readers see
// either the old or the new content. Writes made since src was cloned are
// lost.
func (s *Store) ReplaceFrom(ctx context.Context, src string) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "ATTACH DATABASE ? AS clone", src); err != nil {
		return fmt.Errorf("attaching %s: %w", src, err)
	}
	defer func() {
		if _, detachErr := conn.ExecContext(context.WithoutCancel(ctx), "DETACH DATABASE clone"); detachErr != nil && err == nil {
			err = fmt.Errorf("detaching clone: %w", detachErr)
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning copy-back: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range replicatedTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM main."+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO main."+table+" SELECT * FROM clone."+table); err != nil {
			return fmt.Errorf("copying %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing copy-back: %w", err)
	}
	return nil
}
