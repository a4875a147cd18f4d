package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

// AddExport records a finished export file.
func (s *Store) AddExport(ctx context.Context, filename string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO exports (filename, created_at) VALUES (?, ?)", filename, s.now())
	if err != nil {
		return 0, fmt.Errorf("inserting export: %w", err)
	}
	return lastInsertID(res)
}

// GetExport returns the export, or nil when it does not exist.
func (s *Store) GetExport(ctx context.Context, id int64) (*core.Export, error) {
	var e core.Export
	var created timestamp
	err := s.db.QueryRowContext(ctx,
		"SELECT id, filename, created_at FROM exports WHERE id = ?", id,
	).Scan(&e.ID, &e.Filename, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading export: %w", err)
	}
	e.CreatedAt = created.Time
	return &e, nil
}

// ListExports returns every export, newest first.
func (s *Store) ListExports(ctx context.Context) ([]core.Export, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, filename, created_at FROM exports ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("listing exports: %w", err)
	}
	defer rows.Close()

	var exports []core.Export
	for rows.Next() {
		var e core.Export
		var created timestamp
		if err := rows.Scan(&e.ID, &e.Filename, &created); err != nil {
			return nil, fmt.Errorf("scanning export: %w", err)
		}
		e.CreatedAt = created.Time
		exports = append(exports, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating exports: %w", err)
	}
	return exports, nil
}
