package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

// AddProject creates a project and returns its id.
func (s *Store) AddProject(ctx context.Context, name, description string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, core.ErrValidation(core.CodeEmptyName, "project name is required")
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (name, description, created_at) VALUES (?, ?, ?)",
		name, description, s.now())
	if err != nil {
		return 0, fmt.Errorf("inserting project: %w", err)
	}
	return lastInsertID(res)
}

// GetProject returns the project, or nil when it does not exist.
func (s *Store) GetProject(ctx context.Context, id int64) (*core.Project, error) {
	var p core.Project
	var created timestamp
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_at FROM projects WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.Description, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	p.CreatedAt = created.Time
	return &p, nil
}

// ListProjects returns every project, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, created_at FROM projects ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []core.Project
	for rows.Next() {
		var p core.Project
		var created timestamp
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &created); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		p.CreatedAt = created.Time
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return projects, nil
}

// UpdateProject changes the name and/or description. Empty values leave the
// stored field untouched.
func (s *Store) UpdateProject(ctx context.Context, id int64, name, description string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if description != "" {
			if _, err := tx.ExecContext(ctx, "UPDATE projects SET description = ? WHERE id = ?", description, id); err != nil {
				return fmt.Errorf("updating project description: %w", err)
			}
		}
		if name != "" {
			if _, err := tx.ExecContext(ctx, "UPDATE projects SET name = ? WHERE id = ?", name, id); err != nil {
				return fmt.Errorf("updating project name: %w", err)
			}
		}
		return nil
	})
}

var deleteProjectSteps = []string{
	`DELETE FROM tags WHERE example_id IN (
		SELECT examples.id FROM examples
		JOIN prompts ON examples.prompt_id = prompts.id
		WHERE prompts.project_id = ?)`,
	"DELETE FROM tags WHERE prompt_id IN (SELECT id FROM prompts WHERE project_id = ?)",
	"DELETE FROM examples WHERE prompt_id IN (SELECT id FROM prompts WHERE project_id = ?)",
	"DELETE FROM prompt_values WHERE prompt_id IN (SELECT id FROM prompts WHERE project_id = ?)",
	"DELETE FROM prompts WHERE project_id = ?",
	"DELETE FROM style_keys WHERE style_id IN (SELECT id FROM styles WHERE project_id = ?)",
	"DELETE FROM styles WHERE project_id = ?",
	"DELETE FROM projects WHERE id = ?",
}

// DeleteProject removes the project and everything below it: styles, style
// keys, prompts, prompt values, examples and tags. The steps are not atomic.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	return s.cascade(ctx, "project", id, deleteProjectSteps)
}
