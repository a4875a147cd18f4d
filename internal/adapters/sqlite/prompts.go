package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

// AddPrompt creates a prompt with one value per entry of values and the
// given prompt tags.
func (s *Store) AddPrompt(ctx context.Context, projectID, styleID int64, values map[string]string, tags []string) (int64, error) {
	var promptID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		promptID, err = s.insertPrompt(ctx, tx, projectID, styleID, values)
		if err != nil {
			return err
		}
		return insertPromptTags(ctx, tx, promptID, tags)
	})
	if err != nil {
		return 0, err
	}
	return promptID, nil
}

// ImportItem stores one bulk item as a unit: a prompt with its values and
// tags plus one example per completion.
func (s *Store) ImportItem(ctx context.Context, projectID, styleID int64, values map[string]string, completions, tags []string) (int64, error) {
	var promptID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		promptID, err = s.insertPrompt(ctx, tx, projectID, styleID, values)
		if err != nil {
			return err
		}
		for _, completion := range completions {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO examples (prompt_id, completion, created_at) VALUES (?, ?, ?)",
				promptID, completion, s.now()); err != nil {
				return fmt.Errorf("inserting example: %w", err)
			}
		}
		return insertPromptTags(ctx, tx, promptID, tags)
	})
	if err != nil {
		return 0, err
	}
	return promptID, nil
}

func (s *Store) insertPrompt(ctx context.Context, tx *sql.Tx, projectID, styleID int64, values map[string]string) (int64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO prompts (project_id, style_id, created_at) VALUES (?, ?, ?)",
		projectID, styleID, s.now())
	if err != nil {
		return 0, fmt.Errorf("inserting prompt: %w", err)
	}
	promptID, err := lastInsertID(res)
	if err != nil {
		return 0, err
	}

	for _, key := range sortedKeys(values) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO prompt_values (prompt_id, key, value) VALUES (?, ?, ?)",
			promptID, key, values[key]); err != nil {
			return 0, fmt.Errorf("inserting prompt value %q: %w", key, err)
		}
	}
	return promptID, nil
}

// GetPrompt returns the prompt, or nil when it does not exist.
func (s *Store) GetPrompt(ctx context.Context, id int64) (*core.Prompt, error) {
	var p core.Prompt
	var created timestamp
	err := s.db.QueryRowContext(ctx,
		"SELECT id, project_id, style_id, created_at FROM prompts WHERE id = ?", id,
	).Scan(&p.ID, &p.ProjectID, &p.StyleID, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading prompt: %w", err)
	}
	p.CreatedAt = created.Time
	return &p, nil
}

// ListPromptValues returns the values of a prompt ordered by key.
func (s *Store) ListPromptValues(ctx context.Context, promptID int64) ([]core.PromptValue, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, prompt_id, key, value FROM prompt_values WHERE prompt_id = ? ORDER BY key", promptID)
	if err != nil {
		return nil, fmt.Errorf("listing prompt values: %w", err)
	}
	defer rows.Close()

	var values []core.PromptValue
	for rows.Next() {
		var v core.PromptValue
		if err := rows.Scan(&v.ID, &v.PromptID, &v.Key, &v.Value); err != nil {
			return nil, fmt.Errorf("scanning prompt value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prompt values: %w", err)
	}
	return values, nil
}

// ListPromptTags returns the tags attached directly to a prompt.
func (s *Store) ListPromptTags(ctx context.Context, promptID int64) ([]core.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, value, prompt_id FROM tags WHERE prompt_id = ? ORDER BY id", promptID)
	if err != nil {
		return nil, fmt.Errorf("listing prompt tags: %w", err)
	}
	defer rows.Close()

	var tags []core.Tag
	for rows.Next() {
		var t core.Tag
		var pid int64
		if err := rows.Scan(&t.ID, &t.Value, &pid); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		t.PromptID = &pid
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}
	return tags, nil
}

// UpdatePrompt upserts each value and, when tags is non-nil, replaces the
// prompt's tags.
func (s *Store) UpdatePrompt(ctx context.Context, id int64, values map[string]string, tags []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, key := range sortedKeys(values) {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO prompt_values (prompt_id, key, value) VALUES (?, ?, ?)
				ON CONFLICT (prompt_id, key) DO UPDATE SET value = excluded.value
			`, id, key, values[key]); err != nil {
				return fmt.Errorf("upserting prompt value %q: %w", key, err)
			}
		}

		if tags == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE prompt_id = ?", id); err != nil {
			return fmt.Errorf("clearing prompt tags: %w", err)
		}
		return insertPromptTags(ctx, tx, id, tags)
	})
}

var deletePromptSteps = []string{
	"DELETE FROM tags WHERE example_id IN (SELECT id FROM examples WHERE prompt_id = ?)",
	"DELETE FROM examples WHERE prompt_id = ?",
	"DELETE FROM tags WHERE prompt_id = ?",
	"DELETE FROM prompt_values WHERE prompt_id = ?",
	"DELETE FROM prompts WHERE id = ?",
}

// DeletePrompt removes the prompt, its values, its tags and its examples
// with their tags. The steps are not atomic.
func (s *Store) DeletePrompt(ctx context.Context, id int64) error {
	return s.cascade(ctx, "prompt", id, deletePromptSteps)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
