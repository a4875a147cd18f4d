package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
	"github.com/hugo-lorenzo-mato/promptbank/internal/query"
)

// AddExample attaches a completion to a prompt.
func (s *Store) AddExample(ctx context.Context, promptID int64, completion string, tags []string) (int64, error) {
	var exampleID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO examples (prompt_id, completion, created_at) VALUES (?, ?, ?)",
			promptID, completion, s.now())
		if err != nil {
			return fmt.Errorf("inserting example: %w", err)
		}
		if exampleID, err = lastInsertID(res); err != nil {
			return err
		}
		return insertExampleTags(ctx, tx, exampleID, tags)
	})
	if err != nil {
		return 0, err
	}
	return exampleID, nil
}

const exampleWithTags = `
	SELECT examples.id, examples.prompt_id, examples.completion, examples.created_at,
		COALESCE(GROUP_CONCAT(tags.value, char(31)), '') AS tags
	FROM examples
	LEFT JOIN tags ON tags.example_id = examples.id
`

// GetExample returns the example with its tags, or nil when it does not
// exist.
func (s *Store) GetExample(ctx context.Context, id int64) (*core.Example, error) {
	rows, err := s.db.QueryContext(ctx, exampleWithTags+" WHERE examples.id = ? GROUP BY examples.id", id)
	if err != nil {
		return nil, fmt.Errorf("loading example: %w", err)
	}
	defer rows.Close()

	examples, err := scanExamples(rows, true)
	if err != nil {
		return nil, err
	}
	if len(examples) == 0 {
		return nil, nil
	}
	return &examples[0], nil
}

// ListExamplesByPrompt returns a prompt's examples, oldest first. Tags are
// loaded only when withTags is set.
func (s *Store) ListExamplesByPrompt(ctx context.Context, promptID int64, withTags bool) ([]core.Example, error) {
	q := "SELECT id, prompt_id, completion, created_at FROM examples WHERE prompt_id = ? ORDER BY id"
	if withTags {
		q = exampleWithTags + " WHERE examples.prompt_id = ? GROUP BY examples.id ORDER BY examples.id"
	}
	rows, err := s.db.QueryContext(ctx, q, promptID)
	if err != nil {
		return nil, fmt.Errorf("listing examples: %w", err)
	}
	defer rows.Close()
	return scanExamples(rows, withTags)
}

func scanExamples(rows *sql.Rows, withTags bool) ([]core.Example, error) {
	var examples []core.Example
	for rows.Next() {
		var e core.Example
		var created timestamp
		dest := []any{&e.ID, &e.PromptID, &e.Completion, &created}
		var joined string
		if withTags {
			dest = append(dest, &joined)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning example: %w", err)
		}
		e.CreatedAt = created.Time
		if withTags {
			e.Tags = query.SplitTags(joined)
		}
		examples = append(examples, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating examples: %w", err)
	}
	return examples, nil
}

// UpdateExample changes the completion when non-empty and, when tags is
// non-nil, replaces the example's tags.
func (s *Store) UpdateExample(ctx context.Context, id int64, completion string, tags []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if completion != "" {
			if _, err := tx.ExecContext(ctx, "UPDATE examples SET completion = ? WHERE id = ?", completion, id); err != nil {
				return fmt.Errorf("updating example: %w", err)
			}
		}
		if tags == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE example_id = ?", id); err != nil {
			return fmt.Errorf("clearing example tags: %w", err)
		}
		return insertExampleTags(ctx, tx, id, tags)
	})
}

// DeleteExample removes the example and its tags.
func (s *Store) DeleteExample(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE example_id = ?", id); err != nil {
			return fmt.Errorf("deleting example tags: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM examples WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting example: %w", err)
		}
		return nil
	})
}
