package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

// StyleUpdate carries the fields of a style update. Empty fields are left
// unchanged.
type StyleUpdate struct {
	IDText        string
	Template      string
	CompletionKey string
	PreviewKey    string
}

const styleColumns = "id, id_text, template, completion_key, preview_key, project_id, created_at"

// AddStyle creates a style and one style key per entry of keys.
// Duplicate keys are stored once.
func (s *Store) AddStyle(ctx context.Context, style core.Style, keys []string) (int64, error) {
	if strings.TrimSpace(style.IDText) == "" {
		return 0, core.ErrValidation(core.CodeEmptyName, "style id text is required")
	}

	var styleID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO styles (id_text, template, completion_key, preview_key, project_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, style.IDText, style.Template, style.CompletionKey, style.PreviewKey, style.ProjectID, s.now())
		if err != nil {
			return fmt.Errorf("inserting style: %w", err)
		}
		if styleID, err = lastInsertID(res); err != nil {
			return err
		}

		seen := make(map[string]bool, len(keys))
		for _, key := range keys {
			if seen[key] {
				continue
			}
			seen[key] = true
			if _, err := tx.ExecContext(ctx, "INSERT INTO style_keys (name, style_id) VALUES (?, ?)", key, styleID); err != nil {
				return fmt.Errorf("inserting style key %q: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return styleID, nil
}

// GetStyle returns the style, or nil when it does not exist.
func (s *Store) GetStyle(ctx context.Context, id int64) (*core.Style, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+styleColumns+" FROM styles WHERE id = ?", id)
	st, err := scanStyle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading style: %w", err)
	}
	return st, nil
}

// ListStyles returns every style, newest first.
func (s *Store) ListStyles(ctx context.Context) ([]core.Style, error) {
	return s.listStyles(ctx, "SELECT "+styleColumns+" FROM styles ORDER BY created_at DESC, id DESC")
}

// ListStylesByProject returns the styles owned by a project.
func (s *Store) ListStylesByProject(ctx context.Context, projectID int64) ([]core.Style, error) {
	return s.listStyles(ctx, "SELECT "+styleColumns+" FROM styles WHERE project_id = ? ORDER BY id", projectID)
}

func (s *Store) listStyles(ctx context.Context, q string, args ...any) ([]core.Style, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing styles: %w", err)
	}
	defer rows.Close()

	var styles []core.Style
	for rows.Next() {
		st, err := scanStyle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning style: %w", err)
		}
		styles = append(styles, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating styles: %w", err)
	}
	return styles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStyle(r rowScanner) (*core.Style, error) {
	var st core.Style
	var created timestamp
	if err := r.Scan(&st.ID, &st.IDText, &st.Template, &st.CompletionKey, &st.PreviewKey, &st.ProjectID, &created); err != nil {
		return nil, err
	}
	st.CreatedAt = created.Time
	return &st, nil
}

// ListStyleKeys returns the declared keys of a style in insertion order.
func (s *Store) ListStyleKeys(ctx context.Context, styleID int64) ([]core.StyleKey, error) {
	return listStyleKeys(ctx, s.db, styleID)
}

func listStyleKeys(ctx context.Context, q Querier, styleID int64) ([]core.StyleKey, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, name, style_id FROM style_keys WHERE style_id = ? ORDER BY id", styleID)
	if err != nil {
		return nil, fmt.Errorf("listing style keys: %w", err)
	}
	defer rows.Close()

	var keys []core.StyleKey
	for rows.Next() {
		var k core.StyleKey
		if err := rows.Scan(&k.ID, &k.Name, &k.StyleID); err != nil {
			return nil, fmt.Errorf("scanning style key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating style keys: %w", err)
	}
	return keys, nil
}

// UpdateStyle applies upd to the style. When a new template is given its
// placeholders become the style's keys: dropped placeholders lose their
// style key and every prompt value stored under them, new placeholders get
// a style key and no values.
func (s *Store) UpdateStyle(ctx context.Context, id int64, upd StyleUpdate) error {
	var newKeys []string
	if upd.Template != "" {
		keys, err := s.introspect(upd.Template)
		if err != nil {
			return core.ErrValidation(core.CodeInvalidTemplate, "style template is malformed").WithCause(err)
		}
		newKeys = keys
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if upd.Template != "" {
			if err := syncStyleKeys(ctx, tx, id, newKeys); err != nil {
				return err
			}
		}

		fields := []struct {
			column string
			value  string
		}{
			{"id_text", upd.IDText},
			{"template", upd.Template},
			{"completion_key", upd.CompletionKey},
			{"preview_key", upd.PreviewKey},
		}
		for _, f := range fields {
			if f.value == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, "UPDATE styles SET "+f.column+" = ? WHERE id = ?", f.value, id); err != nil {
				return fmt.Errorf("updating style %s: %w", f.column, err)
			}
		}
		return nil
	})
}

func syncStyleKeys(ctx context.Context, tx *sql.Tx, styleID int64, newKeys []string) error {
	old, err := listStyleKeys(ctx, tx, styleID)
	if err != nil {
		return err
	}

	wanted := make(map[string]bool, len(newKeys))
	for _, k := range newKeys {
		wanted[k] = true
	}
	existing := make(map[string]bool, len(old))
	for _, k := range old {
		existing[k.Name] = true
	}

	for _, k := range old {
		if wanted[k.Name] {
			continue
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM style_keys WHERE style_id = ? AND name = ?", styleID, k.Name); err != nil {
			return fmt.Errorf("removing style key %q: %w", k.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM prompt_values
			WHERE key = ?
			AND prompt_id IN (SELECT id FROM prompts WHERE style_id = ?)
		`, k.Name, styleID); err != nil {
			return fmt.Errorf("removing prompt values for key %q: %w", k.Name, err)
		}
	}

	for _, k := range newKeys {
		if existing[k] {
			continue
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO style_keys (name, style_id) VALUES (?, ?)", k, styleID); err != nil {
			return fmt.Errorf("adding style key %q: %w", k, err)
		}
	}
	return nil
}

var deleteStyleSteps = []string{
	`DELETE FROM tags WHERE example_id IN (
		SELECT examples.id FROM examples
		JOIN prompts ON examples.prompt_id = prompts.id
		WHERE prompts.style_id = ?)`,
	"DELETE FROM tags WHERE prompt_id IN (SELECT id FROM prompts WHERE style_id = ?)",
	"DELETE FROM examples WHERE prompt_id IN (SELECT id FROM prompts WHERE style_id = ?)",
	"DELETE FROM prompt_values WHERE prompt_id IN (SELECT id FROM prompts WHERE style_id = ?)",
	"DELETE FROM prompts WHERE style_id = ?",
	"DELETE FROM style_keys WHERE style_id = ?",
	"DELETE FROM styles WHERE id = ?",
}

// DeleteStyle removes the style with its keys, prompts, prompt values,
// examples and tags. The steps are not atomic.
func (s *Store) DeleteStyle(ctx context.Context, id int64) error {
	return s.cascade(ctx, "style", id, deleteStyleSteps)
}
