package sqlite

import (
	"context"
	"fmt"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
	"github.com/hugo-lorenzo-mato/promptbank/internal/query"
)

// SearchPrompts returns one page of prompts matching f and the total number
// of matches.
func (s *Store) SearchPrompts(ctx context.Context, f core.SearchFilter) (core.SearchPage, error) {
	f = query.Normalize(f, s.defaultLimit)
	q, args := query.Search(f).Build()

	rows, err := s.QueryRows(ctx, q, args...)
	if err != nil {
		return core.SearchPage{}, fmt.Errorf("searching prompts: %w", err)
	}

	page := core.SearchPage{Results: make([]core.SearchResult, 0, len(rows))}
	for _, row := range rows {
		page.Results = append(page.Results, core.SearchResult{
			Prompt: core.Prompt{
				ID:        row.Int64("prompt_id"),
				ProjectID: row.Int64("project_id"),
				StyleID:   row.Int64("style_id"),
				CreatedAt: row.Time("created_at"),
			},
			PreviewKey:   row.String("preview_key"),
			PreviewValue: row.String("preview_value"),
			Tags:         query.SplitTags(row.String("tags")),
			Row:          row,
		})
	}
	if len(rows) > 0 {
		page.Total = int(rows[0].Int64("total_results"))
	}
	return page, nil
}

// ExportCandidates returns every prompt matching f that has at least one
// matching example. Pagination fields of f are ignored.
func (s *Store) ExportCandidates(ctx context.Context, f core.SearchFilter) ([]core.ExportCandidate, error) {
	f = query.Normalize(f, s.defaultLimit)
	q, args := query.Export(f).Build()

	rows, err := s.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting export candidates: %w", err)
	}

	candidates := make([]core.ExportCandidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, core.ExportCandidate{
			Prompt: core.Prompt{
				ID:        row.Int64("prompt_id"),
				ProjectID: row.Int64("project_id"),
				StyleID:   row.Int64("style_id"),
				CreatedAt: row.Time("created_at"),
			},
			Template:      row.String("template"),
			CompletionKey: row.String("completion_key"),
		})
	}
	return candidates, nil
}
