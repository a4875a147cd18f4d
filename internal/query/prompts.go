package query

import (
	"strings"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

// DefaultLimit is the search page size used when none is given.
const DefaultLimit = 100

// TagSeparator joins a prompt's tag values in the aggregated tags column.
// It is the ASCII unit separator so tag text can contain commas.
const TagSeparator = "\x1f"

// Normalize applies defaults to a filter: a non-positive limit becomes
// defaultLimit, a negative offset becomes 0 and blank tags are dropped.
func Normalize(f core.SearchFilter, defaultLimit int) core.SearchFilter {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	tags := make([]string, 0, len(f.Tags))
	for _, t := range f.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	f.Tags = tags
	return f
}

// promptMatch is the shared core of search and export: prompts joined to the
// value of their style's preview key, filtered by every set field of f.
// With requireExample the examples join is inner even without an example
// filter.
func promptMatch(f core.SearchFilter, requireExample bool) Select {
	exampleKind := LeftJoin
	exampleCond := Match("examples.completion")
	if f.Example != "" {
		exampleKind = InnerJoin
		exampleCond = Contains("examples.completion", f.Example)
	}
	if requireExample {
		exampleKind = InnerJoin
	}

	s := Select{
		Distinct: true,
		From:     "prompts",
		Joins: []Join{
			{Kind: InnerJoin, Table: "prompt_values", On: ColumnEq{"prompts.id", "prompt_values.prompt_id"}},
			{Kind: InnerJoin, Table: "styles", On: All{
				ColumnEq{"prompts.style_id", "styles.id"},
				ColumnEq{"prompt_values.key", "styles.preview_key"},
			}},
			{Kind: exampleKind, Table: "examples", On: All{
				ColumnEq{"prompts.id", "examples.prompt_id"},
				exampleCond,
			}},
		},
	}

	if len(f.Tags) > 0 {
		anyTag := make(AnyOf, 0, len(f.Tags))
		for _, t := range f.Tags {
			anyTag = append(anyTag, Contains("tags.value", t))
		}
		s.Joins = append(s.Joins, Join{Kind: InnerJoin, Table: "tags", On: All{
			ColumnEq{"prompts.id", "tags.prompt_id"},
			anyTag,
		}})
	}

	if f.Content != "" {
		s.Where = append(s.Where, Contains("prompt_values.value", f.Content))
	} else {
		s.Where = append(s.Where, Match("prompt_values.value"))
	}
	if f.ProjectID != 0 {
		s.Where = append(s.Where, Eq{"prompts.project_id", f.ProjectID})
	}
	if f.StyleID != 0 {
		s.Where = append(s.Where, Eq{"prompts.style_id", f.StyleID})
	}
	return s
}

// Search builds the paginated prompt search. Every row carries the prompt
// columns, preview key and value, all of the prompt's tags joined by
// TagSeparator, and total_results, the match count before pagination.
// f must already be normalized.
func Search(f core.SearchFilter) Select {
	inner := promptMatch(f, false)
	inner.Columns = []string{
		"prompts.id AS prompt_id",
		"prompts.project_id AS project_id",
		"prompts.style_id AS style_id",
		"prompts.created_at AS created_at",
		"prompt_values.key AS preview_key",
		"prompt_values.value AS preview_value",
	}

	return Select{
		With: &With{Name: "main_search", Select: inner},
		Columns: []string{
			"main_search.*",
			"GROUP_CONCAT(t.value, char(31)) AS tags",
			"COUNT(*) OVER () AS total_results",
		},
		From:    "main_search",
		Joins:   []Join{{Kind: LeftJoin, Table: "tags t", On: ColumnEq{"main_search.prompt_id", "t.prompt_id"}}},
		GroupBy: []string{"main_search.prompt_id"},
		OrderBy: []string{"main_search.prompt_id"},
		Limit:   f.Limit,
		Offset:  f.Offset,
	}
}

// Export builds the unpaginated candidate query for exports. Only prompts
// with at least one matching example are returned.
func Export(f core.SearchFilter) Select {
	s := promptMatch(f, true)
	s.Columns = []string{
		"prompts.id AS prompt_id",
		"prompts.project_id AS project_id",
		"prompts.style_id AS style_id",
		"prompts.created_at AS created_at",
		"styles.template AS template",
		"styles.completion_key AS completion_key",
	}
	s.OrderBy = []string{"prompts.id"}
	return s
}

// SplitTags splits an aggregated tags column.
func SplitTags(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return strings.Split(joined, TagSeparator)
}
