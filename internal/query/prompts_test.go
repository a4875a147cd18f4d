package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

func TestNormalize(t *testing.T) {
	f := Normalize(core.SearchFilter{Offset: -3, Tags: []string{" a ", "", "  "}}, 0)
	assert.Equal(t, DefaultLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, []string{"a"}, f.Tags)

	f = Normalize(core.SearchFilter{Limit: 7, Offset: 2}, 50)
	assert.Equal(t, 7, f.Limit)
	assert.Equal(t, 2, f.Offset)

	f = Normalize(core.SearchFilter{}, 50)
	assert.Equal(t, 50, f.Limit)
}

func TestSearch_NoFilters(t *testing.T) {
	sql, args := Search(Normalize(core.SearchFilter{}, 0)).Build()

	assert.Contains(t, sql, "LEFT JOIN examples ON (prompts.id = examples.prompt_id) AND (examples.completion LIKE ?)")
	assert.NotContains(t, sql, "JOIN tags ON")
	assert.NotContains(t, sql, "prompts.project_id = ?")
	assert.Contains(t, sql, "COUNT(*) OVER () AS total_results")
	assert.Equal(t, []any{"%", "%", DefaultLimit, 0}, args)
}

func TestSearch_AllFilters(t *testing.T) {
	f := Normalize(core.SearchFilter{
		Content:   "capital",
		Example:   "paris",
		Tags:      []string{"geo", "europe"},
		ProjectID: 3,
		StyleID:   9,
		Limit:     25,
		Offset:    50,
	}, 0)
	sql, args := Search(f).Build()

	assert.True(t, strings.HasPrefix(sql, "WITH main_search AS (SELECT DISTINCT "))
	assert.Contains(t, sql, " JOIN examples ON (prompts.id = examples.prompt_id) AND (examples.completion LIKE ?)")
	assert.NotContains(t, sql, "LEFT JOIN examples")
	assert.Contains(t, sql, "JOIN tags ON (prompts.id = tags.prompt_id) AND ((tags.value LIKE ?) OR (tags.value LIKE ?))")
	assert.Contains(t, sql, "(prompts.project_id = ?) AND (prompts.style_id = ?)")
	assert.Equal(t, []any{"%paris%", "%geo%", "%europe%", "%capital%", int64(3), int64(9), 25, 50}, args)
}

func TestExport_RequiresExample(t *testing.T) {
	sql, args := Export(core.SearchFilter{}).Build()

	require.NotContains(t, sql, "LEFT JOIN")
	assert.Contains(t, sql, "JOIN examples ON")
	assert.Contains(t, sql, "styles.template AS template")
	assert.NotContains(t, sql, "LIMIT")
	assert.Equal(t, []any{"%", "%"}, args)
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{}, SplitTags(""))
	assert.Equal(t, []string{"a,b", "c"}, SplitTags("a,b"+TagSeparator+"c"))
}
