package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicates(t *testing.T) {
	tests := []struct {
		name     string
		pred     Predicate
		wantSQL  string
		wantArgs []any
	}{
		{"eq", Eq{"a.x", 3}, "a.x = ?", []any{3}},
		{"column eq", ColumnEq{"a.id", "b.a_id"}, "a.id = b.a_id", nil},
		{"contains", Contains("v", "foo"), "v LIKE ?", []any{"%foo%"}},
		{"match", Match("v"), "v LIKE ?", []any{"%"}},
		{"any of", AnyOf{Contains("t", "a"), Contains("t", "b")}, "(t LIKE ?) OR (t LIKE ?)", []any{"%a%", "%b%"}},
		{"all single", All{Eq{"x", 1}}, "x = ?", []any{1}},
		{"empty group", All{}, "1 = 1", nil},
		{
			"nested",
			All{ColumnEq{"p.id", "t.p_id"}, AnyOf{Contains("t.v", "x"), Contains("t.v", "y")}},
			"(p.id = t.p_id) AND ((t.v LIKE ?) OR (t.v LIKE ?))",
			[]any{"%x%", "%y%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.pred.SQL()
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestContains_ValueNeverInSQL(t *testing.T) {
	sql, args := Contains("v", "'; DROP TABLE prompts; --").SQL()
	assert.Equal(t, "v LIKE ?", sql)
	assert.Equal(t, []any{"%'; DROP TABLE prompts; --%"}, args)
}

func TestSelect_Build(t *testing.T) {
	s := Select{
		Distinct: true,
		Columns:  []string{"a.id"},
		From:     "a",
		Joins:    []Join{{Kind: LeftJoin, Table: "b", On: All{ColumnEq{"a.id", "b.a_id"}, Contains("b.v", "q")}}},
		Where:    All{Eq{"a.kind", "k"}},
		GroupBy:  []string{"a.id"},
		OrderBy:  []string{"a.id"},
		Limit:    10,
		Offset:   20,
	}
	sql, args := s.Build()
	assert.Equal(t,
		"SELECT DISTINCT a.id FROM a LEFT JOIN b ON (a.id = b.a_id) AND (b.v LIKE ?) WHERE a.kind = ? GROUP BY a.id ORDER BY a.id LIMIT ? OFFSET ?",
		sql)
	assert.Equal(t, []any{"%q%", "k", 10, 20}, args)
}

func TestSelect_BuildWithCTE(t *testing.T) {
	s := Select{
		With:    &With{Name: "w", Select: Select{Columns: []string{"id"}, From: "a", Where: All{Eq{"id", 1}}}},
		From:    "w",
		Limit:   5,
		Columns: []string{"w.*"},
	}
	sql, args := s.Build()
	assert.Equal(t, "WITH w AS (SELECT id FROM a WHERE id = ?) SELECT w.* FROM w LIMIT ? OFFSET ?", sql)
	assert.Equal(t, []any{1, 5, 0}, args)
}

func TestSelect_String(t *testing.T) {
	s := Select{From: "a", Where: All{Eq{"x", 1}}}
	assert.Equal(t, "SELECT * FROM a WHERE x = ? -- 1 args", s.String())
}
