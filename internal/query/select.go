package query

import (
	"strconv"
	"strings"
)

// JoinKind selects inner or left outer join.
type JoinKind string

const (
	InnerJoin JoinKind = "JOIN"
	LeftJoin  JoinKind = "LEFT JOIN"
)

// Join adds a table to a Select.
type Join struct {
	Kind  JoinKind
	Table string
	On    Predicate
}

// Select is a single SELECT statement, optionally preceded by one CTE.
type Select struct {
	With     *With
	Distinct bool
	Columns  []string
	From     string
	Joins    []Join
	Where    All
	GroupBy  []string
	OrderBy  []string
	Limit    int
	Offset   int
}

// With names a sub-select used as a common table expression.
type With struct {
	Name   string
	Select Select
}

// Build renders the statement and its arguments in textual order.
// Limit and Offset are emitted only when Limit is positive.
func (s Select) Build() (string, []any) {
	var b strings.Builder
	var args []any

	if s.With != nil {
		inner, innerArgs := s.With.Select.Build()
		b.WriteString("WITH ")
		b.WriteString(s.With.Name)
		b.WriteString(" AS (")
		b.WriteString(inner)
		b.WriteString(") ")
		args = append(args, innerArgs...)
	}

	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.Columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(s.Columns, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(s.From)

	for _, j := range s.Joins {
		b.WriteString(" ")
		b.WriteString(string(j.Kind))
		b.WriteString(" ")
		b.WriteString(j.Table)
		if j.On != nil {
			on, onArgs := j.On.SQL()
			b.WriteString(" ON ")
			b.WriteString(on)
			args = append(args, onArgs...)
		}
	}

	if len(s.Where) > 0 {
		where, whereArgs := s.Where.SQL()
		b.WriteString(" WHERE ")
		b.WriteString(where)
		args = append(args, whereArgs...)
	}

	if len(s.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(s.GroupBy, ", "))
	}
	if len(s.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(s.OrderBy, ", "))
	}
	if s.Limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, s.Limit, s.Offset)
	}

	return b.String(), args
}

// String renders the statement without arguments, for logging.
func (s Select) String() string {
	sql, args := s.Build()
	return sql + " -- " + strconv.Itoa(len(args)) + " args"
}
