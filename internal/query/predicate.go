// Package query composes parameterized SQL from typed predicates.
//
// Identifiers (tables, columns) come from code; user-supplied values only
// ever travel as positional "?" arguments.
package query

import "strings"

// Predicate renders a boolean SQL expression and its arguments.
type Predicate interface {
	SQL() (string, []any)
}

// Eq matches Column = Value.
type Eq struct {
	Column string
	Value  any
}

// SQL implements Predicate.
func (p Eq) SQL() (string, []any) {
	return p.Column + " = ?", []any{p.Value}
}

// ColumnEq matches two columns against each other.
type ColumnEq struct {
	Left  string
	Right string
}

// SQL implements Predicate.
func (p ColumnEq) SQL() (string, []any) {
	return p.Left + " = " + p.Right, nil
}

// Like matches Column LIKE Pattern. SQLite folds case for ASCII letters
// only, so "Über" does not match "über".
type Like struct {
	Column  string
	Pattern string
}

// SQL implements Predicate.
func (p Like) SQL() (string, []any) {
	return p.Column + " LIKE ?", []any{p.Pattern}
}

// Contains matches rows whose column contains substr anywhere.
func Contains(column, substr string) Like {
	return Like{Column: column, Pattern: "%" + substr + "%"}
}

// Match is the wildcard condition used in place of an absent substring
// filter. It excludes NULL values like any LIKE does.
func Match(column string) Like {
	return Like{Column: column, Pattern: "%"}
}

// AnyOf is true when at least one member is true.
type AnyOf []Predicate

// SQL implements Predicate.
func (p AnyOf) SQL() (string, []any) {
	return group(p, " OR ")
}

// All is true when every member is true.
type All []Predicate

// SQL implements Predicate.
func (p All) SQL() (string, []any) {
	return group(p, " AND ")
}

func group(members []Predicate, sep string) (string, []any) {
	switch len(members) {
	case 0:
		// Empty groups never filter anything out.
		return "1 = 1", nil
	case 1:
		return members[0].SQL()
	}
	parts := make([]string, 0, len(members))
	var args []any
	for _, m := range members {
		s, a := m.SQL()
		parts = append(parts, "("+s+")")
		args = append(args, a...)
	}
	return strings.Join(parts, sep), args
}
