package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/promptbank/internal/core"
)

// scanRows converts every remaining row into an ordered column mapping.
func scanRows(rows *sql.Rows) ([]core.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var out []core.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := core.NewRow(len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if isTimeColumn(col) {
				if t, ok := parseTime(v); ok {
					v = t
				}
			}
			row.Set(col, v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

func isTimeColumn(col string) bool {
	return strings.HasSuffix(col, "_at")
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	case int64:
		return time.Unix(t, 0).UTC(), true
	}
	return time.Time{}, false
}

// timestamp scans DATETIME columns whether the driver hands back a time or
// its text form.
type timestamp struct {
	Time time.Time
}

// Scan implements sql.Scanner.
func (ts *timestamp) Scan(src any) error {
	if src == nil {
		ts.Time = time.Time{}
		return nil
	}
	if b, ok := src.([]byte); ok {
		src = string(b)
	}
	t, ok := parseTime(src)
	if !ok {
		return fmt.Errorf("unsupported timestamp value %v (%T)", src, src)
	}
	ts.Time = t
	return nil
}
