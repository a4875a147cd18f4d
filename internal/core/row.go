package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Row is an ordered mapping from column name to value.
// Column order is preserved when encoding to JSON.
type Row struct {
	columns []string
	values  map[string]any
}

// NewRow creates an empty row with capacity for n columns.
func NewRow(n int) Row {
	return Row{
		columns: make([]string, 0, n),
		values:  make(map[string]any, n),
	}
}

// Set stores a value. A repeated column keeps its first position.
func (r *Row) Set(column string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
}

// Get returns the value stored under column.
func (r Row) Get(column string) (any, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Columns returns the column names in insertion order.
func (r Row) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.columns)
}

// String returns the column as text. Missing and NULL columns are "".
func (r Row) String(column string) string {
	switch v := r.values[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns the column as an integer, or 0 when it is not numeric.
func (r Row) Int64(column string) int64 {
	switch v := r.values[column].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Time returns the column as a time, or the zero time.
func (r Row) Time(column string) time.Time {
	if v, ok := r.values[column].(time.Time); ok {
		return v
	}
	return time.Time{}
}

// MarshalJSON encodes the row as an object in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[col])
		if err != nil {
			return nil, fmt.Errorf("encoding column %s: %w", col, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
