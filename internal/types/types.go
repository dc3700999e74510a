// =============================================================================
// Report Consolidator - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - reportstore
//   - validation
//   - export
//   - server
//
// =============================================================================

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// =============================================================================
// ROW TYPES
// =============================================================================

// Field is a single key/value cell of a Row.
type Field struct {
	Key   string
	Value any
}

// Row is one record of a report table. Keys keep the order they had in the
// source document, which is also the default column order on export.
//
// On the wire a Row is a plain JSON object.
type Row []Field

// NewRow builds a Row from alternating key/value arguments.
// A trailing key without a value is ignored.
func NewRow(kv ...any) Row {
	row := make(Row, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		row = row.Set(key, kv[i+1])
	}
	return row
}

// Get returns the value stored under key.
func (r Row) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Has reports whether the row carries key.
func (r Row) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Set replaces the value for key in place or appends a new field.
func (r Row) Set(key string, value any) Row {
	for i := range r {
		if r[i].Key == key {
			r[i].Value = value
			return r
		}
	}
	return append(r, Field{Key: key, Value: value})
}

// Keys returns the row keys in order.
func (r Row) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// MarshalJSON encodes the row as a JSON object preserving key order.
func (r Row) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the row preserving key order.
func (r *Row) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row must be a JSON object")
	}

	row := Row{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("row key must be a string")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		row = row.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = row
	return nil
}

// =============================================================================
// REPORT TYPES
// =============================================================================

// Report is one table destined for the consolidated export.
type Report struct {
	// DF holds the table rows.
	DF []Row `json:"df"`

	// Title is the slide/sheet heading. Must be non-empty.
	Title string `json:"title"`

	// PercentCols lists column indices rendered as percentages.
	PercentCols []int `json:"percent_cols"`

	// Columns optionally fixes the column order.
	Columns []string `json:"columns,omitempty"`
}

// ColumnOrder returns the explicit column list when one is set, otherwise
// the union of row keys in first-seen order.
func (r Report) ColumnOrder() []string {
	if len(r.Columns) > 0 {
		return r.Columns
	}

	seen := make(map[string]bool)
	var cols []string
	for _, row := range r.DF {
		for _, f := range row {
			if !seen[f.Key] {
				seen[f.Key] = true
				cols = append(cols, f.Key)
			}
		}
	}
	return cols
}

// FlatReport is a Report tagged with the category it was stored under.
type FlatReport struct {
	Report
	Category string `json:"category"`
}
