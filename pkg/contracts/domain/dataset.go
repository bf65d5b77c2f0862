package domain

import (
	"fmt"
	"strconv"
	"time"
)

// ValueKind identifies the concrete type held by a Value.
type ValueKind int

const (
	KindMissing ValueKind = iota
	KindFloat
	KindInt
	KindBool
	KindTime
	KindString
)

// String returns a human-readable name for the kind.
func (k ValueKind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a single typed cell. Raw preserves the original token as it
// appeared in the source file so exports can reproduce untouched cells
// byte-for-byte.
type Value struct {
	Kind  ValueKind `json:"kind"`
	Float float64   `json:"float,omitempty"`
	Int   int64     `json:"int,omitempty"`
	Bool  bool      `json:"bool,omitempty"`
	Time  time.Time `json:"time,omitempty"`
	Str   string    `json:"str,omitempty"`
	Raw   string    `json:"raw,omitempty"`
}

// Missing reports whether the cell holds no usable value.
func (v Value) Missing() bool {
	return v.Kind == KindMissing
}

// Number returns the cell as a float64. The second return is false for
// non-numeric cells.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Float, true
	case KindInt:
		return float64(v.Int), true
	default:
		return 0, false
	}
}

// Render formats the cell for export. Untouched cells render their raw
// token; synthesized cells (imputed values, narrowed integers) render
// from their typed payload.
func (v Value) Render() string {
	if v.Raw != "" {
		return v.Raw
	}
	switch v.Kind {
	case KindMissing:
		return ""
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindTime:
		return v.Time.Format("2006-01-02")
	case KindString:
		return v.Str
	default:
		return ""
	}
}

// MissingValue returns a missing cell.
func MissingValue() Value {
	return Value{Kind: KindMissing}
}

// FloatValue returns a float cell without a raw token.
func FloatValue(f float64) Value {
	return Value{Kind: KindFloat, Float: f}
}

// IntValue returns an integer cell without a raw token.
func IntValue(i int64) Value {
	return Value{Kind: KindInt, Int: i}
}

// StringValue returns a text cell without a raw token.
func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// Column is a named, homogeneous sequence of cells.
type Column struct {
	Name   string  `json:"name"`
	Values []Value `json:"values"`
}

// Table is an ordered collection of equally sized columns. Pipeline stages
// never mutate a Table they receive; they return a new one, so callers can
// hold the raw and cleaned snapshots side by side.
type Table struct {
	Columns []Column `json:"columns"`
}

// NumRows returns the row count. All columns share it by construction.
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// NumCols returns the column count.
func (t *Table) NumCols() int {
	return len(t.Columns)
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or an error if it does not exist.
func (t *Table) Column(name string) (*Column, error) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], nil
		}
	}
	return nil, fmt.Errorf("column %q not found", name)
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, err := t.Column(name)
	return err == nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		vals := make([]Value, len(c.Values))
		copy(vals, c.Values)
		out.Columns[i] = Column{Name: c.Name, Values: vals}
	}
	return out
}

// Row returns the rendered cells of a single row in column order.
func (t *Table) Row(i int) []string {
	row := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		row[j] = c.Values[i].Render()
	}
	return row
}
