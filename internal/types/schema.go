package types

import "fmt"

// Column names and types one field of a Schema.
type Column struct {
	Name string
	Kind Kind
}

// Schema is an ordered list of columns; Tuple values are positional
// against a Schema, never self-describing, matching the teacher's
// row/column separation in internal/storage (a Table's rows carry no
// per-cell type tag of their own).
type Schema struct {
	Columns []Column
}

// NewSchema builds a Schema from columns.
func NewSchema(columns ...Column) Schema { return Schema{Columns: columns} }

// ColumnCount returns the number of columns.
func (s Schema) ColumnCount() int { return len(s.Columns) }

// IndexOf returns the position of the named column, or -1.
func (s Schema) IndexOf(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Concat returns a new schema with other's columns appended, used to
// build a join's output schema from its two input schemas.
func (s Schema) Concat(other Schema) Schema {
	out := make([]Column, 0, len(s.Columns)+len(other.Columns))
	out = append(out, s.Columns...)
	out = append(out, other.Columns...)
	return Schema{Columns: out}
}

// Project returns the sub-schema for the given column indexes, in order,
// used to build an index's key schema from a table schema.
func (s Schema) Project(indexes []int) Schema {
	out := make([]Column, len(indexes))
	for i, idx := range indexes {
		if idx < 0 || idx >= len(s.Columns) {
			panic(fmt.Sprintf("types: column index %d out of range for schema of %d columns", idx, len(s.Columns)))
		}
		out[i] = s.Columns[idx]
	}
	return Schema{Columns: out}
}
