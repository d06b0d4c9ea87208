package model

import "slices"

// Record is a single row keyed by column name. A field that is missing from
// the map or holds "" is absent.
type Record map[string]string

// Get returns the value of col, or "" when absent.
func (r Record) Get(col string) string {
	return r[col]
}

// Present reports whether col holds a non-empty value.
func (r Record) Present(col string) bool {
	return r[col] != ""
}

// Clone returns a shallow copy of the record with absent fields removed.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Table is an ordered set of columns plus its rows. Column order is the
// order cells are written in; row values are addressed by name.
type Table struct {
	Columns []string
	Rows    []Record
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether col is part of the schema.
func (t *Table) HasColumn(col string) bool {
	return slices.Contains(t.Columns, col)
}

// AddColumn appends col to the schema if it is not already there. Existing
// rows are left absent for the new column. Returns true if the column was added.
func (t *Table) AddColumn(col string) bool {
	if t.HasColumn(col) {
		return false
	}
	t.Columns = append(t.Columns, col)
	return true
}

// DropColumn removes col from the schema and from every row.
func (t *Table) DropColumn(col string) {
	idx := slices.Index(t.Columns, col)
	if idx < 0 {
		return
	}
	t.Columns = slices.Delete(t.Columns, idx, idx+1)
	for _, row := range t.Rows {
		delete(row, col)
	}
}

// Append adds a copy of rec as a new row and returns its index. Fields that
// are not part of the schema are kept on the row but not written out until
// the column is added.
func (t *Table) Append(rec Record) int {
	t.Rows = append(t.Rows, rec.Clone())
	return len(t.Rows) - 1
}

// Find returns the index of the first row whose col equals value, or -1.
// Absent values never match.
func (t *Table) Find(col, value string) int {
	if value == "" {
		return -1
	}
	for i, row := range t.Rows {
		if row[col] == value {
			return i
		}
	}
	return -1
}

// Values returns the row's cells in column order.
func (t *Table) Values(i int) []string {
	out := make([]string, len(t.Columns))
	for j, col := range t.Columns {
		out[j] = t.Rows[i][col]
	}
	return out
}
