// Package record holds the in-memory tabular container shared by the
// fetcher, the insight rules, and the export sinks.
package record

import (
	"fmt"
	"strings"
)

// Column describes one column of a Table. The schema is fixed when the
// table is created and never changes with row contents.
type Column struct {
	Name         string
	DatabaseType string
	Nullable     bool
}

// Row is a single record. Values are nil for SQL NULL.
type Row []interface{}

// Table is an ordered set of rows sharing one column schema.
//
// Tables are treated as immutable once built: rule components read them
// and return new tables. Derived tables may share Row values with their
// source, so callers must not mutate rows in place.
type Table struct {
	Columns []Column
	Rows    []Row

	index map[string]int
}

// NewTable creates an empty table with the given columns
func NewTable(columns ...Column) *Table {
	cols := make([]Column, len(columns))
	copy(cols, columns)

	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := index[c.Name]; !dup {
			index[c.Name] = i
		}
	}

	return &Table{Columns: cols, Rows: []Row{}, index: index}
}

// NewTableFromNames creates an empty table of nullable, untyped columns
func NewTableFromNames(names ...string) *Table {
	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = Column{Name: name, Nullable: true}
	}
	return NewTable(cols...)
}

// Empty returns a zero-column, zero-row table
func Empty() *Table {
	return NewTable()
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Width returns the number of columns
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Shape returns (rows, columns)
func (t *Table) Shape() (int, int) {
	return t.Len(), t.Width()
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t == nil {
		return 0, false
	}
	i, ok := t.index[name]
	return i, ok
}

// HasColumn reports whether the table has the named column
func (t *Table) HasColumn(name string) bool {
	_, ok := t.ColumnIndex(name)
	return ok
}

// Column returns the named column's metadata
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.ColumnIndex(name)
	if !ok {
		return Column{}, false
	}
	return t.Columns[i], true
}

// Append adds rows to the table. Each row must match the table width.
func (t *Table) Append(rows ...Row) error {
	for _, r := range rows {
		if len(r) != len(t.Columns) {
			return fmt.Errorf("row has %d values, table has %d columns", len(r), len(t.Columns))
		}
	}
	t.Rows = append(t.Rows, rows...)
	return nil
}

// Value returns the value of column name in row i, or nil if absent
func (t *Table) Value(i int, name string) interface{} {
	c, ok := t.ColumnIndex(name)
	if !ok || i < 0 || i >= len(t.Rows) {
		return nil
	}
	return t.Rows[i][c]
}

// Map returns row i as a column-name keyed map
func (t *Table) Map(i int) map[string]interface{} {
	m := make(map[string]interface{}, len(t.Columns))
	for c, col := range t.Columns {
		m[col.Name] = t.Rows[i][c]
	}
	return m
}

// Take returns a new table with the rows at the given indices, in that order
func (t *Table) Take(indices []int) *Table {
	out := NewTable(t.Columns...)
	out.Rows = make([]Row, 0, len(indices))
	for _, i := range indices {
		out.Rows = append(out.Rows, t.Rows[i])
	}
	return out
}

// Filter returns a new table with the rows for which keep returns true
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := NewTable(t.Columns...)
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Project returns a new table restricted to the named columns
func (t *Table) Project(names ...string) (*Table, error) {
	cols := make([]Column, len(names))
	idx := make([]int, len(names))
	for i, name := range names {
		c, ok := t.ColumnIndex(name)
		if !ok {
			return nil, fmt.Errorf("column %q not found", name)
		}
		cols[i] = t.Columns[c]
		idx[i] = c
	}

	out := NewTable(cols...)
	out.Rows = make([]Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		pr := make(Row, len(idx))
		for i, c := range idx {
			pr[i] = r[c]
		}
		out.Rows = append(out.Rows, pr)
	}
	return out, nil
}

// Distinct returns a new table keeping the first occurrence of each row
func (t *Table) Distinct() *Table {
	out := NewTable(t.Columns...)
	seen := make(map[string]struct{}, len(t.Rows))
	for _, r := range t.Rows {
		k := RowKey(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out.Rows = append(out.Rows, r)
	}
	return out
}

// WithColumn returns an empty table with col appended to the schema
func (t *Table) WithColumn(col Column) *Table {
	cols := make([]Column, 0, len(t.Columns)+1)
	cols = append(cols, t.Columns...)
	cols = append(cols, col)
	return NewTable(cols...)
}

// Union concatenates tables, aligning columns by name. The result has the
// columns of the first table followed by any new columns from later ones,
// in first-seen order. Values for columns a table lacks are nil.
func Union(tables ...*Table) *Table {
	var cols []Column
	seen := make(map[string]int)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if i, ok := seen[c.Name]; ok {
				cols[i].Nullable = cols[i].Nullable || c.Nullable
				continue
			}
			seen[c.Name] = len(cols)
			cols = append(cols, c)
		}
	}

	out := NewTable(cols...)
	for _, t := range tables {
		if t == nil {
			continue
		}
		mapping := make([]int, len(t.Columns))
		complete := len(t.Columns) == len(cols)
		for i, c := range t.Columns {
			mapping[i] = seen[c.Name]
			if mapping[i] != i {
				complete = false
			}
		}
		if !complete {
			for i := range out.Columns {
				if !t.HasColumn(out.Columns[i].Name) {
					out.Columns[i].Nullable = true
				}
			}
		}
		for _, r := range t.Rows {
			if complete {
				out.Rows = append(out.Rows, r)
				continue
			}
			ur := make(Row, len(cols))
			for i, v := range r {
				ur[mapping[i]] = v
			}
			out.Rows = append(out.Rows, ur)
		}
	}
	return out
}

// String renders a short description of the table
func (t *Table) String() string {
	rows, cols := t.Shape()
	return fmt.Sprintf("Table(%d rows x %d columns: %s)", rows, cols, strings.Join(t.ColumnNames(), ", "))
}
