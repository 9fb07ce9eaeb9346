package models

// Record is one source row. Records loaded from the same table share a column
// set and column order; absent cells are distinguished from empty strings.
type Record struct {
	columns []string
	index   map[string]int
	values  []*string
}

// NewRecord builds a record over a shared header. values must have the same
// length as columns; nil entries are absent cells.
func NewRecord(columns []string, index map[string]int, values []*string) Record {
	return Record{
		columns: columns,
		index:   index,
		values:  values,
	}
}

// Columns returns the record's column names in header order.
func (r Record) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Get returns the value stored under column and whether it was present.
func (r Record) Get(column string) (string, bool) {
	i, ok := r.index[column]
	if !ok || i >= len(r.values) || r.values[i] == nil {
		return "", false
	}
	return *r.values[i], true
}

// Values returns the cells in header order, with "" for absent cells.
func (r Record) Values() []string {
	out := make([]string, len(r.values))
	for i, v := range r.values {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}

func (r Record) Len() int {
	return len(r.values)
}

// Table is the normalized output of a source adapter.
type Table struct {
	Origin  string   `json:"origin"`
	Columns []string `json:"columns"`
	Rows    []Record `json:"-"`
}

func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Entities returns the values of column for every row, in row order. Absent
// cells yield "".
func (t *Table) Entities(column string) ([]string, error) {
	if !t.HasColumn(column) {
		return nil, &Error{Kind: ErrUnknownColumn, Op: "select column " + column}
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i], _ = row.Get(column)
	}
	return out, nil
}

// Grid returns at most limit rows as string slices for previews. A limit <= 0
// returns every row.
func (t *Table) Grid(limit int) [][]string {
	n := len(t.Rows)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		out[i] = t.Rows[i].Values()
	}
	return out
}
