package extract

// Table is an in-memory tabular result set: an ordered column list with
// row-aligned values. Cell values are string, int64, float64, bool,
// time.Time or nil. A Table is produced once per extraction call and
// never mutated by the extractor that produced it; transformations
// build new Tables.
type Table struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether the table contains the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}
