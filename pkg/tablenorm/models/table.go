package models

// NormalizedTable is a rectangular table with unique column names.
type NormalizedTable struct {
	// Name is the output sheet name.
	Name string `json:"name"`
	// Columns holds unique column names in order.
	Columns []string `json:"columns"`
	// Rows holds one record per row, aligned with Columns.
	Rows [][]any `json:"rows"`
}

// Column returns the values of the named column.
func (t *NormalizedTable) Column(name string) ([]any, bool) {
	for i, c := range t.Columns {
		if c == name {
			out := make([]any, len(t.Rows))
			for r, row := range t.Rows {
				out[r] = row[i]
			}
			return out, true
		}
	}
	return nil, false
}
