package schema

// Column describes one column of a relational table as reported by the
// engine catalog.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
	IsPK     bool   `json:"primaryKey"`
}

// Names returns the column names in catalog order.
func Names(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
