// Package viewer renders the SQL viewer surface for one open document and
// relays protocol messages between the page and the document.
package viewer

import "fmt"

// Column is one entry in the schema sidebar.
type Column struct {
	Name string
	Type string
}

// pageData feeds the viewer page template.
type pageData struct {
	FileName   string
	Nonce      string
	Limit      int
	InitialSQL string
}

// columnsFromRows converts engine schema rows into sidebar columns. Both
// DuckDB's DESCRIBE and the SQLite pragma projection use the
// column_name/column_type keys.
func columnsFromRows(rows []map[string]any) []Column {
	cols := make([]Column, 0, len(rows))
	for _, row := range rows {
		cols = append(cols, Column{
			Name: stringify(row["column_name"]),
			Type: stringify(row["column_type"]),
		})
	}
	return cols
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
