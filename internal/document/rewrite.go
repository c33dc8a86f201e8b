package document

import (
	"fmt"
	"strings"
)

// BoundedStatement rewrites a statement for paged execution. Statements
// beginning with "describe" run verbatim: paging a schema introspection
// makes no sense. Everything else is wrapped as a subquery with LIMIT and
// OFFSET applied.
//
// Semicolons are stripped from the wrapped statement as a best-effort
// guard against chaining extra statements into the wrapper. This is not a
// parser: it removes every semicolon, including ones inside string
// literals, which is a known limitation.
func BoundedStatement(sql string, limit, offset int) string {
	trimmed := strings.TrimSpace(sql)
	if len(trimmed) >= len("describe") && strings.EqualFold(trimmed[:len("describe")], "describe") {
		return sql
	}

	stripped := strings.ReplaceAll(sql, ";", "")
	return fmt.Sprintf("SELECT * FROM (%s) LIMIT %d OFFSET %d", stripped, limit, offset)
}

// CleanRows converts 64-bit integer cells to float64 so the JSON channel
// to the UI never carries integers it cannot represent. Precision loss
// above 2^53 is the accepted tradeoff; other values pass through
// unchanged. Rows are modified in place and returned for convenience.
func CleanRows(rows []map[string]any) []map[string]any {
	for _, row := range rows {
		for col, val := range row {
			switch v := val.(type) {
			case int64:
				row[col] = float64(v)
			case uint64:
				row[col] = float64(v)
			}
		}
	}
	return rows
}
