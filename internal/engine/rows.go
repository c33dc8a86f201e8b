package engine

import "database/sql"

// Rows wraps sql.Rows to provide a consistent interface across engines.
type Rows struct {
	*sql.Rows
}

// Collect drains the row set into ordered row-mappings and closes it.
// []byte cells are converted to strings so results render and marshal
// as text rather than base64.
func (r *Rows) Collect() ([]map[string]any, error) {
	defer func() { _ = r.Close() }()

	cols, err := r.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]any
	for r.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := r.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			val := values[i]
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			row[col] = val
		}
		results = append(results, row)
	}

	if err := r.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
