package engine

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // sqlite driver
)

func init() {
	Register("sqlite", func() Engine { return NewSQLite() })
}

// sqliteSourceTable is the backing table the CSV is loaded into. The
// configured view sits on top so queries look the same as with DuckDB.
const sqliteSourceTable = "tabscope_source"

// SQLite is a pure-Go fallback engine for CSV and TSV files. It loads the
// file into an in-memory SQLite table with inferred column affinities and
// exposes it through the configured view. Parquet and JSON need DuckDB.
type SQLite struct {
	db  *sql.DB
	cfg Config
}

// NewSQLite creates an unopened SQLite engine.
func NewSQLite() *SQLite {
	return &SQLite{}
}

// Name returns the registered engine name.
func (e *SQLite) Name() string { return "sqlite" }

// Open loads the file into an in-memory instance and creates the view.
func (e *SQLite) Open(ctx context.Context, cfg Config) error {
	header, records, err := readDelimited(cfg.Path)
	if err != nil {
		return err
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open sqlite: %w", err)
	}

	// The in-memory database is per-connection.
	db.SetMaxOpenConns(1)

	if err := loadTable(ctx, db, header, records); err != nil {
		_ = db.Close()
		return err
	}

	stmt := fmt.Sprintf("CREATE VIEW %s AS SELECT * FROM %s", cfg.ViewName(), sqliteSourceTable)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create view over %s: %w", cfg.Path, err)
	}

	e.db = db
	e.cfg = cfg
	return nil
}

// Query executes a SQL statement against the opened instance.
func (e *SQLite) Query(ctx context.Context, sqlStr string) (*Rows, error) {
	if e.db == nil {
		return nil, fmt.Errorf("engine not opened")
	}

	//nolint:rowserrcheck // rows.Err() is checked by Rows.Collect
	rows, err := e.db.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, err
	}
	return &Rows{Rows: rows}, nil
}

// Close releases the database handle.
func (e *SQLite) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// readDelimited parses a CSV or TSV file into a header and records.
func readDelimited(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		r.Comma = '\t'
	} else if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return nil, nil, fmt.Errorf("sqlite engine supports csv and tsv files only, got %s", filepath.Ext(path))
	}

	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("file %s is empty", path)
	}

	return all[0], all[1:], nil
}

// loadTable creates the source table with inferred column affinities and
// bulk-inserts the records inside one transaction.
func loadTable(ctx context.Context, db *sql.DB, header []string, records [][]string) error {
	defs := make([]string, len(header))
	placeholders := make([]string, len(header))
	for i, name := range header {
		defs[i] = fmt.Sprintf("%s %s", quoteIdent(name), inferAffinity(records, i))
		placeholders[i] = "?"
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)", sqliteSourceTable, strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create source table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin load transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", sqliteSourceTable, strings.Join(placeholders, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, record := range records {
		values := make([]any, len(header))
		for i := range header {
			if i < len(record) {
				values[i] = cellValue(record[i])
			}
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	return tx.Commit()
}

// inferAffinity picks a column affinity by sampling every value in the
// column: INTEGER if all parse as integers, REAL if all parse as numbers,
// TEXT otherwise. Empty cells are treated as NULL and don't vote.
func inferAffinity(records [][]string, col int) string {
	affinity := "INTEGER"
	seen := false
	for _, record := range records {
		if col >= len(record) || record[col] == "" {
			continue
		}
		seen = true
		v := record[col]
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			affinity = "REAL"
			continue
		}
		return "TEXT"
	}
	if !seen {
		return "TEXT"
	}
	return affinity
}

// cellValue converts a raw cell to the value inserted: empty becomes NULL,
// numerics become typed values so SQLite stores them with the column's
// affinity, everything else stays a string.
func cellValue(raw string) any {
	if raw == "" {
		return nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// quoteIdent quotes a column name for use in DDL.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var _ Engine = (*SQLite)(nil)
