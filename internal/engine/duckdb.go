package engine

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register("duckdb", func() Engine { return NewDuckDB() })
}

// DuckDB is the default engine. It opens an in-memory DuckDB instance and
// scopes it to the file through a view over the matching read_* table
// function.
type DuckDB struct {
	db  *sql.DB
	cfg Config
}

// NewDuckDB creates an unopened DuckDB engine.
func NewDuckDB() *DuckDB {
	return &DuckDB{}
}

// Name returns the registered engine name.
func (e *DuckDB) Name() string { return "duckdb" }

// Open creates the in-memory instance and the read-only view over the file.
func (e *DuckDB) Open(ctx context.Context, cfg Config) error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("failed to open duckdb: %w", err)
	}

	// Session settings and views don't propagate across pooled
	// connections, so constrain to a single one.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	relation, err := duckdbRelation(cfg.Path)
	if err != nil {
		_ = db.Close()
		return err
	}

	stmt := fmt.Sprintf("CREATE VIEW %s AS SELECT * FROM %s", cfg.ViewName(), relation)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create view over %s: %w", cfg.Path, err)
	}

	e.db = db
	e.cfg = cfg
	return nil
}

// Query executes a SQL statement against the opened instance.
func (e *DuckDB) Query(ctx context.Context, sqlStr string) (*Rows, error) {
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
func (e *DuckDB) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// duckdbRelation maps a file to the DuckDB table function that reads it.
func duckdbRelation(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	// Escape single quotes so the path can't break out of the literal.
	escaped := strings.ReplaceAll(abs, "'", "''")

	switch strings.ToLower(filepath.Ext(abs)) {
	case ".parquet", ".pq":
		return fmt.Sprintf("read_parquet('%s')", escaped), nil
	case ".csv", ".tsv":
		return fmt.Sprintf("read_csv_auto('%s', header=true)", escaped), nil
	case ".json", ".jsonl", ".ndjson":
		return fmt.Sprintf("read_json_auto('%s')", escaped), nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(abs))
	}
}

var _ Engine = (*DuckDB)(nil)
