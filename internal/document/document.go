// Package document implements the document model: one open data file, one
// embedded engine handle, and the query/paging operations the viewer UI
// issues against it.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tabscope-labs/tabscope/internal/engine"
	"github.com/tabscope-labs/tabscope/internal/protocol"
)

// Config holds what a document needs to open.
type Config struct {
	// URI identifies the document to the provider and the UI.
	URI string

	// Path is the file the engine is scoped to. When the document is
	// recovered from a backup this differs from the URI.
	Path string

	// Engine is the registered engine name. Empty means "duckdb".
	Engine string

	// View overrides the view name exposed over the file.
	View string

	Logger *slog.Logger
}

// Document owns query execution against one file. It holds exactly one
// engine handle for its whole lifetime; the handle is released by Dispose.
// Queries racing Dispose get whatever the driver gives them — the document
// adds no guard, matching the host-caller contract.
type Document struct {
	uri    string
	view   string
	eng    engine.Engine
	logger *slog.Logger

	mu        sync.Mutex
	listeners []func()
	disposed  bool
}

// Open creates the engine instance for the file and returns the document.
func Open(ctx context.Context, cfg Config) (*Document, error) {
	name := cfg.Engine
	if name == "" {
		name = "duckdb"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	eng, err := engine.New(name)
	if err != nil {
		return nil, err
	}

	engCfg := engine.Config{Path: cfg.Path, View: cfg.View}
	if err := eng.Open(ctx, engCfg); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Path, err)
	}

	logger.Debug("document opened", "uri", cfg.URI, "path", cfg.Path, "engine", name)

	return &Document{
		uri:    cfg.URI,
		view:   engCfg.ViewName(),
		eng:    eng,
		logger: logger,
	}, nil
}

// URI returns the document's identity.
func (d *Document) URI() string { return d.uri }

// View returns the name of the view exposed over the file.
func (d *Document) View() string { return d.view }

// EngineName returns the name of the engine backing the document.
func (d *Document) EngineName() string { return d.eng.Name() }

// RunQuery validates the statement, then executes its bounded form at
// offset 0. Validation failures short-circuit: the bounded execution never
// runs and the response carries the engine's error text.
func (d *Document) RunQuery(ctx context.Context, sql string, limit int) *protocol.Response {
	if err := d.validate(ctx, sql); err != nil {
		d.logger.Debug("query validation failed", "uri", d.uri, "error", err)
		return protocol.Failure(protocol.KindQuery, err)
	}

	rows, err := d.execute(ctx, sql, limit, 0)
	if err != nil {
		return protocol.Failure(protocol.KindQuery, err)
	}
	return protocol.Successful(protocol.KindQuery, rows)
}

// FetchMore executes the bounded form of a previously validated statement
// at the given offset. No validation pass: the statement already proved
// itself on the first run.
func (d *Document) FetchMore(ctx context.Context, sql string, limit, offset int) *protocol.Response {
	rows, err := d.execute(ctx, sql, limit, offset)
	if err != nil {
		return protocol.Failure(protocol.KindMore, err)
	}
	return protocol.Successful(protocol.KindMore, rows)
}

// Schema returns the columns of the view for the UI sidebar.
func (d *Document) Schema(ctx context.Context) ([]map[string]any, error) {
	stmt := "DESCRIBE " + d.view
	if d.eng.Name() == "sqlite" {
		stmt = fmt.Sprintf("SELECT name AS column_name, type AS column_type FROM pragma_table_info('%s')", d.view)
	}

	rows, err := d.eng.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return rows.Collect()
}

// OnDispose registers a listener notified when the document is disposed.
func (d *Document) OnDispose(fn func()) {
	d.mu.Lock()
	d.listeners = append(d.listeners, fn)
	d.mu.Unlock()
}

// Disposed reports whether Dispose has been called.
func (d *Document) Disposed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disposed
}

// Dispose releases the engine handle and notifies listeners. Listeners
// fire on every call — there is no idempotence guard, so a double dispose
// notifies twice. Closing does not abort in-flight queries.
func (d *Document) Dispose() error {
	d.mu.Lock()
	d.disposed = true
	listeners := make([]func(), len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.Unlock()

	err := d.eng.Close()

	for _, fn := range listeners {
		fn()
	}

	d.logger.Debug("document disposed", "uri", d.uri)
	return err
}

// validate runs a non-materializing explain pass over the raw statement
// to surface syntax and binding errors before committing to execution.
func (d *Document) validate(ctx context.Context, sql string) error {
	rows, err := d.eng.Query(ctx, "EXPLAIN "+sql)
	if err != nil {
		return err
	}
	_, err = rows.Collect()
	return err
}

// execute runs the bounded form of the statement and cleans the rows.
func (d *Document) execute(ctx context.Context, sql string, limit, offset int) ([]map[string]any, error) {
	stmt := BoundedStatement(sql, limit, offset)

	rows, err := d.eng.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}

	results, err := rows.Collect()
	if err != nil {
		return nil, err
	}
	return CleanRows(results), nil
}
