// Package engine provides the tabular query engine capability behind the
// document model: open a read-only view over a data file, execute SQL
// against it. Implementations register themselves by name so the engine
// backing a document is selectable through configuration.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultView is the name of the view every engine exposes over the
// opened file. All queries issued by the UI refer to it.
const DefaultView = "data"

// Config holds what an engine needs to open a file.
type Config struct {
	// Path is the data file the engine scopes itself to.
	Path string

	// View is the name of the read-only view created over the file.
	// Empty means DefaultView.
	View string

	// Options contains engine-specific settings.
	Options map[string]string
}

// ViewName returns the configured view name or the default.
func (c Config) ViewName() string {
	if c.View == "" {
		return DefaultView
	}
	return c.View
}

// Engine is an embedded analytical engine scoped to a single file.
// Open must be called exactly once before Query; Close releases the
// underlying handle. Implementations delegate statement safety to their
// database/sql driver.
type Engine interface {
	// Open creates the in-process database instance and the read-only
	// view over the configured file.
	Open(ctx context.Context, cfg Config) error

	// Query executes a SQL statement and returns its rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// Close releases the database handle.
	Close() error

	// Name returns the engine's registered name.
	Name() string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Engine)
)

// Register makes an engine factory available under the given name.
// Called from implementation init functions.
func Register(name string, factory func() Engine) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = factory
}

// IsRegistered reports whether an engine name is known.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[strings.ToLower(name)]
	return ok
}

// List returns the registered engine names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates an engine instance by name.
func New(name string) (Engine, error) {
	registryMu.RLock()
	factory, ok := registry[strings.ToLower(name)]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownEngineError{Name: name, Available: List()}
	}
	return factory(), nil
}

// UnknownEngineError is returned when no engine is registered under the
// requested name.
type UnknownEngineError struct {
	Name      string
	Available []string
}

func (e *UnknownEngineError) Error() string {
	return fmt.Sprintf("unknown engine %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}
