// Package provider bridges the host surface to documents: it opens a
// document per file, tracks the open set, and relays protocol messages
// between the UI and the right document.
package provider

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/tabscope-labs/tabscope/internal/document"
	"github.com/tabscope-labs/tabscope/internal/protocol"
)

// Config holds provider-wide settings shared by all documents it opens.
type Config struct {
	// Engine is the registered engine name used for new documents.
	Engine string

	// BackupDir is where backup identifiers resolve to files.
	BackupDir string

	Logger *slog.Logger
}

// Info describes one open document.
type Info struct {
	ID     string
	URI    string
	Engine string
}

type openDocument struct {
	id  string
	doc *document.Document
}

// Provider manages the open documents, keyed by URI.
type Provider struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.RWMutex
	documents map[string]*openDocument
}

// New creates a Provider.
func New(cfg Config) *Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		cfg:       cfg,
		logger:    logger,
		documents: make(map[string]*openDocument),
	}
}

// Open creates a document for the file. A non-empty backupID makes the
// document open over the backup's location instead of the original, while
// keeping the original URI as its identity. The document is dropped from
// the open set when it is disposed.
func (p *Provider) Open(ctx context.Context, uri, backupID string) (*document.Document, error) {
	path := uri
	if backupID != "" {
		path = filepath.Join(p.cfg.BackupDir, backupID)
	}

	doc, err := document.Open(ctx, document.Config{
		URI:    uri,
		Path:   path,
		Engine: p.cfg.Engine,
		Logger: p.logger,
	})
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	doc.OnDispose(func() {
		p.mu.Lock()
		delete(p.documents, uri)
		p.mu.Unlock()
	})

	p.mu.Lock()
	p.documents[uri] = &openDocument{id: id, doc: doc}
	p.mu.Unlock()

	p.logger.Info("opened document", "id", id, "uri", uri, "path", path, "engine", doc.EngineName())
	return doc, nil
}

// Get returns the open document for a URI, or nil.
func (p *Provider) Get(uri string) *document.Document {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if od, ok := p.documents[uri]; ok {
		return od.doc
	}
	return nil
}

// List returns info for every open document.
func (p *Provider) List() []Info {
	p.mu.RLock()
	defer p.mu.RUnlock()
	infos := make([]Info, 0, len(p.documents))
	for uri, od := range p.documents {
		infos = append(infos, Info{ID: od.id, URI: uri, Engine: od.doc.EngineName()})
	}
	return infos
}

// Close disposes the document for a URI, if open.
func (p *Provider) Close(uri string) error {
	doc := p.Get(uri)
	if doc == nil {
		return nil
	}
	return doc.Dispose()
}

// CloseAll disposes every open document, returning the first error.
func (p *Provider) CloseAll() error {
	var first error
	for _, info := range p.List() {
		if err := p.Close(info.URI); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Dispatch routes a request message to the document operation for its
// kind and returns the response to post back to the UI. Unrecognized
// kinds are silently ignored: the response is nil.
func (p *Provider) Dispatch(ctx context.Context, doc *document.Document, req *protocol.Request) *protocol.Response {
	switch req.Kind {
	case protocol.KindQuery:
		return doc.RunQuery(ctx, req.SQL, req.Limit)
	case protocol.KindMore:
		return doc.FetchMore(ctx, req.SQL, req.Limit, req.Offset)
	default:
		p.logger.Debug("ignoring message with unknown kind", "kind", req.Kind)
		return nil
	}
}
