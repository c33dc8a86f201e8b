package viewer

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/tabscope-labs/tabscope/internal/document"
	"github.com/tabscope-labs/tabscope/internal/protocol"
	"github.com/tabscope-labs/tabscope/internal/provider"
	"github.com/tabscope-labs/tabscope/internal/ui/notifier"
)

const (
	sessionName  = "tabscope"
	sessionLimit = "limit"
)

// Handlers provides the HTTP handlers for the viewer surface.
type Handlers struct {
	doc          *document.Document
	prov         *provider.Provider
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	pageSize     int
	logger       *slog.Logger
}

// NewHandlers creates a Handlers instance for one open document.
func NewHandlers(doc *document.Document, prov *provider.Provider, sessionStore sessions.Store, notify *notifier.Notifier, pageSize int, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		doc:          doc,
		prov:         prov,
		sessionStore: sessionStore,
		notifier:     notify,
		pageSize:     pageSize,
		logger:       logger,
	}
}

// Page renders the viewer surface. Each render gets a fresh script nonce,
// embedded identically in the policy header and every script tag.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	nonce, err := newNonce()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := pageData{
		FileName:   filepath.Base(h.doc.URI()),
		Nonce:      nonce,
		Limit:      h.limitFromSession(r),
		InitialSQL: "SELECT * FROM " + h.doc.View(),
	}

	w.Header().Set("Content-Security-Policy", contentSecurityPolicy(nonce))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.Error("failed to render viewer page", "error", err)
	}
}

// Message is the UI's message channel: it decodes a protocol request,
// dispatches it to the document, and posts the response back. Messages
// with unrecognized kinds are dropped without a body.
func (h *Handlers) Message(w http.ResponseWriter, r *http.Request) {
	var req protocol.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed message: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp := h.prov.Dispatch(r.Context(), h.doc, &req)
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if req.Kind == protocol.KindQuery {
		h.saveLimit(w, r, req.Limit)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode response", "kind", resp.Kind, "error", err)
	}
}

// SchemaSSE patches the sidebar with the view's columns.
func (h *Handlers) SchemaSSE(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	rows, err := h.doc.Schema(r.Context())
	if err != nil {
		_ = sse.ConsoleError(err)
		return
	}

	if err := sse.PatchElements(schemaHTML(columnsFromRows(rows))); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// UpdatesSSE is the long-lived endpoint pinged when the underlying file
// changes; subscribers reload to re-open the view over fresh data.
func (h *Handlers) UpdatesSSE(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := sse.ExecuteScript("window.location.reload()"); err != nil {
				return
			}
		}
	}
}

// limitFromSession returns the page size last used in this session, or
// the configured default.
func (h *Handlers) limitFromSession(r *http.Request) int {
	session, err := h.sessionStore.Get(r, sessionName)
	if err != nil {
		return h.pageSize
	}
	if limit, ok := session.Values[sessionLimit].(int); ok && limit > 0 {
		return limit
	}
	return h.pageSize
}

// saveLimit remembers the page size for the next render. Must run before
// the response body is written.
func (h *Handlers) saveLimit(w http.ResponseWriter, r *http.Request, limit int) {
	if limit <= 0 {
		return
	}
	session, err := h.sessionStore.Get(r, sessionName)
	if err != nil {
		return
	}
	session.Values[sessionLimit] = limit
	if err := session.Save(r, w); err != nil {
		h.logger.Debug("failed to save session", "error", err)
	}
}
