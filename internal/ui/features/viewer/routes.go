package viewer

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/tabscope-labs/tabscope/internal/document"
	"github.com/tabscope-labs/tabscope/internal/provider"
	"github.com/tabscope-labs/tabscope/internal/ui/notifier"
)

// SetupRoutes registers the viewer feature routes.
func SetupRoutes(
	router chi.Router,
	doc *document.Document,
	prov *provider.Provider,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	pageSize int,
	logger *slog.Logger,
) {
	handlers := NewHandlers(doc, prov, sessionStore, notify, pageSize, logger)

	router.Get("/", handlers.Page)
	router.Post("/api/message", handlers.Message)
	router.Get("/api/schema", handlers.SchemaSSE)
	router.Get("/updates", handlers.UpdatesSSE)
}
