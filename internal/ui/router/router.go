// Package router wires the viewer routes onto the UI server's mux.
package router

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/tabscope-labs/tabscope/internal/document"
	"github.com/tabscope-labs/tabscope/internal/provider"
	"github.com/tabscope-labs/tabscope/internal/ui/features/viewer"
	"github.com/tabscope-labs/tabscope/internal/ui/notifier"
	"github.com/tabscope-labs/tabscope/internal/ui/resources"
)

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(
	router chi.Router,
	doc *document.Document,
	prov *provider.Provider,
	sessionStore *sessions.CookieStore,
	notify *notifier.Notifier,
	pageSize int,
	logger *slog.Logger,
) {
	router.Handle("/static/*", resources.Handler())
	viewer.SetupRoutes(router, doc, prov, sessionStore, notify, pageSize, logger)
}
