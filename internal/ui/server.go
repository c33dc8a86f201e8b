// Package ui provides the local web server hosting the viewer surface.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/tabscope-labs/tabscope/internal/document"
	"github.com/tabscope-labs/tabscope/internal/provider"
	"github.com/tabscope-labs/tabscope/internal/ui/notifier"
	"github.com/tabscope-labs/tabscope/internal/ui/router"
)

// Config holds configuration for the UI server.
type Config struct {
	Document      *document.Document
	Provider      *provider.Provider
	Port          int
	Watch         bool
	PageSize      int
	SessionSecret string
	Logger        *slog.Logger
}

// Server hosts the viewer for one open document. It binds localhost only.
type Server struct {
	doc          *document.Document
	prov         *provider.Provider
	sessionStore *sessions.CookieStore
	port         int
	watch        bool
	pageSize     int
	logger       *slog.Logger
	notifier     *notifier.Notifier
}

// NewServer creates a UI server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		doc:          cfg.Document,
		prov:         cfg.Provider,
		sessionStore: sessionStore,
		port:         cfg.Port,
		watch:        cfg.Watch,
		pageSize:     cfg.PageSize,
		logger:       logger,
		notifier:     notifier.New(),
	}
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	s.logger.Info("starting viewer", "addr", fmt.Sprintf("http://localhost:%d", s.port), "file", s.doc.URI())

	eg, egctx := errgroup.WithContext(ctx)

	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	router.SetupRoutes(r, s.doc, s.prov, s.sessionStore, s.notifier, s.pageSize, s.logger)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchFile(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down viewer...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// watchFile watches the opened data file and pings SSE subscribers when
// it changes, so connected pages reload over fresh data.
func (s *Server) watchFile(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(s.doc.URI())

	// Watch the directory: editors often replace files instead of
	// writing in place, which would drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		s.logger.Error("failed to watch data file", "file", target, "error", err)
		// Continue without watching.
		<-ctx.Done()
		return nil
	}

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != target {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.logger.Debug("data file changed", "file", target)
				s.notifier.Broadcast()
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}
