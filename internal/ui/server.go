// Package ui provides the web server hosting the dataframe panel.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/datacleanhq/dataclean/internal/bus"
	"github.com/datacleanhq/dataclean/internal/introspect"
	"github.com/datacleanhq/dataclean/internal/kernel"
	"github.com/datacleanhq/dataclean/internal/metadata"
	corepanel "github.com/datacleanhq/dataclean/internal/panel"
	panelFeature "github.com/datacleanhq/dataclean/internal/ui/features/panel"
	"github.com/datacleanhq/dataclean/internal/ui/notifier"
	"github.com/datacleanhq/dataclean/internal/ui/router"
)

// Config holds configuration for the panel server.
type Config struct {
	Bridge        kernel.Bridge
	Store         metadata.Store
	Recorder      introspect.Recorder
	Port          int
	Watch         bool
	NotebookPath  string
	SessionSecret string
	Logger        *slog.Logger
}

// Server hosts the panel: HTTP endpoints, the SSE update stream, the
// summary poller and the notebook file watcher.
type Server struct {
	cfg          Config
	events       *bus.Bus
	notifier     *notifier.Notifier
	poller       *introspect.Poller
	controller   *corepanel.Controller
	handlers     *panelFeature.Handlers
	sessionStore *sessions.CookieStore
	logger       *slog.Logger
}

// NewServer wires the panel server. The bridge may be nil when no kernel is
// reachable; the panel then renders empty and polls are skipped.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	events := bus.New()
	notify := notifier.New()
	state := corepanel.NewState()
	cache := panelFeature.NewWidgetCache()
	sink := panelFeature.NewWidgetSink(state, cache, notify)

	loader := corepanel.NewLoader(cfg.Bridge, state, cfg.Logger, cfg.Recorder, sink)
	poller := introspect.NewPoller(cfg.Bridge, cfg.Logger, cfg.Recorder, nil)

	controller := corepanel.NewController(state, poller, loader, cfg.Store, cfg.Logger, func() {
		notify.Broadcast(notifier.Event{Kind: notifier.KindPanel})
	})

	// Summaries flow back through the controller so expanded widgets are
	// re-requested after each redraw.
	poller.SetOnSummary(func(s introspect.Summary) {
		controller.HandleSummary(context.Background(), s)
	})

	handlers := panelFeature.NewHandlers(controller, cfg.Bridge, events, sessionStore, notify, cache, cfg.Logger)

	return &Server{
		cfg:          cfg,
		events:       events,
		notifier:     notify,
		poller:       poller,
		controller:   controller,
		handlers:     handlers,
		sessionStore: sessionStore,
		logger:       cfg.Logger,
	}
}

// Controller exposes the panel controller, used by one-shot CLI commands.
func (s *Server) Controller() *corepanel.Controller {
	return s.controller
}

// Serve starts the panel server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.controller.Init(ctx); err != nil {
		return fmt.Errorf("restore panel state: %w", err)
	}

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("starting panel server", "addr", fmt.Sprintf("http://localhost:%d", s.cfg.Port))

	eg, egctx := errgroup.WithContext(ctx)

	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	router.SetupRoutes(r, s.handlers, s.IsDev())

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Re-poll on host signals
	eg.Go(func() error {
		s.poller.Run(egctx, s.events)
		return nil
	})

	// Watch the notebook file if enabled
	if s.cfg.Watch && s.cfg.NotebookPath != "" {
		eg.Go(func() error {
			return s.watchNotebook(egctx)
		})
	}

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down panel server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// IsDev returns true if running in development mode.
func (s *Server) IsDev() bool {
	return true
}

// watchNotebook watches the notebook file. A save usually means cells ran
// in the host frontend, so the summary is re-polled and layout metadata
// written by another client is picked up.
func (s *Server) watchNotebook(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.cfg.NotebookPath); err != nil {
		s.logger.Error("failed to watch notebook", "path", s.cfg.NotebookPath, "error", err)
		// Don't fail - continue without watching
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

			// Debounce
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.logger.Debug("notebook changed, refreshing", "file", event.Name)
				s.events.Emit(bus.ReloadRequested)
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}
