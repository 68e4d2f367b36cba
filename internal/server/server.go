// Package server runs the HTTP server of the site.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/aiokaizen/bear-vision/internal/lava/site"
)

// NewSessionStore creates the cookie store backing login sessions and flash
// messages. An empty secret gets a random one, which signs everybody out on
// restart. Secure cookies are only sent back over HTTPS, so leave secure off
// when the server is reached over plain HTTP.
func NewSessionStore(secret string, secure bool, logger *slog.Logger) *sessions.CookieStore {
	if secret == "" {
		if logger != nil {
			logger.Warn("no session secret configured, sessions will not survive a restart")
		}
		secret = uuid.NewString()
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(86400 * 30) // 30 days
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	return store
}

// Server serves a site.
type Server struct {
	site       *site.Site
	port       int
	watch      bool
	configPath string
	reload     func() ([]string, error)
	logger     *slog.Logger
}

// Config holds configuration for the server.
type Config struct {
	Site *site.Site
	Port int
	// Watch reloads the menu items when the file at ConfigPath changes.
	Watch      bool
	ConfigPath string
	// Reload reads the menu items from the configuration again.
	Reload func() ([]string, error)
	Logger *slog.Logger
}

// New creates a server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		site:       cfg.Site,
		port:       cfg.Port,
		watch:      cfg.Watch && cfg.ConfigPath != "" && cfg.Reload != nil,
		configPath: cfg.ConfigPath,
		reload:     cfg.Reload,
		logger:     logger,
	}
}

// Handler returns the router with the middleware stack and every site route.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)
	s.site.SetupRoutes(r)
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchConfig(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// watchConfig reloads the menu items whenever the configuration file is
// written. The directory is watched because editors often replace the file.
func (s *Server) watchConfig(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	path := filepath.Clean(s.configPath)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		s.logger.Error("failed to watch configuration", "path", path, "error", err)
		// keep serving without reloads
		<-ctx.Done()
		return nil
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Clean(event.Name) != path {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, s.reloadMenu)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

func (s *Server) reloadMenu() {
	keys, err := s.reload()
	if err != nil {
		s.logger.Error("failed to reload configuration", "path", s.configPath, "error", err)
		return
	}
	if err := s.site.SetMenuItems(keys); err != nil {
		s.logger.Error("invalid menu items", "error", err)
		return
	}
	s.site.Notifier().BroadcastAll()
}
