// Package server exposes a lineage explorer over HTTP.
//
// Each client works on a session that holds its view state. Actions such as
// switching modes, selecting, focusing and filtering are POSTed to the
// session and return the new state; the composed layout of the current
// state is fetched separately so that clients can skip it when they only
// need the state.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pipescope/pkg/explorer"
	"github.com/matzehuels/pipescope/pkg/session"
)

// Defaults for [Config].
const (
	DefaultAddr            = ":8080"
	DefaultCleanupInterval = 5 * time.Minute
	shutdownTimeout        = 5 * time.Second
)

// Config configures the HTTP server.
type Config struct {
	Addr            string        `koanf:"addr"`
	SessionTTL      time.Duration `koanf:"session_ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`

	// Metrics serves /metrics. Nil uses the default Prometheus registry.
	Metrics http.Handler `koanf:"-"`
}

// SetDefaults fills zero-valued fields with defaults.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = session.DefaultTTL
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.Metrics == nil {
		c.Metrics = promhttp.Handler()
	}
}

// Server is the explorer HTTP API.
type Server struct {
	runner   *explorer.Runner
	sessions session.Store
	cfg      Config
	logger   *log.Logger
	router   chi.Router
}

// New creates a server. A nil logger uses log.Default().
func New(runner *explorer.Runner, sessions session.Store, cfg Config, logger *log.Logger) *Server {
	cfg.SetDefaults()
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner:   runner,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
		instrument,
	)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.cfg.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/modes", s.handleModes)
		r.Get("/nodes/{mode}/*", s.handleNode)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Get("/layout", s.handleLayout)
				r.Get("/search", s.handleSearch)
				r.Post("/mode", s.action(explorer.ActionMode))
				r.Post("/select", s.action(explorer.ActionSelect))
				r.Post("/clear", s.action(explorer.ActionClear))
				r.Post("/focus", s.action(explorer.ActionFocus))
				r.Post("/filter", s.action(explorer.ActionFilter))
				r.Post("/show-all", s.action(explorer.ActionShowAll))
			})
		})
	})
	return r
}

// Run serves HTTP on the configured address and periodically removes
// expired sessions. It blocks until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.router,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		s.logger.Info("serving lineage explorer", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	eg.Go(func() error {
		s.cleanupLoop(egctx)
		return nil
	})

	return eg.Wait()
}

func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sessions.Cleanup(ctx); err != nil {
				s.logger.Warn("session cleanup failed", "err", err)
			}
		}
	}
}
