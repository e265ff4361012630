// Package server exposes the parse, analytics, session and export operations
// over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/KaramelBytes/tallyloom/internal/logging"
	"github.com/KaramelBytes/tallyloom/internal/pipeline"
	"github.com/KaramelBytes/tallyloom/internal/session"
)

// Options tunes the HTTP layer.
type Options struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
	// SaveSessions persists every /parse result unless the request opts out.
	SaveSessions bool
}

// DefaultOptions returns reasonable defaults for a local server.
func DefaultOptions() Options {
	return Options{
		Addr:           "127.0.0.1:8080",
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   60 * time.Second,
		RequestTimeout: 30 * time.Second,
		MaxBodyBytes:   10 << 20,
		RateLimitRPS:   50,
		RateLimitBurst: 100,
		MaxConcurrent:  8,
		SaveSessions:   true,
	}
}

// Server is the HTTP front end of the engine.
type Server struct {
	engine   *pipeline.Engine
	store    session.Store
	opts     Options
	router   *chi.Mux
	validate *validator.Validate
	metrics  *metrics
	server   *http.Server

	mu      sync.RWMutex
	current *pipeline.Result
}

// New creates a Server. store must not be nil.
func New(engine *pipeline.Engine, store session.Store, opts Options) *Server {
	def := DefaultOptions()
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = def.MaxBodyBytes
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = def.MaxConcurrent
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = def.RequestTimeout
	}
	s := &Server{
		engine:   engine,
		store:    store,
		opts:     opts,
		router:   chi.NewRouter(),
		validate: newValidator(),
		metrics:  newMetrics(),
		current:  emptyResult(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func newValidator() *validator.Validate {
	v := validator.New()
	// report JSON field names in validation errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logging.RequestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.opts.RequestTimeout))
	s.router.Use(s.metrics.instrument)
	if s.opts.RateLimitRPS > 0 {
		s.router.Use(newRateLimiter(s.opts.RateLimitRPS, s.opts.RateLimitBurst).Handler)
	}
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", s.metrics.handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(maxBody(s.opts.MaxBodyBytes))
			r.Use(newConcurrencyLimiter(s.opts.MaxConcurrent).Handler)

			r.Post("/parse", s.handleParse)
			r.Post("/analytics/{kind}", s.handleAnalytics)
			r.Get("/analytics/{kind}", s.handleAnalytics)
			r.Post("/insights", s.handleInsights)
			r.Post("/export", s.handleExport)
			r.Post("/clear", s.handleClear)

			r.Get("/sessions", s.handleListSessions)
			r.Get("/sessions/{id}", s.handleGetSession)
			r.Delete("/sessions/{id}", s.handleDeleteSession)
		})
	})
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() http.Handler { return s.router }

// Start listens on opts.Addr and serves until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", s.opts.Addr)
		errCh <- s.server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("shutting down server")
		return s.server.Shutdown(shutdownCtx)
	}
}

func emptyResult() *pipeline.Result {
	return &pipeline.Result{}
}

func (s *Server) setCurrent(res *pipeline.Result) {
	s.mu.Lock()
	s.current = res
	s.mu.Unlock()
}

func (s *Server) getCurrent() *pipeline.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
