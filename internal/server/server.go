// Package server implements the dlgforge automation facade.
//
// The facade exposes the read-only codec operations over HTTP for build
// pipelines: validation, transcript export, and canonical re-encoding.
// Documents arrive as request bodies and nothing is stored server-side
// except cached results keyed by the document's content hash, so the
// server holds no document state between requests.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dlgforge/dlgforge/pkg/cache"
)

// DefaultMaxBody caps request bodies. Conversation files are small;
// anything near this size is not one.
const DefaultMaxBody = 16 << 20

// Config configures the facade.
type Config struct {
	// Addr is the listen address, host:port.
	Addr string

	// Cache stores results keyed by content hash. Nil disables caching.
	Cache cache.Cache

	// Keyer derives cache keys. Nil means the default keyer.
	Keyer cache.Keyer

	// CacheTTL bounds cached result lifetime. Zero means no expiration.
	CacheTTL time.Duration

	// Lang is the transcript language when the request does not pick one.
	Lang uint32

	// MaxDepth bounds traversals per document. Zero means the library
	// default.
	MaxDepth int

	// MaxBody caps request body size. Zero means DefaultMaxBody.
	MaxBody int64

	// Logger receives request and cache logs. Nil discards them.
	Logger *log.Logger
}

// Server is the automation facade. Create with New.
type Server struct {
	cfg   Config
	cache cache.Cache
	keyer cache.Keyer
	log   *log.Logger
}

// New creates a server from cfg, filling defaults for unset fields.
func New(cfg Config) *Server {
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNullCache()
	}
	if cfg.Keyer == nil {
		cfg.Keyer = cache.NewDefaultKeyer()
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = DefaultMaxBody
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return &Server{cfg: cfg, cache: cfg.Cache, keyer: cfg.Keyer, log: cfg.Logger}
}

// Handler returns the routed facade.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Post("/transcript", s.handleTranscript)
		r.Post("/roundtrip", s.handleRoundTrip)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully with a short drain window.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", s.cfg.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}
