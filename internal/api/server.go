package api

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/semaphore"

	"github.com/zkorum/agora/internal/engine"
	"github.com/zkorum/agora/internal/errors"
	"github.com/zkorum/agora/internal/logging"
	"github.com/zkorum/agora/internal/metrics"
	"github.com/zkorum/agora/internal/scaling"
)

// Config holds the server's fixed settings.
type Config struct {
	// Workers bounds concurrent solves. Values below 1 mean 1.
	Workers int
	// ReadHeaderTimeout limits how long a client may take to send headers.
	ReadHeaderTimeout time.Duration
	// RequestTimeout is the deadline of one /math request; 0 means none.
	RequestTimeout time.Duration
	// ShutdownTimeout is how long in-flight requests get on shutdown.
	ShutdownTimeout time.Duration

	MinVoteThreshold int
	MaxGroupCount    int
	GroupField       string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPolicy sets the initial scaling policy.
func WithPolicy(p *scaling.Policy) Option {
	return func(s *Server) {
		if p != nil {
			s.policy.Store(p)
		}
	}
}

// WithCache enables result caching.
func WithCache(c *ResultCache) Option {
	return func(s *Server) {
		s.cache = c
	}
}

// WithRegistry registers metrics with reg and serves reg at /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// Server is the agora-math HTTP API.
type Server struct {
	engine   engine.Engine
	cfg      Config
	policy   atomic.Pointer[scaling.Policy]
	workers  *semaphore.Weighted
	cache    *ResultCache
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewServer creates a Server solving with eng.
func NewServer(eng engine.Engine, cfg Config, opts ...Option) *Server {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	s := &Server{
		engine:  eng,
		cfg:     cfg,
		workers: semaphore.NewWeighted(int64(cfg.Workers)),
		logger:  logging.NopLogger(),
	}
	s.policy.Store(scaling.NewPolicy())
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = metrics.New(s.registry)
	if s.cache != nil {
		s.metrics.WatchCache(s.cache.Len)
	}
	return s
}

// Policy returns the scaling policy new solves will use.
func (s *Server) Policy() *scaling.Policy {
	return s.policy.Load()
}

// SetPolicy replaces the scaling policy and drops cached results. Solves
// already running keep the policy they started with.
func (s *Server) SetPolicy(p *scaling.Policy) {
	if p == nil {
		return
	}
	s.policy.Store(p)
	if s.cache != nil {
		s.cache.Purge()
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /math", s.handleMath)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully, giving in-flight requests up to ShutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String(), "workers", s.cfg.Workers)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", s.cfg.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	<-errCh
	if err != nil {
		return errors.Wrap(err, "graceful shutdown")
	}
	s.logger.Info("server stopped")
	return nil
}
