// Package server exposes a host over HTTP so that viewers in other
// processes can send requests and follow document changes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oakwood-commons/jtv/internal/host"
	"github.com/oakwood-commons/jtv/pkg/logger"
)

// Options configures a Server. Zero durations take the defaults below.
type Options struct {
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
	// WatchInterval is how often the document is polled for external edits.
	WatchInterval time.Duration
	// MaxBodyBytes bounds the size of one request message.
	MaxBodyBytes int64
}

const (
	defaultReadTimeout     = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	defaultWatchInterval   = time.Second
	defaultMaxBodyBytes    = 32 << 20
)

func (o Options) withDefaults() Options {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = defaultReadTimeout
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = defaultShutdownTimeout
	}
	if o.WatchInterval <= 0 {
		o.WatchInterval = defaultWatchInterval
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = defaultMaxBodyBytes
	}
	return o
}

// Server is the HTTP endpoint of a host.
type Server struct {
	host   *host.Host
	opts   Options
	router *chi.Mux
	server *http.Server

	mu   sync.Mutex
	subs map[chan host.Reply]struct{}
}

// New returns a server for h with its routes installed.
func New(h *host.Host, opts Options) *Server {
	s := &Server{
		host:   h,
		opts:   opts.withDefaults(),
		router: chi.NewRouter(),
		subs:   make(map[chan host.Reply]struct{}),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/document", s.handleDocument)
		r.Post("/messages", s.handleMessage)
		r.Get("/events", s.handleEvents)
	})
}

// Router returns the handler, for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully. External
// document changes are forwarded to event subscribers while it runs.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	lgr := logger.FromContext(ctx)
	base := ctx
	s.server = &http.Server{
		Handler:     s.router,
		ReadTimeout: s.opts.ReadTimeout,
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return base },
	}

	if _, err := s.host.Text(ctx); err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() {
		for reply := range s.host.Watch(watchCtx, s.opts.WatchInterval) {
			s.Publish(reply)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		lgr.Info("serving", "addr", ln.Addr().String())
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	lgr.V(1).Info("shutting down")
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Publish sends reply to every event subscriber. Slow subscribers miss
// messages instead of blocking the publisher.
func (s *Server) Publish(reply host.Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- reply:
		default:
		}
	}
}

func (s *Server) subscribe() (<-chan host.Reply, func()) {
	ch := make(chan host.Reply, 8)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
}

// Subscribers returns the number of connected event streams.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
