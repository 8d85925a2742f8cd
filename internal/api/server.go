package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seantiz/puppilot/internal/engine"
	"github.com/seantiz/puppilot/internal/routine"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 30 * time.Second
)

// Server wraps the chi router and application dependencies.
type Server struct {
	router  *chi.Mux
	engine  *engine.Engine
	catalog *routine.Catalog
	logger  *slog.Logger
	addr    string

	closeOnce sync.Once
	closeCh   chan struct{}
}

// NewServer creates and configures a new HTTP server.
func NewServer(addr string, eng *engine.Engine, catalog *routine.Catalog, logger *slog.Logger) *Server {
	srv := &Server{
		router:  chi.NewRouter(),
		engine:  eng,
		catalog: catalog,
		logger:  logger,
		addr:    addr,
		closeCh: make(chan struct{}),
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(metricsMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv.routes()

	return srv
}

// routes registers all HTTP routes on the router.
func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metricsHandler())

	s.router.Route("/api/v0", func(r chi.Router) {
		r.Get("/routines", s.handleListRoutines)
		r.Get("/routines/{id}", s.handleGetRoutine)

		r.Post("/sails", s.handleCreateSail)
		r.Get("/sails", s.handleListSails)
		r.Get("/sails/history", s.handleSailHistory)
		r.Get("/sails/{id}", s.handleGetSail)
		r.Get("/sails/{id}/events", s.handleSailEvents)

		r.Get("/stats", s.handleGetStats)
		r.Put("/action/close", s.handleClose)
	})
}

// Router returns the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// CloseRequested is closed once a client asks the server to shut down.
func (s *Server) CloseRequested() <-chan struct{} {
	return s.closeCh
}

func (s *Server) requestClose() {
	s.closeOnce.Do(func() { close(s.closeCh) })
}

// Run starts the HTTP server and blocks until a shutdown signal is received
// or a client requests shutdown.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	case <-s.closeCh:
		s.logger.Info("shutting down", "reason", "close requested")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
