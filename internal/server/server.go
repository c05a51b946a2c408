// Package server exposes the web UI and JSON API for a session.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/askrepo/askrepo/internal/config"
	"github.com/askrepo/askrepo/internal/deps"
	"github.com/askrepo/askrepo/internal/history"
	"github.com/askrepo/askrepo/internal/repo"
)

// Server wires the session to HTTP handlers.
type Server struct {
	cfg     *config.Config
	session *repo.Session
	history *history.Store
	osv     *deps.OSVClient
	http    *http.Server
}

// New builds a server for the session. history may be nil.
func New(cfg *config.Config, session *repo.Session, hist *history.Store) *Server {
	s := &Server{
		cfg:     cfg,
		session: session,
		history: hist,
		osv:     deps.NewOSVClient(),
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the router. Exposed separately so tests can drive the
// handlers without a listening socket.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Server.Timeout))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/repo", s.handleLoadRepo)
		r.Get("/summary", s.handleSummary)
		r.Get("/tree", s.handleTree)
		r.Get("/issues", s.handleIssues)
		r.Get("/pulls", s.handlePulls)
		r.Get("/pulls/{number}/summary", s.handlePullSummary)
		r.Post("/chat", s.handleChat)
		r.Get("/search", s.handleSearch)
		r.Get("/vulns", s.handleVulns)
		r.Get("/todos", s.handleTodos)
		r.Get("/history", s.handleHistory)
	})

	return r
}

// requestLogger logs each request through slog with its chi request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("shutting down http server")
		return s.http.Shutdown(shutdownCtx)
	}
}
