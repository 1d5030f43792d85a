// Package server exposes the query, library and ingest services as a JSON
// HTTP API with a websocket endpoint for streamed answers.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/videorag-go/internal/metrics"
	"github.com/raphaelgruber/videorag-go/internal/service"
	"github.com/raphaelgruber/videorag-go/internal/session"
)

// Deps are the services the server exposes.
type Deps struct {
	Query    *service.QueryService
	Library  *service.LibraryService
	Jobs     *service.JobManager
	Sessions session.Store
	Metrics  *metrics.Collector
	// NewSession returns a session carrying the configured defaults.
	NewSession func() session.Session
}

// Server wraps the HTTP handlers with dependencies and lifecycle management.
type Server struct {
	deps     Deps
	logger   *slog.Logger
	validate *validator.Validate
	upgrader websocket.Upgrader
	// jobCtx outlives the requests that start background ingests.
	jobCtx context.Context
}

// New creates a server. ctx bounds background ingest jobs.
func New(ctx context.Context, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.NewSession == nil {
		deps.NewSession = func() session.Session { return session.New("", "", 0) }
	}
	return &Server{
		deps:     deps,
		logger:   logger,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for local dev
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		jobCtx: ctx,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("GET /stats", s.handleStats)

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/video", s.handleLoadVideo)

	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("POST /api/quiz", s.handleQuiz)
	mux.HandleFunc("POST /api/reel", s.handleReel)
	mux.HandleFunc("GET /api/transcript", s.handleTranscript)

	mux.HandleFunc("GET /api/library/collections", s.handleCollections)
	mux.HandleFunc("GET /api/library/videos", s.handleVideos)
	mux.HandleFunc("DELETE /api/library/videos/{id}", s.handleDeleteVideo)

	mux.HandleFunc("POST /api/ingest", s.handleIngest)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)

	mux.HandleFunc("GET /ws/ask", s.handleAskStream)

	var h http.Handler = mux
	h = RecoverMiddleware(s.logger)(h)
	h = LoggingMiddleware(s.logger)(h)
	return h
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // Long for provider answers and stitching
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
