// Package server exposes the HTTP API: hybrid search queries, indexing
// triggers with pollable job status, and a health endpoint.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/grantsight/grantsight/internal/config"
	"github.com/grantsight/grantsight/internal/jobs"
	"github.com/grantsight/grantsight/internal/pipeline"
	"github.com/grantsight/grantsight/internal/search"
	"github.com/grantsight/grantsight/internal/store"
)

// Searcher runs hybrid queries. Satisfied by *search.Engine.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

// PipelineFactory builds an indexing pipeline with a progress callback
// for one job.
type PipelineFactory func(progress pipeline.ProgressFunc) IndexRunner

// IndexRunner runs one indexing pass. Satisfied by *pipeline.Pipeline.
type IndexRunner interface {
	RunAsync(ctx context.Context, awardIDs []string) (*pipeline.RunStats, error)
}

// Pinger checks database connectivity. Satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP API server.
type Server struct {
	cfg      config.ServerConfig
	searcher Searcher
	pipes    PipelineFactory
	awards   store.AwardStore
	jobStore jobs.Store
	runner   *jobs.Runner
	db       Pinger
	logger   *slog.Logger

	httpServer *http.Server
}

// New creates the API server.
func New(cfg config.ServerConfig, searcher Searcher, pipes PipelineFactory, awards store.AwardStore, jobStore jobs.Store, db Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		searcher: searcher,
		pipes:    pipes,
		awards:   awards,
		jobStore: jobStore,
		runner:   jobs.NewRunner(jobStore, logger),
		db:       db,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("POST /index", s.handleIndex)
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks serving requests until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", slog.String("addr", s.cfg.Addr()))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
