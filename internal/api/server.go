// Package api exposes the HTTP interface for the crawl service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/siteatlas/siteatlas/internal/crawl"
	"github.com/siteatlas/siteatlas/internal/queue"
	"github.com/siteatlas/siteatlas/internal/store"
)

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Config controls server behavior.
type Config struct {
	// APIKey enables key auth on the /v1 routes when non-empty.
	APIKey string
	// RequestTimeout bounds each request (default 60s).
	RequestTimeout time.Duration
	// DefaultMaxDepth is applied when a run request omits max_depth.
	DefaultMaxDepth int
}

// Server wires HTTP handlers to the run queue and repository.
type Server struct {
	router   chi.Router
	queue    queue.Queue
	repo     store.RunRepository
	idGen    IDGenerator
	clock    crawl.Clock
	gatherer prometheus.Gatherer
	cfg      Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	q queue.Queue,
	repo store.RunRepository,
	idGen IDGenerator,
	clock crawl.Clock,
	gatherer prometheus.Gatherer,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		queue:    q,
		repo:     repo,
		idGen:    idGen,
		clock:    clock,
		gatherer: gatherer,
		cfg:      cfg,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(cfg.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", s.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.APIKey != "" {
			r.Use(apiKeyMiddleware(cfg.APIKey))
		}
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.submitRun)
			r.Get("/", s.listRuns)
			r.Get("/{run_id}", s.getRun)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) metricsHandler() http.Handler {
	gatherer := s.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type submitRunRequest struct {
	SeedURL  string `json:"seed_url"`
	MaxDepth *int   `json:"max_depth"`
}

func (s *Server) submitRun(w http.ResponseWriter, r *http.Request) {
	var req submitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SeedURL == "" {
		s.writeError(w, http.StatusBadRequest, "seed_url is required")
		return
	}
	if _, err := crawl.Canonicalize(req.SeedURL); err != nil {
		s.writeError(w, http.StatusBadRequest, "seed_url is not an absolute http(s) URL")
		return
	}

	maxDepth := s.cfg.DefaultMaxDepth
	if req.MaxDepth != nil {
		if *req.MaxDepth <= 0 {
			s.writeError(w, http.StatusBadRequest, "max_depth must be > 0")
			return
		}
		maxDepth = *req.MaxDepth
	}

	runID, err := s.idGen.NewID()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "generate run id failed")
		return
	}

	queueCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	err = s.queue.Enqueue(queueCtx, queue.RunRequest{
		RunID:      runID,
		SeedURL:    req.SeedURL,
		MaxDepth:   maxDepth,
		EnqueuedAt: s.clock.Now(),
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		s.writeError(w, status, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "run_id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	state, err := s.repo.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "load run failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"run": state})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveInt(r.URL.Query().Get("limit"), 50)
	offset := parsePositiveInt(r.URL.Query().Get("offset"), 0)
	runs, err := s.repo.ListRuns(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func parsePositiveInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	var v int
	for _, r := range raw {
		if r < '0' || r > '9' {
			return def
		}
		v = v*10 + int(r-'0')
	}
	return v
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
