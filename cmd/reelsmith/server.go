// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/reelsmith/reelsmith/internal/log"
	"github.com/reelsmith/reelsmith/internal/render"
	"github.com/reelsmith/reelsmith/internal/store"
)

// server exposes the daemon surface: health, metrics and the job API.
// Renders run one at a time; the queue is the jobs channel.
type server struct {
	runner *jobRunner
	db     *store.Store
	logger zerolog.Logger
}

// jobRunner serializes render jobs submitted over HTTP.
type jobRunner struct {
	renderer *render.Renderer
	db       *store.Store
	logger   zerolog.Logger
	jobs     chan queuedJob
}

type queuedJob struct {
	id       string
	manifest Manifest
}

func newJobRunner(renderer *render.Renderer, db *store.Store, queueSize int) *jobRunner {
	if queueSize < 1 {
		queueSize = 8
	}
	return &jobRunner{
		renderer: renderer,
		db:       db,
		logger:   log.WithComponent("runner"),
		jobs:     make(chan queuedJob, queueSize),
	}
}

// Start consumes the queue until ctx is canceled.
func (r *jobRunner) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-r.jobs:
				runJob(ctx, r.renderer, r.db, job.id, job.manifest)
			}
		}
	}()
}

// Submit queues a job; it fails when the queue is full.
func (r *jobRunner) Submit(id string, m Manifest) error {
	select {
	case r.jobs <- queuedJob{id: id, manifest: m}:
		return nil
	default:
		return errors.New("job queue full")
	}
}

func newServer(runner *jobRunner, db *store.Store) *server {
	return &server{
		runner: runner,
		db:     db,
		logger: log.WithComponent("http"),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.handleSubmit)
		r.Get("/", s.handleRecent)
		r.Get("/{id}", s.handleGet)
	})
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleSubmit(w http.ResponseWriter, req *http.Request) {
	var m Manifest
	if err := json.NewDecoder(req.Body).Decode(&m); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := m.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	id := uuid.NewString()
	if err := s.db.Create(req.Context(), id, m.Style); err != nil {
		s.logger.Error().Err(err).Msg("job create failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "job create failed"})
		return
	}
	if err := s.runner.Submit(id, m); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	s.logger.Info().Str("job_id", id).Int("scenes", len(m.Scenes)).Str("event", "job.accepted").Msg("job accepted")
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func (s *server) handleGet(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	rec, err := s.db.Get(req.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) handleRecent(w http.ResponseWriter, req *http.Request) {
	recs, err := s.db.Recent(req.Context(), 20)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if recs == nil {
		recs = []store.JobRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
