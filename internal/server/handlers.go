package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/grantsight/grantsight/internal/jobs"
	"github.com/grantsight/grantsight/internal/search"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

type indexRequest struct {
	AwardIDs []string `json:"award_ids,omitempty"`
	Since    string   `json:"since,omitempty"`
	All      bool     `json:"all,omitempty"`
}

type indexResponse struct {
	JobID       string `json:"job_id"`
	TotalAwards int    `json:"total_awards"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK

	pingCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.db.Ping(pingCtx); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

// handleSearch runs a hybrid query. Internal degradation (one or both
// search sides failing) still yields a structured 200 response; only
// malformed requests produce errors.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	resp, err := s.searcher.Search(r.Context(), req)
	if err != nil {
		if errors.Is(err, search.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("search failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleIndex resolves the target award set and launches a background
// indexing job. The returned job id is immediately pollable.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	ids, err := s.resolveTarget(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID, err := s.runner.Launch(r.Context(), func(ctx context.Context, progress func(int, int)) (any, error) {
		pipe := s.pipes(func(processed, total int) { progress(processed, total) })
		return pipe.RunAsync(ctx, ids)
	})
	if err != nil {
		s.logger.Error("failed to launch indexing job", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to launch job")
		return
	}

	writeJSON(w, http.StatusAccepted, indexResponse{JobID: jobID, TotalAwards: len(ids)})
}

func (s *Server) resolveTarget(ctx context.Context, req indexRequest) ([]string, error) {
	switch {
	case len(req.AwardIDs) > 0:
		return req.AwardIDs, nil
	case req.Since != "":
		since, err := time.Parse(time.RFC3339, req.Since)
		if err != nil {
			return nil, fmt.Errorf("invalid since timestamp %q: want RFC3339", req.Since)
		}
		return s.awards.ListAwardIDs(ctx, since, 0)
	case req.All:
		return s.awards.ListAwardIDs(ctx, time.Time{}, 0)
	default:
		return nil, fmt.Errorf("one of award_ids, since or all is required")
	}
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobStore.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	list, err := s.jobStore.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": list})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
