// Package jobs tracks asynchronous indexing jobs behind a store
// interface: in-memory for single-instance deployments, pluggable for
// anything bigger.
package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown job ids.
var ErrNotFound = errors.New("jobs: not found")

// Status is a job's lifecycle state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Progress holds a running job's counters.
type Progress struct {
	ProcessedAwards int `json:"processed_awards"`
	TotalAwards     int `json:"total_awards"`
}

// Job is one tracked indexing run.
type Job struct {
	ID         string    `json:"id"`
	Status     Status    `json:"status"`
	Progress   Progress  `json:"progress"`
	Result     any       `json:"result,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Store persists jobs. Implementations must be safe for concurrent use.
type Store interface {
	// Create registers a new queued job and returns it.
	Create(ctx context.Context) (Job, error)

	// Get returns a job by id, or ErrNotFound.
	Get(ctx context.Context, id string) (Job, error)

	// List returns all jobs, newest first.
	List(ctx context.Context) ([]Job, error)

	// Update applies fn to the stored job under the store's lock.
	Update(ctx context.Context, id string, fn func(*Job)) error
}
