package jobs

import (
	"context"
	"log/slog"
	"time"
)

// RunFunc executes the work tracked by one job. It reports progress
// through the callback and returns the job's result on success.
type RunFunc func(ctx context.Context, progress func(processed, total int)) (any, error)

// Runner launches tracked background jobs against a Store.
type Runner struct {
	store  Store
	logger *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(store Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{store: store, logger: logger}
}

// Launch creates a queued job and starts run in a goroutine, moving
// the job through running to completed or failed. The returned id is
// immediately pollable.
func (r *Runner) Launch(ctx context.Context, run RunFunc) (string, error) {
	job, err := r.store.Create(ctx)
	if err != nil {
		return "", err
	}

	go func() {
		// The job outlives the request that launched it.
		jobCtx := context.WithoutCancel(ctx)

		_ = r.store.Update(jobCtx, job.ID, func(j *Job) {
			j.Status = StatusRunning
			j.StartedAt = time.Now()
		})

		result, runErr := run(jobCtx, func(processed, total int) {
			_ = r.store.Update(jobCtx, job.ID, func(j *Job) {
				j.Progress = Progress{ProcessedAwards: processed, TotalAwards: total}
			})
		})

		if runErr != nil {
			r.logger.Error("job failed",
				slog.String("job_id", job.ID),
				slog.String("error", runErr.Error()))
			_ = r.store.Update(jobCtx, job.ID, func(j *Job) {
				j.Status = StatusFailed
				j.Error = runErr.Error()
				j.FinishedAt = time.Now()
			})
			return
		}

		r.logger.Info("job completed", slog.String("job_id", job.ID))
		_ = r.store.Update(jobCtx, job.ID, func(j *Job) {
			j.Status = StatusCompleted
			j.Result = result
			j.FinishedAt = time.Now()
		})
	}()

	return job.ID, nil
}
