// Package pipeline orchestrates indexing runs: chunk awards, embed the
// chunks through a content-hash cache, and bulk-store the vectors.
package pipeline

import (
	"time"
)

// RunStats aggregates one indexing run. All counters are run-scoped
// and reset between runs.
type RunStats struct {
	TotalAwards     int       `json:"total_awards"`
	ProcessedAwards int       `json:"processed_awards"`
	FailedAwards    int       `json:"failed_awards"`
	TotalChunks     int       `json:"total_chunks"`
	CachedChunks    int       `json:"cached_chunks"`
	NewChunks       int       `json:"new_chunks"`
	InsertedChunks  int       `json:"inserted_chunks"`
	TotalTokens     int       `json:"total_tokens"`
	EstimatedCost   float64   `json:"estimated_cost"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	SuccessRate     float64   `json:"success_rate"`
	FailedAwardIDs  []string  `json:"failed_award_ids,omitempty"`
}

func newRunStats(totalAwards int) *RunStats {
	return &RunStats{TotalAwards: totalAwards, StartedAt: time.Now()}
}

// finish stamps the end of the run and derives duration and success
// rate.
func (s *RunStats) finish() {
	s.FinishedAt = time.Now()
	s.DurationSeconds = s.FinishedAt.Sub(s.StartedAt).Seconds()
	if s.TotalAwards > 0 {
		s.SuccessRate = float64(s.ProcessedAwards) / float64(s.TotalAwards)
	}
}

// markFailed records failed award ids.
func (s *RunStats) markFailed(ids []string) {
	s.FailedAwards += len(ids)
	s.FailedAwardIDs = append(s.FailedAwardIDs, ids...)
}
