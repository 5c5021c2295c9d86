package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grantsight/grantsight/internal/config"
	"github.com/grantsight/grantsight/internal/jobs"
	"github.com/grantsight/grantsight/internal/pipeline"
	"github.com/grantsight/grantsight/internal/search"
	"github.com/grantsight/grantsight/internal/store"
)

type stubSearcher struct {
	resp *search.Response
	err  error
}

func (s *stubSearcher) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	resp := *s.resp
	resp.Query = req.Query
	return &resp, nil
}

type stubIndexRunner struct {
	stats *pipeline.RunStats
	err   error
}

func (s *stubIndexRunner) RunAsync(ctx context.Context, awardIDs []string) (*pipeline.RunStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	stats := *s.stats
	stats.TotalAwards = len(awardIDs)
	stats.ProcessedAwards = len(awardIDs)
	return &stats, nil
}

type stubAwardStore struct {
	ids []string
}

func (s *stubAwardStore) GetAwards(ctx context.Context, ids []string) ([]store.Award, error) {
	return nil, nil
}

func (s *stubAwardStore) SearchCandidates(ctx context.Context, query string, limit int) ([]store.Award, error) {
	return nil, nil
}

func (s *stubAwardStore) ListAwardIDs(ctx context.Context, since time.Time, limit int) ([]string, error) {
	return s.ids, nil
}

func (s *stubAwardStore) CountAwards(ctx context.Context) (int64, error) {
	return int64(len(s.ids)), nil
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error { return s.err }

type serverFixture struct {
	searcher *stubSearcher
	runner   *stubIndexRunner
	awards   *stubAwardStore
	pinger   *stubPinger
	jobStore jobs.Store
	handler  http.Handler
}

func newFixture(t *testing.T) *serverFixture {
	t.Helper()
	f := &serverFixture{
		searcher: &stubSearcher{resp: &search.Response{
			HybridResults: []search.GroupedResult{{AwardID: "AWD-1", FinalScore: 9.5}},
		}},
		runner:   &stubIndexRunner{stats: &pipeline.RunStats{}},
		awards:   &stubAwardStore{ids: []string{"AWD-1", "AWD-2"}},
		pinger:   &stubPinger{},
		jobStore: jobs.NewMemoryStore(),
	}
	pipes := func(progress pipeline.ProgressFunc) IndexRunner { return f.runner }
	srv := New(config.ServerConfig{Host: "127.0.0.1", Port: 0}, f.searcher, pipes, f.awards, f.jobStore, f.pinger, nil)
	f.handler = srv.Handler()
	return f
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[healthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Database)
}

func TestHealth_DegradedDatabase(t *testing.T) {
	f := newFixture(t)
	f.pinger.err = errors.New("connection refused")

	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := decodeBody[healthResponse](t, rec)
	assert.Equal(t, "degraded", body.Status)
	assert.Contains(t, body.Database, "connection refused")
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/search", search.Request{Query: "solar energy"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeBody[search.Response](t, rec)
	assert.Equal(t, "solar energy", body.Query)
	require.Len(t, body.HybridResults, 1)
	assert.Equal(t, "AWD-1", body.HybridResults[0].AwardID)
}

func TestSearch_InvalidBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_ValidationErrorIs400(t *testing.T) {
	f := newFixture(t)
	f.searcher.err = fmt.Errorf("%w: query must not be empty", search.ErrInvalidRequest)

	rec := f.do(t, http.MethodPost, "/search", search.Request{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody[errorResponse](t, rec)
	assert.Contains(t, body.Error, "query must not be empty")
}

func TestSearch_InternalErrorIs500(t *testing.T) {
	f := newFixture(t)
	f.searcher.err = errors.New("engine wiring broken")

	rec := f.do(t, http.MethodPost, "/search", search.Request{Query: "q"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSearch_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/search", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func waitForJob(t *testing.T, store jobs.Store, id string) jobs.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		if job.Status == jobs.StatusCompleted || job.Status == jobs.StatusFailed {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never finished", id)
	return jobs.Job{}
}

func TestIndex_ExplicitIDs(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/index", indexRequest{AwardIDs: []string{"AWD-7"}})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	body := decodeBody[indexResponse](t, rec)
	assert.NotEmpty(t, body.JobID)
	assert.Equal(t, 1, body.TotalAwards)

	job := waitForJob(t, f.jobStore, body.JobID)
	assert.Equal(t, jobs.StatusCompleted, job.Status)
}

func TestIndex_All(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/index", indexRequest{All: true})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	body := decodeBody[indexResponse](t, rec)
	assert.Equal(t, 2, body.TotalAwards)
}

func TestIndex_Since(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/index", indexRequest{Since: "2026-01-01T00:00:00Z"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestIndex_InvalidSince(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/index", indexRequest{Since: "yesterday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody[errorResponse](t, rec)
	assert.Contains(t, body.Error, "RFC3339")
}

func TestIndex_MissingTarget(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/index", indexRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIndex_FailedRunMarksJobFailed(t *testing.T) {
	f := newFixture(t)
	f.runner.err = errors.New("embedding provider down")

	rec := f.do(t, http.MethodPost, "/index", indexRequest{AwardIDs: []string{"AWD-1"}})
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := decodeBody[indexResponse](t, rec)
	job := waitForJob(t, f.jobStore, body.JobID)
	assert.Equal(t, jobs.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "embedding provider down")
}

func TestGetJob(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/index", indexRequest{AwardIDs: []string{"AWD-1"}})
	body := decodeBody[indexResponse](t, rec)
	waitForJob(t, f.jobStore, body.JobID)

	rec = f.do(t, http.MethodGet, "/jobs/"+body.JobID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	job := decodeBody[jobs.Job](t, rec)
	assert.Equal(t, body.JobID, job.ID)
	assert.Equal(t, jobs.StatusCompleted, job.Status)
}

func TestGetJob_Unknown(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/jobs/no-such-job", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJobs(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodPost, "/index", indexRequest{AwardIDs: []string{"AWD-1"}})
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	rec := f.do(t, http.MethodGet, "/jobs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string][]jobs.Job](t, rec)
	assert.Len(t, body["jobs"], 2)
}
