package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/grantsight/grantsight/internal/chunk"
	"github.com/grantsight/grantsight/internal/store"
)

type stubAwardStore struct {
	awards    []store.Award
	searchErr error
}

func (s *stubAwardStore) GetAwards(ctx context.Context, ids []string) ([]store.Award, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []store.Award
	for _, a := range s.awards {
		if want[a.AwardID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubAwardStore) SearchCandidates(ctx context.Context, query string, limit int) ([]store.Award, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	q := strings.ToLower(query)
	var out []store.Award
	for _, a := range s.awards {
		if strings.Contains(strings.ToLower(a.Title), q) ||
			strings.Contains(strings.ToLower(a.Abstract), q) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubAwardStore) ListAwardIDs(ctx context.Context, since time.Time, limit int) ([]string, error) {
	var ids []string
	for _, a := range s.awards {
		ids = append(ids, a.AwardID)
	}
	return ids, nil
}

func (s *stubAwardStore) CountAwards(ctx context.Context) (int64, error) {
	return int64(len(s.awards)), nil
}

type stubChunkStore struct {
	matches   []store.VectorMatch
	searchErr error
}

func (s *stubChunkStore) InsertChunks(ctx context.Context, chunks []chunk.Chunk) (int, error) {
	return 0, errors.New("not supported")
}

func (s *stubChunkStore) SearchVectors(ctx context.Context, query []float32, topK int, filter map[string]string) ([]store.VectorMatch, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if topK > 0 && len(s.matches) > topK {
		return s.matches[:topK], nil
	}
	return s.matches, nil
}

func (s *stubChunkStore) CountChunks(ctx context.Context) (int64, error) {
	return int64(len(s.matches)), nil
}

type stubEmbedder struct {
	dims     int
	embedErr error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	return make([]float32, s.dims), nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		vec, err := s.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return s.dims }

func (s *stubEmbedder) ModelName() string { return "stub-model" }

func (s *stubEmbedder) EstimateCost(tokens int) float64 { return 0 }

func (s *stubEmbedder) Close() error { return nil }
