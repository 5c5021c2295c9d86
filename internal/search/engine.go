package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grantsight/grantsight/internal/config"
	"github.com/grantsight/grantsight/internal/embed"
	"github.com/grantsight/grantsight/internal/store"
)

// Engine wires the lexical and semantic searchers together with the
// hybrid scorer and grouping.
type Engine struct {
	lexical  *Lexical
	semantic *Semantic
	cfg      config.SearchConfig
	logger   *slog.Logger
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithSearchConfig overrides the default search configuration.
func WithSearchConfig(cfg config.SearchConfig) EngineOption {
	return func(e *Engine) { e.cfg = cfg }
}

// WithLogger overrides the engine's logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates a search engine over the given stores and embedder.
func NewEngine(awards store.AwardStore, chunks store.ChunkStore, embedder embed.Embedder, opts ...EngineOption) *Engine {
	e := &Engine{
		lexical:  NewLexical(awards),
		semantic: NewSemantic(embedder, chunks, awards),
		cfg:      config.Default().Search,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs one hybrid query. Lexical and semantic searches run
// concurrently; a failure on either side degrades that side to an
// empty list. Only when both sides fail is an all-empty response with
// zero counts returned, still without error.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	topK, alpha, beta, err := e.resolveParams(req)
	if err != nil {
		return nil, err
	}
	query := strings.TrimSpace(req.Query)

	var lexResults, semResults []Result
	var lexErr, semErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lexResults, lexErr = e.lexical.Search(gctx, query, topK)
		// Errors are captured, not returned, so one side failing
		// never cancels the other.
		return nil
	})
	g.Go(func() error {
		semResults, semErr = e.semantic.Search(gctx, query, topK)
		return nil
	})
	_ = g.Wait()

	if lexErr != nil {
		e.logger.Warn("lexical search failed, degrading to empty",
			slog.String("query", query), slog.String("error", lexErr.Error()))
		lexResults = nil
	}
	if semErr != nil {
		e.logger.Warn("semantic search failed, degrading to empty",
			slog.String("query", query), slog.String("error", semErr.Error()))
		semResults = nil
	}
	if lexErr != nil && semErr != nil {
		e.logger.Error("both search paths failed",
			slog.String("query", query),
			slog.String("error", errors.Join(lexErr, semErr).Error()))
	}

	// Hybrid combination is a pure in-memory step after the join point.
	combined := Combine(lexResults, semResults, alpha, beta, topK)

	resp := &Response{
		Query:           query,
		HybridResults:   Group(combined, true),
		LexicalResults:  Group(asHybrid(lexResults, func(r Result) float64 { return r.LexicalScore }), true),
		SemanticResults: Group(asHybrid(semResults, func(r Result) float64 { return r.SemanticScore }), true),
	}
	resp.Metadata = Metadata{
		TotalHybrid:   len(resp.HybridResults),
		TotalLexical:  len(resp.LexicalResults),
		TotalSemantic: len(resp.SemanticResults),
		Alpha:         alpha,
		Beta:          beta,
		TookMS:        time.Since(start).Milliseconds(),
	}

	e.logger.Debug("search complete",
		slog.String("query", query),
		slog.Int("hybrid", resp.Metadata.TotalHybrid),
		slog.Int("lexical", resp.Metadata.TotalLexical),
		slog.Int("semantic", resp.Metadata.TotalSemantic),
		slog.Int64("took_ms", resp.Metadata.TookMS))

	return resp, nil
}

func (e *Engine) resolveParams(req Request) (topK int, alpha, beta float64, err error) {
	if strings.TrimSpace(req.Query) == "" {
		return 0, 0, 0, fmt.Errorf("%w: query must not be empty", ErrInvalidRequest)
	}

	topK = req.TopK
	if topK == 0 {
		topK = e.cfg.DefaultTopK
	}
	if topK < 1 || topK > e.cfg.MaxTopK {
		return 0, 0, 0, fmt.Errorf("%w: top_k must be in [1,%d], got %d",
			ErrInvalidRequest, e.cfg.MaxTopK, req.TopK)
	}

	alpha = e.cfg.Alpha
	if req.Alpha != nil {
		alpha = *req.Alpha
	}
	if alpha < 0 || alpha > 1 {
		return 0, 0, 0, fmt.Errorf("%w: alpha must be in [0,1], got %g", ErrInvalidRequest, alpha)
	}

	beta = e.cfg.Beta
	if req.Beta != nil {
		beta = *req.Beta
	}
	if beta < 0 {
		return 0, 0, 0, fmt.Errorf("%w: beta must be >= 0, got %g", ErrInvalidRequest, beta)
	}

	return topK, alpha, beta, nil
}

// asHybrid wraps single-type results for grouping, using the given
// score as the group ordering key.
func asHybrid(results []Result, score func(Result) float64) []HybridResult {
	out := make([]HybridResult, 0, len(results))
	for _, r := range results {
		out = append(out, HybridResult{Result: r, FinalScore: score(r)})
	}
	return out
}
