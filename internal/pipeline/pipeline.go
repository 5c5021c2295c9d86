package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/grantsight/grantsight/internal/chunk"
	"github.com/grantsight/grantsight/internal/embed"
	"github.com/grantsight/grantsight/internal/store"
)

// DefaultBatchSize is the number of awards processed per batch.
const DefaultBatchSize = 50

// ProgressFunc receives progress updates as awards complete.
type ProgressFunc func(processed, total int)

// Pipeline runs the chunk -> embed -> store flow over award batches.
// One bad batch never aborts a run: a store or embed failure marks the
// batch's awards failed and the run continues.
type Pipeline struct {
	chunker  *chunk.Chunker
	embedder embed.Embedder
	awards   store.AwardStore
	chunks   store.ChunkStore

	batchSize      int
	embedBatchSize int
	maxConcurrent  int
	logger         *slog.Logger
	onProgress     ProgressFunc

	// cache maps text_hash -> embedding for the pipeline's lifetime.
	// Owned here, not global, so runs stay isolated and testable.
	mu    sync.Mutex
	cache map[string][]float32
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithBatchSize sets the awards-per-batch size.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) { p.batchSize = n }
}

// WithEmbedBatchSize sets the texts-per-provider-call size used by the
// async variant.
func WithEmbedBatchSize(n int) Option {
	return func(p *Pipeline) { p.embedBatchSize = n }
}

// WithMaxConcurrent bounds concurrent embedding sub-batches in the
// async variant.
func WithMaxConcurrent(n int) Option {
	return func(p *Pipeline) { p.maxConcurrent = n }
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.onProgress = fn }
}

// WithLogger overrides the pipeline's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// New creates an indexing pipeline.
func New(chunker *chunk.Chunker, embedder embed.Embedder, awards store.AwardStore, chunks store.ChunkStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		chunker:        chunker,
		embedder:       embedder,
		awards:         awards,
		chunks:         chunks,
		batchSize:      DefaultBatchSize,
		embedBatchSize: embed.DefaultBatchSize,
		maxConcurrent:  embed.DefaultMaxConcurrent,
		logger:         slog.Default(),
		cache:          make(map[string][]float32),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run indexes the given awards with synchronous embedding calls.
func (p *Pipeline) Run(ctx context.Context, awardIDs []string) (*RunStats, error) {
	return p.run(ctx, awardIDs, p.embedSync)
}

// RunAsync indexes the given awards with embedding sub-batches running
// concurrently under the configured bound. Storage side effects and
// statistics are equivalent to Run.
func (p *Pipeline) RunAsync(ctx context.Context, awardIDs []string) (*RunStats, error) {
	return p.run(ctx, awardIDs, p.embedAsync)
}

type embedFunc func(ctx context.Context, texts []string) ([][]float32, error)

func (p *Pipeline) run(ctx context.Context, awardIDs []string, embedBatch embedFunc) (*RunStats, error) {
	stats := newRunStats(len(awardIDs))

	p.logger.Info("indexing run started",
		slog.Int("awards", len(awardIDs)),
		slog.Int("batch_size", p.batchSize))

	for start := 0; start < len(awardIDs); start += p.batchSize {
		end := min(start+p.batchSize, len(awardIDs))
		batch := awardIDs[start:end]

		processed, err := p.processBatch(ctx, batch, embedBatch, stats)
		if err != nil {
			if ctx.Err() != nil {
				stats.finish()
				return stats, ctx.Err()
			}
			p.logger.Error("batch failed, continuing run",
				slog.Int("batch_start", start),
				slog.Int("batch_size", len(batch)),
				slog.String("error", err.Error()))
			stats.markFailed(batch)
		} else {
			stats.ProcessedAwards += processed
		}

		if p.onProgress != nil {
			p.onProgress(stats.ProcessedAwards+stats.FailedAwards, stats.TotalAwards)
		}
	}

	stats.finish()
	p.logger.Info("indexing run finished",
		slog.Int("processed", stats.ProcessedAwards),
		slog.Int("failed", stats.FailedAwards),
		slog.Int("chunks", stats.TotalChunks),
		slog.Int("cached", stats.CachedChunks),
		slog.Int("new", stats.NewChunks),
		slog.Int("tokens", stats.TotalTokens),
		slog.Float64("estimated_cost", stats.EstimatedCost),
		slog.Float64("duration_s", stats.DurationSeconds))
	return stats, nil
}

// processBatch runs chunk -> embed -> store for one batch and returns
// how many awards were processed. Any returned error fails the whole
// batch.
func (p *Pipeline) processBatch(ctx context.Context, ids []string, embedBatch embedFunc, stats *RunStats) (int, error) {
	awards, err := p.awards.GetAwards(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("fetch awards: %w", err)
	}

	// Ids missing from the store fail individually, not the batch.
	if len(awards) < len(ids) {
		found := make(map[string]bool, len(awards))
		for _, a := range awards {
			found[a.AwardID] = true
		}
		var missing []string
		for _, id := range ids {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		stats.markFailed(missing)
	}

	// Chunking is CPU-light and share-nothing across awards.
	chunkSets := make([][]chunk.Chunk, len(awards))
	g, _ := errgroup.WithContext(ctx)
	for i, a := range awards {
		g.Go(func() error {
			chunkSets[i] = p.chunker.ChunkAward(a.AwardID, a.Title, a.Abstract)
			return nil
		})
	}
	_ = g.Wait()

	var all []chunk.Chunk
	for _, set := range chunkSets {
		all = append(all, set...)
	}
	stats.TotalChunks += len(all)

	// Consult the hash cache before embedding anything. The context
	// pass can reproduce an abstract span verbatim, so identical texts
	// within the batch share one provider slot and are billed once.
	missSlot := make(map[string]int)
	var missIndices [][]int
	var missTexts []string
	for i := range all {
		if vec, ok := p.cacheGet(all[i].TextHash); ok {
			all[i].Embedding = vec
			stats.CachedChunks++
			continue
		}
		if slot, ok := missSlot[all[i].TextHash]; ok {
			missIndices[slot] = append(missIndices[slot], i)
			continue
		}
		missSlot[all[i].TextHash] = len(missTexts)
		missIndices = append(missIndices, []int{i})
		missTexts = append(missTexts, all[i].Text)
	}

	if len(missTexts) > 0 {
		vectors, err := embedBatch(ctx, missTexts)
		if err != nil {
			return 0, fmt.Errorf("embed batch: %w", err)
		}
		newTokens := 0
		for j, vec := range vectors {
			if vec == nil {
				continue
			}
			for k, idx := range missIndices[j] {
				c := &all[idx]
				c.Embedding = vec
				if k == 0 {
					p.cachePut(c.TextHash, vec)
					stats.NewChunks++
					newTokens += c.TokenCount
				} else {
					stats.CachedChunks++
				}
			}
		}
		stats.TotalTokens += newTokens
		stats.EstimatedCost += p.embedder.EstimateCost(newTokens)
	}

	// Persist only chunks that received an embedding, one bulk call.
	embedded := all[:0:0]
	for _, c := range all {
		if c.Embedding != nil {
			embedded = append(embedded, c)
		}
	}
	if len(embedded) > 0 {
		inserted, err := p.chunks.InsertChunks(ctx, embedded)
		if err != nil {
			return 0, fmt.Errorf("store chunks: %w", err)
		}
		stats.InsertedChunks += inserted
	}

	return len(awards), nil
}

func (p *Pipeline) embedSync(ctx context.Context, texts []string) ([][]float32, error) {
	return p.embedder.EmbedBatch(ctx, texts)
}

func (p *Pipeline) embedAsync(ctx context.Context, texts []string) ([][]float32, error) {
	return embed.EmbedBatchAsync(ctx, p.embedder, texts, p.embedBatchSize, p.maxConcurrent)
}

func (p *Pipeline) cacheGet(hash string) ([]float32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	vec, ok := p.cache[hash]
	return vec, ok
}

func (p *Pipeline) cachePut(hash string, vec []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[hash] = vec
}

// CacheSize returns the number of cached embeddings.
func (p *Pipeline) CacheSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}
