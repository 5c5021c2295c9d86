package embed

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// EmbedBatchAsync embeds texts in sub-batches of batchSize running
// concurrently under a maxConcurrent limit. A sub-batch that fails
// after retries yields nil embeddings for its positions only; other
// sub-batches are unaffected. The output is positionally aligned with
// the input.
func EmbedBatchAsync(ctx context.Context, e Embedder, texts []string, batchSize, maxConcurrent int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}

	results := make([][]float32, len(texts))
	sem := semaphore.NewWeighted(int64(maxConcurrent))
	var wg sync.WaitGroup

	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled; wait for in-flight batches before
			// returning what we have.
			wg.Wait()
			return results, err
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			defer sem.Release(1)

			vectors, err := e.EmbedBatch(ctx, texts[start:end])
			if err != nil {
				slog.Warn("embedding sub-batch failed",
					slog.Int("start", start),
					slog.Int("size", end-start),
					slog.String("error", err.Error()))
				return
			}
			// Sub-batches write disjoint ranges.
			copy(results[start:end], vectors)
		}(start, end)
	}

	wg.Wait()
	return results, nil
}
