package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/grantsight/grantsight/internal/chunk"
	"github.com/grantsight/grantsight/internal/config"
	"github.com/grantsight/grantsight/internal/embed"
	"github.com/grantsight/grantsight/internal/pipeline"
	"github.com/grantsight/grantsight/internal/store"
)

func newIndexCmd() *cobra.Command {
	var (
		ids         []string
		since       string
		all         bool
		batchSize   int
		concurrency int
		async       bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Run the indexing pipeline (chunk, embed, store)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if batchSize > 0 {
				cfg.Indexing.BatchSize = batchSize
			}
			if concurrency > 0 {
				cfg.Indexing.MaxConcurrent = concurrency
			}
			return runIndex(cmd.Context(), cfg, ids, since, all, async)
		},
	}

	cmd.Flags().StringSliceVar(&ids, "ids", nil, "Award ids to index")
	cmd.Flags().StringVar(&since, "since", "", "Index awards updated since this RFC3339 timestamp")
	cmd.Flags().BoolVar(&all, "all", false, "Index the whole corpus")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Awards per batch (overrides config)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Concurrent embedding sub-batches (overrides config)")
	cmd.Flags().BoolVar(&async, "async", true, "Run embedding sub-batches concurrently")
	return cmd
}

func runIndex(ctx context.Context, cfg *config.Config, ids []string, since string, all, async bool) error {
	// One indexing run per database at a time; the hash conflict rule
	// makes re-runs idempotent, but concurrent runs just waste tokens.
	lock := flock.New(cfg.Indexing.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire index lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another indexing run is in progress (lock: %s)", cfg.Indexing.LockFile)
	}
	defer func() { _ = lock.Unlock() }()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	awards := store.NewPgAwardStore(pool)
	chunks, err := store.NewPgChunkStore(pool, cfg.Embedding.Dimensions)
	if err != nil {
		return err
	}

	targetIDs, err := resolveIndexTarget(ctx, awards, ids, since, all)
	if err != nil {
		return err
	}
	if len(targetIDs) == 0 {
		fmt.Println("Nothing to index.")
		return nil
	}

	embedder, err := embed.New(cfg.Embedding)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	chunker, err := chunk.New(chunk.Config{
		ChunkSize:         cfg.Chunking.ChunkSize,
		ChunkOverlap:      cfg.Chunking.ChunkOverlap,
		TitleChunkSize:    cfg.Chunking.TitleChunkSize,
		TitleChunkOverlap: cfg.Chunking.TitleChunkOverlap,
	})
	if err != nil {
		return err
	}

	pipe := pipeline.New(chunker, embedder, awards, chunks,
		pipeline.WithBatchSize(cfg.Indexing.BatchSize),
		pipeline.WithEmbedBatchSize(cfg.Embedding.BatchSize),
		pipeline.WithMaxConcurrent(cfg.Indexing.MaxConcurrent),
		pipeline.WithProgress(func(processed, total int) {
			slog.Info("indexing progress", slog.Int("processed", processed), slog.Int("total", total))
		}))

	var stats *pipeline.RunStats
	if async {
		stats, err = pipe.RunAsync(ctx, targetIDs)
	} else {
		stats, err = pipe.Run(ctx, targetIDs)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func resolveIndexTarget(ctx context.Context, awards store.AwardStore, ids []string, since string, all bool) ([]string, error) {
	switch {
	case len(ids) > 0:
		return ids, nil
	case since != "":
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return nil, fmt.Errorf("invalid --since %q: want RFC3339", since)
		}
		return awards.ListAwardIDs(ctx, ts, 0)
	case all:
		return awards.ListAwardIDs(ctx, time.Time{}, 0)
	default:
		return nil, fmt.Errorf("one of --ids, --since or --all is required")
	}
}
