package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/grantsight/grantsight/internal/chunk"
	"github.com/grantsight/grantsight/internal/config"
	"github.com/grantsight/grantsight/internal/embed"
	"github.com/grantsight/grantsight/internal/jobs"
	"github.com/grantsight/grantsight/internal/pipeline"
	"github.com/grantsight/grantsight/internal/search"
	"github.com/grantsight/grantsight/internal/server"
	"github.com/grantsight/grantsight/internal/store"
)

func newServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides config)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

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

	awards := store.NewPgAwardStore(pool)
	chunks, err := store.NewPgChunkStore(pool, cfg.Embedding.Dimensions)
	if err != nil {
		return err
	}

	engine := search.NewEngine(awards, chunks, embedder,
		search.WithSearchConfig(cfg.Search))

	pipes := server.PipelineFactory(func(progress pipeline.ProgressFunc) server.IndexRunner {
		return pipeline.New(chunker, embedder, awards, chunks,
			pipeline.WithBatchSize(cfg.Indexing.BatchSize),
			pipeline.WithEmbedBatchSize(cfg.Embedding.BatchSize),
			pipeline.WithMaxConcurrent(cfg.Indexing.MaxConcurrent),
			pipeline.WithProgress(progress))
	})

	srv := server.New(cfg.Server, engine, pipes, awards, jobs.NewMemoryStore(), pool, slog.Default())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutting down")
		return srv.Shutdown(context.Background())
	}
}
