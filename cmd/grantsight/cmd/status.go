package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grantsight/grantsight/internal/store"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show corpus and index counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			pool, err := store.Connect(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			awards := store.NewPgAwardStore(pool)
			chunks, err := store.NewPgChunkStore(pool, cfg.Embedding.Dimensions)
			if err != nil {
				return err
			}

			awardCount, err := awards.CountAwards(cmd.Context())
			if err != nil {
				return err
			}
			chunkCount, err := chunks.CountChunks(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Awards:      %d\n", awardCount)
			fmt.Printf("Chunks:      %d\n", chunkCount)
			fmt.Printf("Provider:    %s (%s, %d dims)\n",
				cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.Dimensions)
			fmt.Printf("Weights:     alpha=%.2f beta=%.2f\n", cfg.Search.Alpha, cfg.Search.Beta)
			return nil
		},
	}
}
