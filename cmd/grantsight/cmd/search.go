package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grantsight/grantsight/internal/embed"
	"github.com/grantsight/grantsight/internal/output"
	"github.com/grantsight/grantsight/internal/search"
	"github.com/grantsight/grantsight/internal/store"
)

func newSearchCmd() *cobra.Command {
	var (
		topK    int
		alpha   float64
		beta    float64
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a one-shot hybrid search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")

			pool, err := store.Connect(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			embedder, err := embed.New(cfg.Embedding)
			if err != nil {
				return err
			}
			defer func() { _ = embedder.Close() }()

			awards := store.NewPgAwardStore(pool)
			chunks, err := store.NewPgChunkStore(pool, cfg.Embedding.Dimensions)
			if err != nil {
				return err
			}

			engine := search.NewEngine(awards, chunks, embedder,
				search.WithSearchConfig(cfg.Search))

			req := search.Request{Query: query, TopK: topK}
			if cmd.Flags().Changed("alpha") {
				req.Alpha = &alpha
			}
			if cmd.Flags().Changed("beta") {
				req.Beta = &beta
			}

			resp, err := engine.Search(cmd.Context(), req)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			fmt.Print(output.RenderResponse(resp))
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results (default from config)")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "Semantic weight in [0,1]")
	cmd.Flags().Float64Var(&beta, "beta", 0, "Lexical boost >= 0")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON instead of styled text")
	return cmd
}
