package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grantsight/grantsight/internal/store"
)

func newSchemaCmd() *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Create the database schema (tables, constraints, ANN index)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if printOnly {
				for _, stmt := range store.SchemaSQL(cfg.Embedding.Dimensions) {
					fmt.Println(stmt + ";")
				}
				return nil
			}

			pool, err := store.Connect(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := store.CreateSchema(cmd.Context(), pool, cfg.Embedding.Dimensions); err != nil {
				return err
			}
			fmt.Println("Schema applied.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the DDL instead of applying it")
	return cmd
}
