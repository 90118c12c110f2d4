package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
	"github.com/odyssey-erp/odyssey-books/migrations"
)

func newMigrateCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := e.pool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			result, err := db.Migrate(ctx, pool, migrations.FS, e.logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range result.Applied {
				fmt.Fprintf(out, "[APPLY] %s\n", name)
			}
			for _, name := range result.Skipped {
				fmt.Fprintf(out, "[SKIP]  %s\n", name)
			}
			fmt.Fprintf(out, "%d applied, %d already present\n", len(result.Applied), len(result.Skipped))
			return nil
		},
	}
}
