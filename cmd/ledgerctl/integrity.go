package main

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-books/jobs"
)

func newIntegrityCommand(e *env) *cobra.Command {
	var (
		entity string
		asOf   string
		run    bool
	)
	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "Check that every entity's posted journals balance",
		Long: "Enqueue the ledger:gl_integrity task for the worker, or run the scan in\n" +
			"this process with --run. Exits non-zero when violations are found.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if !run {
				client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: e.cfg.RedisAddr})
				if err != nil {
					return err
				}
				defer client.Close()
				info, err := client.EnqueueGLIntegrity(ctx, entity, asOf)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
				return nil
			}

			books, closeFn, err := e.ledger(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			job := jobs.NewGLIntegrityJob(books.Resolver, books.Reports, e.logger, nil)
			result, err := job.Run(ctx, jobs.GLIntegrityPayload{EntityID: entity, AsOf: asOf})
			for _, f := range result.Failures {
				fmt.Fprintf(out, "entity %s as of %s: difference %s, %d unbalanced journals\n",
					f.EntityID, f.AsOf.Format("2006-01-02"), f.Difference.StringFixed(2), len(f.Unbalanced))
				for _, j := range f.Unbalanced {
					fmt.Fprintf(out, "  JV-%d-%06d %s debit %s credit %s\n",
						j.Date.Year(), j.Number, j.JournalID, j.Debit.StringFixed(2), j.Credit.StringFixed(2))
				}
			}
			if err != nil && !errors.Is(err, jobs.ErrIntegrityViolation) {
				return err
			}
			fmt.Fprintf(out, "%d entities scanned, %d failed\n", result.Scanned, len(result.Failures))
			return err
		},
	}
	cmd.Flags().StringVar(&entity, "entity", "all", "entity id, or all")
	cmd.Flags().StringVar(&asOf, "as-of", "", "cut-off date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&run, "run", false, "run the scan here instead of enqueueing it")
	return cmd
}
