package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-books/internal/app"
	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
)

type env struct {
	cfg    *app.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Maintenance commands for the multi-entity ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.logger = app.NewLogger(cfg)
			return nil
		},
	}

	root.AddCommand(
		newMigrateCommand(e),
		newIntegrityCommand(e),
		newTrialBalanceCommand(e),
		newEntitiesCommand(e),
	)
	return root
}

func (e *env) pool(ctx context.Context) (*pgxpool.Pool, error) {
	return db.New(ctx, e.cfg.PGDSN)
}

// ledger wires the services without a report cache.
func (e *env) ledger(ctx context.Context) (*app.Ledger, func(), error) {
	pool, err := e.pool(ctx)
	if err != nil {
		return nil, nil, err
	}
	books, err := app.NewLedger(app.LedgerDeps{Pool: pool, Config: e.cfg, Logger: e.logger})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return books, pool.Close, nil
}
