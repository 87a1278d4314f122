package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seantiz/montecarlo/internal/api"
	"github.com/seantiz/montecarlo/internal/store"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve stored checkpoints over HTTP without running a simulation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := opts.cfg, opts.logger

			logger.Info("mcrun: starting",
				"listen_addr", cfg.ListenAddr,
				"db_path", cfg.DBPath,
			)

			db, err := store.NewSQLiteStore(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return api.NewServer(cfg.ListenAddr, db, nil, logger).Run(ctx)
		},
	}
}
