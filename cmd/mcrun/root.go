package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/seantiz/montecarlo/internal/config"
)

// rootOptions carries what the persistent flags resolve to.
type rootOptions struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "mcrun",
		Short:         "Metropolis Monte Carlo simulations with checkpointing",
		Version:       version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.LogLevel = config.ParseLogLevel(opts.logLevel)
			}
			opts.cfg = cfg
			opts.logger = config.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newRunCmd(opts),
		newServeCmd(opts),
		newInspectCmd(opts),
	)
	return cmd
}
