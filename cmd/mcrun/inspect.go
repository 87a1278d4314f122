package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seantiz/montecarlo/internal/store"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "inspect [name]",
		Short: "List checkpoints, or print one as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("group") {
				group = opts.cfg.Checkpoint.Group
			}

			db, err := store.NewSQLiteStore(opts.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				cp, err := db.GetCheckpoint(cmd.Context(), group, args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cp)
			}

			list, err := db.ListCheckpoints(cmd.Context(), group)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "GROUP\tNAME\tRUN ID\tCYCLES\tMEASURES\tCREATED")
			for _, cp := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", cp.Group, cp.Name, cp.RunID,
					cp.CurrentCycleNumber, cp.NMeasures, cp.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&group, "group", "", "checkpoint group (defaults to the configured group)")
	return cmd
}
