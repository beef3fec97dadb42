package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"foldsweep/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show entries from the JSON log file",
		Long: "Logs prints the last lines of the log file written when logging.file is\n" +
			"enabled. Filter by run ID prefix, event type (job_failed, merge_skipped, ...)\n" +
			"or level; --follow keeps printing new matching entries until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Logging.File {
				fmt.Fprintln(cmd.ErrOrStderr(), "logging.file is disabled; showing any existing log file")
			}
			path := cfg.LogPath()
			out := cmd.OutOrStdout()

			runCtx, stop := signalContext(cmd)
			defer stop()

			result, err := logs.Tail(runCtx, path, logs.TailOptions{Offset: -1, Limit: lines, Filter: filter})
			if err != nil {
				return err
			}
			for _, line := range result.Lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			offset := result.Offset
			for {
				result, err := logs.Tail(runCtx, path, logs.TailOptions{Offset: offset, Wait: 5 * time.Second, Filter: filter})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				for _, line := range result.Lines {
					fmt.Fprintln(out, line)
				}
				offset = result.Offset
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries")
	cmd.Flags().StringVar(&filter.RunID, "run", "", "Only entries whose run_id starts with this value")
	cmd.Flags().StringVar(&filter.EventType, "event", "", "Only entries with this event_type")
	cmd.Flags().StringVar(&filter.Level, "level", "", "Only entries at this level")
	return cmd
}
