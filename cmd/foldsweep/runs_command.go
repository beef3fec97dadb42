package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"foldsweep/internal/ledger"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded pipeline runs",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.requireLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				counts, err := store.Counts(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					shortID(run.ID),
					string(run.Kind),
					dash(run.Reference),
					dash(run.Target),
					formatTimestamp(run.StartedAt),
					runState(run),
					strconv.Itoa(counts[ledger.StatusSucceeded]),
					strconv.Itoa(counts[ledger.StatusSkipped]),
					strconv.Itoa(counts[ledger.StatusFailed]),
				})
			}
			headers := []string{"ID", "Kind", "Reference", "Target", "Started", "State", "OK", "Skipped", "Failed"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}
			fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "show <run_id>",
		Short: "Show a run and its recorded items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.requireLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			items, err := store.Items(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			counts, err := store.Counts(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:       %s\n", run.ID)
			fmt.Fprintf(out, "Kind:      %s\n", run.Kind)
			fmt.Fprintf(out, "Reference: %s\n", dash(run.Reference))
			fmt.Fprintf(out, "Target:    %s\n", dash(run.Target))
			fmt.Fprintf(out, "Started:   %s\n", formatTimestamp(run.StartedAt))
			fmt.Fprintf(out, "Finished:  %s\n", formatTimestamp(run.FinishedAt))
			fmt.Fprintf(out, "Items:     %d succeeded, %d skipped, %d failed\n",
				counts[ledger.StatusSucceeded], counts[ledger.StatusSkipped], counts[ledger.StatusFailed])

			filter := strings.ToLower(strings.TrimSpace(statusFilter))
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				if filter != "" && item.Status != filter {
					continue
				}
				rows = append(rows, []string{item.Key, item.Status, dash(item.Reason), dash(item.Path)})
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No items")
				return nil
			}
			fmt.Fprintln(out, renderTable(out, []string{"Item", "Status", "Reason", "Path"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show items with this status (succeeded, skipped, failed)")
	return cmd
}

func runState(run ledger.Run) string {
	if run.Finished() {
		return "finished"
	}
	return "open"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
