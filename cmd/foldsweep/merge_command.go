package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"foldsweep/internal/config"
	"foldsweep/internal/ledger"
	"foldsweep/internal/logging"
	"foldsweep/internal/merge"
	"foldsweep/internal/preflight"
	"foldsweep/internal/services"
	"foldsweep/internal/species"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var outputFlag string
	var rootFlag string
	var workers int

	cmd := &cobra.Command{
		Use:   "merge <species_table> <reference_species> <top_k> <cutoff>",
		Short: "Pool per-species shards into ranked master records",
		Long: "Merge collects the entity IDs of the reference species structures, pools the\n" +
			"matching shards of every species in the table, keeps alignments with an e-value\n" +
			"at or below the cutoff, and writes the top_k best per entity.",
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			topK, cutoff, err := parseMergeBounds(args[2], args[3])
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = cfg.Merge.Workers
			}

			root := strings.TrimSpace(rootFlag)
			if root != "" {
				if root, err = config.ExpandPath(root); err != nil {
					return fmt.Errorf("resolve table root: %w", err)
				}
			}
			table, err := species.LoadTable(args[0], root)
			if err != nil {
				return err
			}
			reference, err := table.Require("reference", args[1])
			if err != nil {
				return err
			}
			structureDir := referenceStructureDir(cfg, reference)
			if err := requirePreflight("merge", []preflight.Result{
				preflight.CheckReadableDir("Reference structures", structureDir),
			}); err != nil {
				return err
			}

			outputDir := strings.TrimSpace(outputFlag)
			if outputDir == "" {
				outputDir = cfg.MasterDir(reference.Name)
			} else if outputDir, err = config.ExpandPath(outputDir); err != nil {
				return fmt.Errorf("resolve output dir: %w", err)
			}

			ids, err := merge.CollectReferenceIDs(structureDir)
			if err != nil {
				return err
			}
			merger, err := merge.New(table.All(), outputDir, topK, cutoff,
				merge.WithLogger(logger),
				merge.WithWorkers(workers),
			)
			if err != nil {
				return err
			}

			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.BeginRun(cmd.Context(), ledger.Run{
				Kind:      ledger.KindMerge,
				Reference: reference.Name,
				Params: map[string]any{
					"top_k":      topK,
					"cutoff":     cutoff,
					"workers":    workers,
					"output_dir": outputDir,
					"species":    len(table.All()),
				},
			})
			if err != nil {
				return err
			}

			runCtx, stop := signalContext(cmd)
			defer stop()
			runCtx = services.WithRunID(runCtx, run.ID)

			summary, runErr := merger.All(runCtx, merge.SortedIDs(ids))
			for _, res := range summary.Results {
				if err := store.RecordItem(cmd.Context(), mergeItem(run.ID, res)); err != nil {
					logger.Warn("ledger write failed", logging.String(logging.FieldEntityID, res.EntityID), logging.Error(err))
				}
			}
			if err := store.FinishRun(cmd.Context(), run.ID); err != nil {
				logger.Warn("ledger finish failed", logging.Error(err))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, []string{"Merge", "Count"}, mergeSummaryRows(summary), []columnAlignment{alignLeft, alignRight}))
			fmt.Fprintf(out, "Master records: %s\n", outputDir)
			return runErr
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Master record directory (default <alignments_dir>/<reference>_alignments)")
	cmd.Flags().StringVar(&rootFlag, "root", "", "Directory that relative species table paths resolve against")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Entities merged concurrently (default merge.workers)")
	return cmd
}

func parseMergeBounds(topKArg, cutoffArg string) (int, float64, error) {
	topK, err := strconv.Atoi(strings.TrimSpace(topKArg))
	if err != nil {
		return 0, 0, services.Wrap(services.ErrConfiguration, "merge", "arguments", fmt.Sprintf("top_k %q is not an integer", topKArg), nil)
	}
	cutoff, err := strconv.ParseFloat(strings.TrimSpace(cutoffArg), 64)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrConfiguration, "merge", "arguments", fmt.Sprintf("cutoff %q is not a number", cutoffArg), nil)
	}
	if err := config.ValidateMergeBounds(topK, cutoff); err != nil {
		return 0, 0, services.Wrap(services.ErrConfiguration, "merge", "arguments", "", err)
	}
	return topK, cutoff, nil
}

func mergeItem(runID string, res merge.Result) ledger.Item {
	item := ledger.Item{
		RunID:  runID,
		Key:    res.EntityID,
		Reason: res.Reason,
	}
	switch res.Status {
	case merge.StatusWritten:
		item.Status = ledger.StatusSucceeded
		item.Path = res.Output
		item.Detail = fmt.Sprintf("species=%d pooled=%d kept=%d", res.SpeciesFound, res.Pooled, res.Kept)
	case merge.StatusSkipped:
		item.Status = ledger.StatusSkipped
	default:
		item.Status = ledger.StatusFailed
		if res.Err != nil {
			item.Reason = services.Kind(res.Err)
			item.Detail = res.Err.Error()
		}
	}
	return item
}

func mergeSummaryRows(summary merge.Summary) [][]string {
	rows := [][]string{
		{"Entities", strconv.Itoa(len(summary.Results))},
		{"Written", strconv.Itoa(summary.Written)},
		{"Skipped", strconv.Itoa(summary.Skipped)},
	}
	reasons := make([]string, 0, len(summary.Reasons))
	for reason := range summary.Reasons {
		reasons = append(reasons, reason)
	}
	slices.Sort(reasons)
	for _, reason := range reasons {
		rows = append(rows, []string{"  " + reason, strconv.Itoa(summary.Reasons[reason])})
	}
	return append(rows, []string{"Failed", strconv.Itoa(summary.Failed)})
}
