package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"foldsweep/internal/config"
	"foldsweep/internal/extract"
	"foldsweep/internal/ledger"
	"foldsweep/internal/logging"
	"foldsweep/internal/preflight"
	"foldsweep/internal/services"
	"foldsweep/internal/species"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "extract <input_dir> <species_name> <annotation_tsv>",
		Short: "Normalize raw search result pages into per-entity JSON shards",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = cfg.Extract.Workers
			}

			inputDir, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve input dir: %w", err)
			}
			if err := requirePreflight("extract", []preflight.Result{
				preflight.CheckReadableDir("Input directory", inputDir),
			}); err != nil {
				return err
			}
			speciesName := args[1]

			annotations, err := species.LoadAnnotations(args[2], cfg.Extract.AnnotationDefault)
			if err != nil {
				return err
			}
			if annotations.Len() == 0 {
				logger.Warn("annotation table has no usable rows; every hit will use the fallback annotation",
					logging.String("path", args[2]),
					logging.Alert("empty_annotations"),
				)
			}

			extractor, err := extract.New(speciesName, annotations, workers, extract.WithLogger(logger))
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "extract", "init", "", err)
			}

			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.BeginRun(cmd.Context(), ledger.Run{
				Kind:   ledger.KindExtract,
				Target: speciesName,
				Params: map[string]any{
					"input_dir":   inputDir,
					"annotations": args[2],
					"workers":     workers,
				},
			})
			if err != nil {
				return err
			}

			runCtx, stop := signalContext(cmd)
			defer stop()
			runCtx = services.WithRunID(runCtx, run.ID)

			summary, runErr := extractor.Dir(runCtx, inputDir)
			for _, file := range summary.Files {
				if err := store.RecordItem(cmd.Context(), extractItem(run.ID, inputDir, file)); err != nil {
					logger.Warn("ledger write failed", logging.String("path", file.Source), logging.Error(err))
				}
			}
			if err := store.FinishRun(cmd.Context(), run.ID); err != nil {
				logger.Warn("ledger finish failed", logging.Error(err))
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Processed", strconv.Itoa(summary.Processed)},
				{"Written", strconv.Itoa(summary.Written)},
				{"Failed", strconv.Itoa(summary.Failed)},
				{"Records", strconv.Itoa(summary.Stats.Records)},
				{"Alignments", strconv.Itoa(summary.Stats.Alignments)},
				{"Self-hits dropped", strconv.Itoa(summary.Stats.SelfHits)},
			}
			fmt.Fprintln(out, renderTable(out, []string{"Extract", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			for _, failed := range summary.FailedFiles {
				fmt.Fprintf(out, "FAILED → %s\n", failed)
			}
			return runErr
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Files processed concurrently (default extract.workers)")
	return cmd
}

func extractItem(runID, root string, file extract.FileResult) ledger.Item {
	key := file.Source
	if rel, err := filepath.Rel(root, file.Source); err == nil {
		key = rel
	}
	item := ledger.Item{
		RunID:  runID,
		Key:    key,
		Status: ledger.StatusSucceeded,
		Path:   file.Output,
	}
	if file.Err != nil {
		item.Status = ledger.StatusFailed
		item.Reason = services.Kind(file.Err)
		item.Detail = file.Err.Error()
		item.Path = ""
	}
	return item
}
