package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"foldsweep/internal/config"
	"foldsweep/internal/ledger"
	"foldsweep/internal/logging"
	"foldsweep/internal/preflight"
	"foldsweep/internal/search"
	"foldsweep/internal/services"
	"foldsweep/internal/species"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var orderFlag string
	var workers int
	var skipExisting bool

	cmd := &cobra.Command{
		Use:   "search <species_table> <target_species> <reference_species> <shared_root>",
		Short: "Search every reference structure against a target species database",
		Long: "Search runs the structure search tool once per reference structure against the\n" +
			"target species database and writes one result page per entity into the target\n" +
			"species result directory. Run a second pass with --order desc to split the\n" +
			"work; entities claimed by the other pass are skipped.",
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

			order, err := search.ParseOrder(orderFlag)
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = cfg.Search.Workers
			}
			sharedRoot, err := config.ExpandPath(args[3])
			if err != nil {
				return fmt.Errorf("resolve shared root: %w", err)
			}
			table, err := species.LoadTable(args[0], sharedRoot)
			if err != nil {
				return err
			}
			target, err := table.Require("target", args[1])
			if err != nil {
				return err
			}
			reference, err := table.Require("reference", args[2])
			if err != nil {
				return err
			}
			structureDir := referenceStructureDir(cfg, reference)

			checks := []preflight.Result{
				preflight.CheckReadableDir("Reference structures", structureDir),
				preflight.CheckTargetDB("Target database", target.TargetDB),
			}
			for _, status := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				checks = append(checks, preflight.FromDependency(status))
			}
			if err := requirePreflight("search", checks); err != nil {
				return err
			}
			for _, check := range checks {
				if check.Warning != "" {
					logger.Warn("preflight warning",
						logging.String("check", check.Name),
						logging.String("warning", check.Warning),
						logging.Alert("preflight_warning"),
					)
				}
			}

			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.BeginRun(cmd.Context(), ledger.Run{
				Kind:      ledger.KindSearch,
				Reference: reference.Name,
				Target:    target.Name,
				Params: map[string]any{
					"order":         string(order),
					"workers":       workers,
					"shared_root":   sharedRoot,
					"structure_dir": structureDir,
					"target_db":     target.TargetDB,
					"output_dir":    target.ResultRoot,
				},
			})
			if err != nil {
				return err
			}
			logger = logger.With(logging.String(logging.FieldRunID, run.ID))

			jobs, duplicates, err := search.BuildJobs(search.BuildOptions{
				StructureDir: structureDir,
				TargetDB:     target.TargetDB,
				OutputDir:    target.ResultRoot,
				ScratchRoot:  cfg.Paths.ScratchRoot,
				RunID:        run.ID,
				Order:        order,
				Extension:    cfg.Search.ResultExtension,
				Logger:       logger,
			})
			if err != nil {
				return err
			}

			record := func(o search.Outcome) {
				if err := store.RecordItem(cmd.Context(), searchItem(run.ID, o)); err != nil {
					logger.Warn("ledger write failed",
						logging.String(logging.FieldEntityID, o.Job.EntityID),
						logging.Error(err),
					)
				}
			}
			for _, o := range duplicates {
				record(o)
			}

			dispatcher, err := search.New(
				cfg.Search.Binary,
				cfg.Search.Subcommand,
				cfg.SearchArgs(),
				workers,
				search.WithLogger(logger),
				search.WithKeepScratch(cfg.Search.KeepScratch),
				search.WithSkipExisting(skipExisting || cfg.Search.SkipExisting),
				search.WithObserver(record),
			)
			if err != nil {
				return err
			}

			runCtx, stop := signalContext(cmd)
			defer stop()
			runCtx = services.WithRunID(runCtx, run.ID)

			logger.Info("search started",
				logging.String("reference", reference.Name),
				logging.String("target", target.Name),
				logging.Int("jobs", len(jobs)),
				logging.Int("workers", workers),
				logging.String("order", string(order)),
			)
			outcomes := append(duplicates, dispatcher.Run(runCtx, jobs)...)
			counts := search.Tally(outcomes)
			logger.Info("search finished",
				logging.Int("succeeded", counts.Succeeded),
				logging.Int("failed", counts.Failed),
				logging.Int("skipped", counts.Skipped),
			)

			if err := store.FinishRun(cmd.Context(), run.ID); err != nil {
				logger.Warn("ledger finish failed", logging.Error(err))
			}
			if err := search.RenderSummary(cmd.OutOrStdout(), outcomes, time.Now()); err != nil {
				return err
			}
			return runCtx.Err()
		},
	}

	cmd.Flags().StringVar(&orderFlag, "order", "asc", "Structure enumeration order: asc, desc or reverse")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent searches (default search.workers)")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Skip entities whose result page already exists")
	return cmd
}

func searchItem(runID string, o search.Outcome) ledger.Item {
	item := ledger.Item{
		RunID:  runID,
		Key:    filepath.Base(o.Job.SourcePath),
		Status: string(o.Status),
		Reason: o.Reason,
		Path:   o.Job.OutputPath,
	}
	if o.Err != nil {
		item.Reason = services.Kind(o.Err)
		item.Detail = o.Err.Error()
	}
	return item
}

// requirePreflight returns a configuration error naming the first failed check.
func requirePreflight(stage string, results []preflight.Result) error {
	failed, ok := preflight.FirstFailure(results)
	if !ok {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, stage, "preflight", failed.Name+": "+failed.Detail, nil)
}
