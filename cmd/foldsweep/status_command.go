package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"foldsweep/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report search tool and directory readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			report := newStatusReport(out)

			report.section("Configuration")
			configDetail := ctx.configPath
			if !ctx.configExists {
				configDetail += " (not found, defaults used)"
			}
			report.line("Config file", checkInfo, configDetail)
			report.line("Ledger", checkInfo, fmt.Sprintf("%s (enabled: %s)", cfg.LedgerPath(), yesNo(cfg.Ledger.Enabled)))

			report.section("Readiness")
			report.checks(preflight.RunAll(cmd.Context(), cfg))

			fmt.Fprintln(out, report.String())
			return nil
		},
	}
}
