package preflight

import (
	"context"
	"strings"

	"foldsweep/internal/config"
	"foldsweep/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Warning notes a passed check that still needs attention.
	Warning string
}

// RunAll executes the configuration-level checks: the search binary and the
// directories foldsweep writes into.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, FromDependency(status))
	}

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Scratch root", cfg.Paths.ScratchRoot))
	if strings.TrimSpace(cfg.Paths.AlignmentsDir) != "" {
		results = append(results, CheckDirectoryAccess("Alignments directory", cfg.Paths.AlignmentsDir))
	}
	if strings.TrimSpace(cfg.Paths.StructuresDir) != "" {
		results = append(results, CheckReadableDir("Structures directory", cfg.Paths.StructuresDir))
	}
	return results
}

// FromDependency converts a binary status into a check result. A binary whose
// version probe failed passes with a warning.
func FromDependency(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
	if status.Available && status.VersionErr != nil {
		result.Warning = "version unknown: " + status.VersionErr.Error()
	}
	return result
}

// FirstFailure returns the first failed result, if any.
func FirstFailure(results []Result) (Result, bool) {
	for _, result := range results {
		if !result.Passed {
			return result, true
		}
	}
	return Result{}, false
}
