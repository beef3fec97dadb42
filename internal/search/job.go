package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"foldsweep/internal/accession"
	"foldsweep/internal/logging"
	"foldsweep/internal/services"
)

// Order controls the enumeration order of reference structures.
type Order string

const (
	OrderAscending  Order = "asc"
	OrderDescending Order = "desc"
)

// ParseOrder accepts asc/ascending/forward and desc/descending/reverse.
func ParseOrder(value string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "asc", "ascending", "forward":
		return OrderAscending, nil
	case "desc", "descending", "reverse":
		return OrderDescending, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "search", "order", fmt.Sprintf("unsupported order %q", value), nil)
	}
}

// Status is the terminal state of a job.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Skip reasons.
const (
	ReasonClaimed   = "claimed"
	ReasonExists    = "exists"
	ReasonDuplicate = "duplicate"
)

// Job is one search of a reference structure against a target database.
type Job struct {
	EntityID     string
	SourcePath   string
	TargetDBPath string
	OutputPath   string
	ScratchDir   string
}

// Outcome reports how a job ended.
type Outcome struct {
	Job      Job
	Status   Status
	Reason   string
	Err      error
	Duration time.Duration
}

// BuildOptions describes a dispatch.
type BuildOptions struct {
	StructureDir string
	TargetDB     string
	OutputDir    string
	ScratchRoot  string
	RunID        string
	Order        Order
	// Extension of result files, without the dot. Defaults to html.
	Extension string
	Logger    *slog.Logger
}

// BuildJobs enumerates the regular files directly under StructureDir and
// derives one job per distinct entity ID. Files whose name yields no ID are
// skipped with a warning; repeated IDs after the first are returned as
// duplicate skips.
func BuildJobs(opts BuildOptions) ([]Job, []Outcome, error) {
	logger := logging.NewComponentLogger(opts.Logger, "search")
	if strings.TrimSpace(opts.StructureDir) == "" {
		return nil, nil, services.Wrap(services.ErrConfiguration, "search", "build jobs", "structure directory required", nil)
	}
	if strings.TrimSpace(opts.OutputDir) == "" {
		return nil, nil, services.Wrap(services.ErrConfiguration, "search", "build jobs", "output directory required", nil)
	}
	entries, err := os.ReadDir(opts.StructureDir)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrConfiguration, "search", "build jobs",
			"read structure directory "+opts.StructureDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		info, err := os.Stat(filepath.Join(opts.StructureDir, entry.Name()))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		names = append(names, entry.Name())
	}
	if opts.Order == OrderDescending {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	} else {
		sort.Strings(names)
	}

	ext := strings.TrimPrefix(strings.TrimSpace(opts.Extension), ".")
	if ext == "" {
		ext = "html"
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	jobs := make([]Job, 0, len(names))
	var skipped []Outcome
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		source := filepath.Join(opts.StructureDir, name)
		id := accession.Normalize(name)
		if id == "" {
			logger.Warn("structure file yields no entity id",
				logging.String("path", source),
				logging.Event("job_skipped"),
				logging.SkipReason("no_id"),
			)
			continue
		}
		job := Job{
			EntityID:     id,
			SourcePath:   source,
			TargetDBPath: opts.TargetDB,
			OutputPath:   filepath.Join(opts.OutputDir, id+"."+ext),
			ScratchDir:   filepath.Join(opts.ScratchRoot, runID, uuid.NewString()),
		}
		if _, dup := seen[id]; dup {
			job.ScratchDir = ""
			skipped = append(skipped, Outcome{Job: job, Status: StatusSkipped, Reason: ReasonDuplicate})
			continue
		}
		seen[id] = struct{}{}
		jobs = append(jobs, job)
	}
	return jobs, skipped, nil
}
