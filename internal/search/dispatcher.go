package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"foldsweep/internal/fileutil"
	"foldsweep/internal/logging"
	"foldsweep/internal/services"
)

// ClaimDirName is the directory under the output directory holding
// per-entity claim locks.
const ClaimDirName = ".claims"

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(d *Dispatcher) {
		if exec != nil {
			d.exec = exec
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithKeepScratch leaves per-job scratch directories in place.
func WithKeepScratch(keep bool) Option {
	return func(d *Dispatcher) { d.keepScratch = keep }
}

// WithSkipExisting skips jobs whose output already exists and is non-empty.
func WithSkipExisting(skip bool) Option {
	return func(d *Dispatcher) { d.skipExisting = skip }
}

// WithObserver registers a callback invoked once per finished job. Calls are
// made from the collector goroutine and never overlap.
func WithObserver(fn func(Outcome)) Option {
	return func(d *Dispatcher) { d.observer = fn }
}

// Dispatcher runs search jobs on a fixed worker pool.
type Dispatcher struct {
	binary       string
	subcommand   string
	args         []string
	workers      int
	exec         Executor
	logger       *slog.Logger
	keepScratch  bool
	skipExisting bool
	observer     func(Outcome)
}

// New constructs a dispatcher. args are appended after the positional
// query, database, output and scratch arguments.
func New(binary, subcommand string, args []string, workers int, opts ...Option) (*Dispatcher, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("search binary required")
	}
	if workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", workers)
	}
	d := &Dispatcher{
		binary:     binary,
		subcommand: strings.TrimSpace(subcommand),
		args:       append([]string(nil), args...),
		workers:    workers,
		exec:       commandExecutor{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "search")
	return d, nil
}

type indexedOutcome struct {
	index   int
	outcome Outcome
}

// Run executes jobs and returns their outcomes in job order. Job failures are
// reported in the outcomes, never as an error. When ctx is cancelled no new
// jobs start, running tools are killed, and unstarted jobs are reported as
// failed with the context error.
func (d *Dispatcher) Run(ctx context.Context, jobs []Job) []Outcome {
	outcomes := make([]Outcome, len(jobs))
	if len(jobs) == 0 {
		return outcomes
	}

	work := make(chan int)
	results := make(chan indexedOutcome)

	var wg sync.WaitGroup
	workers := min(d.workers, len(jobs))
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				results <- indexedOutcome{index: idx, outcome: d.runJob(ctx, jobs[idx])}
			}
		}()
	}

	go func() {
		defer close(work)
		for idx := range jobs {
			select {
			case work <- idx:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	recorded := make([]bool, len(jobs))
	for res := range results {
		outcomes[res.index] = res.outcome
		recorded[res.index] = true
		d.observe(res.outcome)
	}

	for idx, ok := range recorded {
		if ok {
			continue
		}
		outcome := Outcome{Job: jobs[idx], Status: StatusFailed, Err: fmt.Errorf("not started: %w", context.Cause(ctx))}
		outcomes[idx] = outcome
		d.observe(outcome)
	}
	return outcomes
}

func (d *Dispatcher) observe(outcome Outcome) {
	if d.observer != nil {
		d.observer(outcome)
	}
}

func (d *Dispatcher) runJob(ctx context.Context, job Job) Outcome {
	start := time.Now()
	ctx = services.WithEntityID(ctx, job.EntityID)
	logger := logging.WithContext(ctx, d.logger)

	finish := func(status Status, reason string, err error) Outcome {
		outcome := Outcome{Job: job, Status: status, Reason: reason, Err: err, Duration: time.Since(start)}
		d.logOutcome(logger, outcome)
		return outcome
	}

	if err := ctx.Err(); err != nil {
		return finish(StatusFailed, "", fmt.Errorf("not started: %w", err))
	}
	if d.skipExisting && fileutil.NonEmptyFile(job.OutputPath) {
		return finish(StatusSkipped, ReasonExists, nil)
	}

	lock, claimed, err := claim(job)
	if err != nil {
		return finish(StatusFailed, "", err)
	}
	if !claimed {
		return finish(StatusSkipped, ReasonClaimed, nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("release claim failed", logging.Error(err))
		}
	}()

	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
		return finish(StatusFailed, "", fmt.Errorf("create output dir: %w", err))
	}
	if job.ScratchDir != "" {
		if err := os.MkdirAll(job.ScratchDir, 0o755); err != nil {
			return finish(StatusFailed, "", fmt.Errorf("create scratch dir: %w", err))
		}
		if !d.keepScratch {
			defer func() {
				if err := os.RemoveAll(job.ScratchDir); err != nil {
					logger.Warn("remove scratch dir failed", logging.String("path", job.ScratchDir), logging.Error(err))
				}
			}()
		}
	}

	args := d.commandArgs(job)
	logger.Debug("running search", logging.String("binary", d.binary), logging.String("args", strings.Join(args, " ")))
	output, err := d.exec.Run(ctx, d.binary, args)
	if err != nil {
		detail := outputTail(output)
		if detail == "" {
			detail = "search tool failed"
		}
		return finish(StatusFailed, "", services.Wrap(services.ErrExternalTool, "search", d.binary, detail, err))
	}
	return finish(StatusSucceeded, "", nil)
}

// commandArgs builds the tool arguments:
// [subcommand] query db output scratch extra...
func (d *Dispatcher) commandArgs(job Job) []string {
	args := make([]string, 0, 5+len(d.args))
	if d.subcommand != "" {
		args = append(args, d.subcommand)
	}
	args = append(args, job.SourcePath, job.TargetDBPath, job.OutputPath, job.ScratchDir)
	return append(args, d.args...)
}

func (d *Dispatcher) logOutcome(logger *slog.Logger, outcome Outcome) {
	attrs := []logging.Attr{
		logging.String("source", outcome.Job.SourcePath),
		logging.String("output", outcome.Job.OutputPath),
		logging.Duration("duration", outcome.Duration),
	}
	switch outcome.Status {
	case StatusSucceeded:
		logger.Info("search finished", logging.Args(append(attrs, logging.Event("job_done"))...)...)
	case StatusSkipped:
		logger.Info("search skipped", logging.Args(append(attrs,
			logging.Event("job_skipped"),
			logging.SkipReason(outcome.Reason),
		)...)...)
	default:
		logger.Error("search failed", logging.Args(append(attrs,
			logging.Event("job_failed"),
			logging.Alert("job_failed"),
			logging.Error(outcome.Err),
		)...)...)
	}
}

func claim(job Job) (*flock.Flock, bool, error) {
	dir := filepath.Join(filepath.Dir(job.OutputPath), ClaimDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, false, fmt.Errorf("create claim dir: %w", err)
	}
	lock := flock.New(filepath.Join(dir, job.EntityID+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("claim %s: %w", job.EntityID, err)
	}
	return lock, ok, nil
}
