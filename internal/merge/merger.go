package merge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/sync/errgroup"

	"foldsweep/internal/config"
	"foldsweep/internal/fileutil"
	"foldsweep/internal/logging"
	"foldsweep/internal/record"
	"foldsweep/internal/services"
	"foldsweep/internal/species"
)

// Skip reasons for entities that produce no master record.
const (
	ReasonNoShards         = "no_shards"
	ReasonNoQuery          = "no_query"
	ReasonNoneWithinCutoff = "none_within_cutoff"
)

// Status is the terminal state of one entity.
type Status string

const (
	StatusWritten Status = "written"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result describes the merge of one entity.
type Result struct {
	EntityID     string
	Status       Status
	Reason       string
	Output       string
	SpeciesFound int
	Pooled       int
	Kept         int
	Err          error
}

// Summary aggregates a merge run. Results are in entity order.
type Summary struct {
	Written int
	Skipped int
	Failed  int
	Reasons map[string]int
	Results []Result
}

// Option configures the merger.
type Option func(*Merger)

// WithLogger sets the merger logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Merger) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithWorkers bounds the number of entities merged concurrently.
func WithWorkers(workers int) Option {
	return func(m *Merger) {
		if workers > 0 {
			m.workers = workers
		}
	}
}

// WithCandidates replaces the shard lookup order.
func WithCandidates(candidates ...CandidateFunc) Option {
	return func(m *Merger) {
		if len(candidates) > 0 {
			m.candidates = candidates
		}
	}
}

// Merger builds master records for one reference species.
type Merger struct {
	species    []species.Descriptor
	outputDir  string
	topK       int
	cutoff     float64
	workers    int
	candidates []CandidateFunc
	schema     *jsonschema.Schema
	logger     *slog.Logger
}

// New constructs a merger over descriptors, consulted in order. topK must be
// positive and cutoff non-negative.
func New(descriptors []species.Descriptor, outputDir string, topK int, cutoff float64, opts ...Option) (*Merger, error) {
	if err := config.ValidateMergeBounds(topK, cutoff); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "merge", "init", "", err)
	}
	if strings.TrimSpace(outputDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "merge", "init", "output directory required", nil)
	}
	schema, err := compileShardSchema()
	if err != nil {
		return nil, err
	}
	m := &Merger{
		species:    slices.Clone(descriptors),
		outputDir:  outputDir,
		topK:       topK,
		cutoff:     cutoff,
		workers:    1,
		candidates: DefaultCandidates(),
		schema:     schema,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "merge")
	return m, nil
}

// OutputPath returns the master record location for id.
func (m *Merger) OutputPath(id string) string {
	return filepath.Join(m.outputDir, id+".json")
}

// Entity merges the shards of one entity. Data shortfalls are reported as a
// skipped Result; only write failures return an error.
func (m *Merger) Entity(ctx context.Context, id string) (Result, error) {
	result := Result{EntityID: id}
	if err := ctx.Err(); err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result, err
	}
	ctx = services.WithEntityID(ctx, id)
	logger := logging.WithContext(ctx, m.logger)

	var (
		query record.QueryHeader
		found bool
		pool  []record.Match
	)
	for _, desc := range m.species {
		path, tried := locateShard(m.candidates, desc.ResultRoot, id)
		speciesLogger := logger.With(logging.String(logging.FieldSpecies, desc.Name))
		if path == "" {
			speciesLogger.Debug("shard not found", logging.String("tried", strings.Join(tried, ", ")))
			continue
		}
		result.SpeciesFound++

		records, err := m.readShard(path)
		if err != nil {
			speciesLogger.Warn("shard rejected",
				logging.String("path", path),
				logging.Alert("invalid_shard"),
				logging.Error(err),
			)
			continue
		}
		for _, rec := range records {
			if !found && rec.Query != nil && !rec.Query.IsEmpty() {
				query = *rec.Query
				found = true
			}
			pool = append(pool, rec.Alignments...)
		}
	}
	result.Pooled = len(pool)

	if result.SpeciesFound == 0 {
		return m.skip(logger, result, ReasonNoShards), nil
	}
	if !found {
		return m.skip(logger, result, ReasonNoQuery), nil
	}

	kept := Rank(pool, m.cutoff, m.topK)
	if len(kept) == 0 {
		return m.skip(logger, result, ReasonNoneWithinCutoff), nil
	}
	result.Kept = len(kept)

	data, err := record.Encode(record.Master{Query: query, Alignments: kept})
	if err != nil {
		return m.fail(logger, result, fmt.Errorf("encode master: %w", err))
	}
	result.Output = m.OutputPath(id)
	if err := fileutil.WriteFileAtomic(result.Output, data, 0o644); err != nil {
		return m.fail(logger, result, fmt.Errorf("write master: %w", err))
	}
	result.Status = StatusWritten
	logger.Info("master record written",
		logging.Event("merge_written"),
		logging.String("output", result.Output),
		logging.Int("species_found", result.SpeciesFound),
		logging.Int("pooled", result.Pooled),
		logging.Int("kept", result.Kept),
	)
	return result, nil
}

// Rank keeps matches with a numeric e-value of at most cutoff, orders them by
// ascending e-value (ties keep pool order) and truncates to topK.
func Rank(pool []record.Match, cutoff float64, topK int) []record.Match {
	kept := make([]record.Match, 0, len(pool))
	for _, match := range pool {
		if match.HasEValue && match.EValue <= cutoff {
			kept = append(kept, match)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].EValue < kept[j].EValue
	})
	if topK > 0 && len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}

// All merges every id, in ascending order, with bounded concurrency.
func (m *Merger) All(ctx context.Context, ids []string) (Summary, error) {
	sorted := slices.Clone(ids)
	sort.Strings(sorted)
	sorted = slices.Compact(sorted)

	ctx = services.WithStage(ctx, "merge")
	logger := logging.WithContext(ctx, m.logger)
	logger.Info("merge started",
		logging.Int("entities", len(sorted)),
		logging.Int("species", len(m.species)),
		logging.Int("top_k", m.topK),
		logging.Float64("cutoff", m.cutoff),
	)

	results := make([]Result, len(sorted))
	g := new(errgroup.Group)
	g.SetLimit(m.workers)
	for i, id := range sorted {
		g.Go(func() error {
			res, _ := m.Entity(ctx, id)
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{Reasons: map[string]int{}, Results: results}
	for _, res := range results {
		switch res.Status {
		case StatusWritten:
			summary.Written++
		case StatusSkipped:
			summary.Skipped++
			summary.Reasons[res.Reason]++
		default:
			summary.Failed++
		}
	}
	logger.Info("merge finished",
		logging.Int("written", summary.Written),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
	)
	return summary, ctx.Err()
}

func (m *Merger) readShard(path string) ([]record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shard: %w", err)
	}
	if err := validateShard(m.schema, data); err != nil {
		return nil, services.Wrap(services.ErrValidation, "merge", "validate shard", path, err)
	}
	records, err := record.DecodeShard(data)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "merge", "decode shard", path, err)
	}
	return records, nil
}

func (m *Merger) skip(logger *slog.Logger, result Result, reason string) Result {
	result.Status = StatusSkipped
	result.Reason = reason
	logger.Warn("no master record produced",
		logging.Event("merge_skipped"),
		logging.SkipReason(reason),
		logging.Int("species_found", result.SpeciesFound),
		logging.Int("pooled", result.Pooled),
	)
	return result
}

func (m *Merger) fail(logger *slog.Logger, result Result, err error) (Result, error) {
	result.Status = StatusFailed
	result.Err = err
	logger.Error("merge failed",
		logging.Event("merge_failed"),
		logging.Alert("merge_failed"),
		logging.Error(err),
	)
	return result, err
}

