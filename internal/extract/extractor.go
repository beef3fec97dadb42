package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"foldsweep/internal/fileutil"
	"foldsweep/internal/logging"
	"foldsweep/internal/record"
	"foldsweep/internal/services"
)

// ShardDirName is the subfolder holding normalized shards.
const ShardDirName = "JSON"

// RawExtension is the suffix of raw result pages, matched case-insensitively.
const RawExtension = ".html"

// OutputPath returns the shard location for a raw result file.
func OutputPath(rawPath string) string {
	return filepath.Join(filepath.Dir(rawPath), ShardDirName, fileutil.Stem(rawPath)+".json")
}

// FileResult describes one processed raw file.
type FileResult struct {
	Source string
	Output string
	Stats  Stats
	Err    error
}

// Summary aggregates a directory run. Files are listed in path order.
type Summary struct {
	Processed   int
	Written     int
	Failed      int
	FailedFiles []string
	Files       []FileResult
	Stats       Stats
}

// Option configures the extractor.
type Option func(*Extractor)

// WithLogger sets the extractor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Extractor normalizes raw result pages of one species.
type Extractor struct {
	species     string
	annotations Annotator
	workers     int
	logger      *slog.Logger
}

// New constructs an extractor for speciesName.
func New(speciesName string, annotations Annotator, workers int, opts ...Option) (*Extractor, error) {
	speciesName = strings.TrimSpace(speciesName)
	if speciesName == "" {
		return nil, errors.New("species name required")
	}
	if workers <= 0 {
		workers = 1
	}
	e := &Extractor{
		species:     speciesName,
		annotations: annotations,
		workers:     workers,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "extract")
	return e, nil
}

// File extracts one raw result file and writes its shard. Nothing is written
// when any step fails.
func (e *Extractor) File(ctx context.Context, rawPath string) (FileResult, error) {
	result := FileResult{Source: rawPath, Output: OutputPath(rawPath)}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	content, err := os.ReadFile(rawPath)
	if err != nil {
		return result, fmt.Errorf("read %s: %w", rawPath, err)
	}
	payload, err := Locate(content)
	if err != nil {
		return result, err
	}
	records, stats, err := Normalize(payload, e.species, e.annotations)
	result.Stats = stats
	if err != nil {
		return result, err
	}
	data, err := record.Encode(records)
	if err != nil {
		return result, fmt.Errorf("encode shard: %w", err)
	}
	if err := fileutil.WriteFileAtomic(result.Output, data, 0o644); err != nil {
		return result, fmt.Errorf("write shard: %w", err)
	}
	return result, nil
}

// Dir extracts every raw result file under root. Per-file failures are
// logged and counted without stopping other files.
func (e *Extractor) Dir(ctx context.Context, root string) (Summary, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return Summary{}, services.Wrap(services.ErrConfiguration, "extract", "input", root+" is not a directory", err)
	}
	files, err := findRawFiles(root)
	if err != nil {
		return Summary{}, err
	}

	ctx = services.WithSpecies(services.WithStage(ctx, "extract"), e.species)
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("extraction started", logging.String("root", root), logging.Int("files", len(files)))

	results := make([]FileResult, len(files))
	var mu sync.Mutex
	var total Stats

	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for i, path := range files {
		g.Go(func() error {
			res, err := e.File(ctx, path)
			res.Err = err
			results[i] = res
			fileLogger := logger.With(logging.String("source", path))
			if err != nil {
				fileLogger.Error("extraction failed",
					logging.Event("extract_failed"),
					logging.Alert("extract_failed"),
					logging.Error(err),
				)
				return nil
			}
			mu.Lock()
			total.add(res.Stats)
			mu.Unlock()
			fileLogger.Info("shard written",
				logging.Event("extract_written"),
				logging.String("output", res.Output),
				logging.Int("records", res.Stats.Records),
				logging.Int("alignments", res.Stats.Alignments),
				logging.Int("self_hits", res.Stats.SelfHits),
			)
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{Files: results, Stats: total}
	for _, res := range results {
		summary.Processed++
		if res.Err != nil {
			summary.Failed++
			summary.FailedFiles = append(summary.FailedFiles, res.Source)
			continue
		}
		summary.Written++
	}
	logger.Info("extraction finished",
		logging.Int("processed", summary.Processed),
		logging.Int("written", summary.Written),
		logging.Int("failed", summary.Failed),
	)
	return summary, ctx.Err()
}

func findRawFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), RawExtension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}
