package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"foldsweep/internal/services"
)

// Store manages the run ledger backed by SQLite. A nil *Store is a disabled
// ledger: writes are no-ops.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts a run. A missing ID is generated and StartedAt defaults
// to now.
func (s *Store) BeginRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if s == nil {
		return run, nil
	}
	params, err := encodeParams(run.Params)
	if err != nil {
		return run, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, reference, target, started_at, params_json) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		string(run.Kind),
		nullableString(run.Reference),
		nullableString(run.Target),
		formatTime(run.StartedAt),
		params,
	)
	if err != nil {
		return run, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordItem stores the outcome of one item. Recording the same key twice
// in a run keeps the latest outcome.
func (s *Store) RecordItem(ctx context.Context, item Item) error {
	if s == nil {
		return nil
	}
	if item.RunID == "" || item.Key == "" {
		return errors.New("ledger item requires run id and key")
	}
	if item.RecordedAt.IsZero() {
		item.RecordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_items (run_id, item_key, status, reason, detail, path, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(run_id, item_key) DO UPDATE SET
            status = excluded.status,
            reason = excluded.reason,
            detail = excluded.detail,
            path = excluded.path,
            recorded_at = excluded.recorded_at`,
		item.RunID,
		item.Key,
		item.Status,
		nullableString(item.Reason),
		nullableString(item.Detail),
		nullableString(item.Path),
		formatTime(item.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("record item %s: %w", item.Key, err)
	}
	return nil
}

// FinishRun stamps the run completion time.
func (s *Store) FinishRun(ctx context.Context, runID string) error {
	if s == nil {
		return nil
	}
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET finished_at = ? WHERE id = ?`, formatTime(time.Now().UTC()), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "ledger", "finish run", "run "+runID, nil)
	}
	return nil
}

const runColumns = "id, kind, reference, target, started_at, finished_at, params_json"

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose ID equals or uniquely starts with idOrPrefix.
func (s *Store) GetRun(ctx context.Context, idOrPrefix string) (Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return Run{}, services.Wrap(services.ErrValidation, "ledger", "get run", "run id required", nil)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY id = ? DESC LIMIT 2`,
		idOrPrefix, stripLikeWildcards(idOrPrefix)+"%", idOrPrefix)
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch {
	case len(matches) == 0:
		return Run{}, services.Wrap(services.ErrNotFound, "ledger", "get run", "run "+idOrPrefix, nil)
	case matches[0].ID == idOrPrefix || len(matches) == 1:
		return matches[0], nil
	default:
		return Run{}, services.Wrap(services.ErrValidation, "ledger", "get run", "ambiguous run prefix "+idOrPrefix, nil)
	}
}

// Items returns the items of a run ordered by key.
func (s *Store) Items(ctx context.Context, runID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, item_key, status, reason, detail, path, recorded_at
         FROM run_items WHERE run_id = ? ORDER BY item_key`, runID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item                 Item
			reason, detail, path sql.NullString
			recorded             string
		)
		if err := rows.Scan(&item.RunID, &item.Key, &item.Status, &reason, &detail, &path, &recorded); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.Reason = reason.String
		item.Detail = detail.String
		item.Path = path.String
		item.RecordedAt = parseTime(recorded)
		items = append(items, item)
	}
	return items, rows.Err()
}

// Counts tallies the items of a run by status.
func (s *Store) Counts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM run_items WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run                       Run
		kind, started             string
		reference, target, params sql.NullString
		finished                  sql.NullString
	)
	if err := scanner.Scan(&run.ID, &kind, &reference, &target, &started, &finished, &params); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Kind = Kind(kind)
	run.Reference = reference.String
	run.Target = target.String
	run.StartedAt = parseTime(started)
	if finished.Valid {
		run.FinishedAt = parseTime(finished.String)
	}
	if params.Valid && params.String != "" {
		if err := json.Unmarshal([]byte(params.String), &run.Params); err != nil {
			return Run{}, fmt.Errorf("decode params of run %s: %w", run.ID, err)
		}
	}
	return run, nil
}

func encodeParams(params map[string]any) (any, error) {
	if len(params) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode run params: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func stripLikeWildcards(value string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(value)
}
