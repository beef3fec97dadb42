package ledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"foldsweep/internal/ledger"
	"foldsweep/internal/services"
	"foldsweep/internal/testsupport"
)

func openStore(t *testing.T) *ledger.Store {
	t.Helper()
	return testsupport.MustOpenLedger(t, testsupport.NewConfig(t))
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.BeginRun(ctx, ledger.Run{
		Kind:      ledger.KindMerge,
		Reference: "Human",
		Params:    map[string]any{"top_k": 100, "cutoff": 0.001},
	})
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected generated run id")
	}

	items := []ledger.Item{
		{RunID: run.ID, Key: "P2", Status: ledger.StatusSkipped, Reason: "no_shards"},
		{RunID: run.ID, Key: "P1", Status: ledger.StatusSucceeded, Path: "/out/P1.json"},
		{RunID: run.ID, Key: "P3", Status: ledger.StatusFailed, Detail: "write master: disk full"},
	}
	for _, item := range items {
		if err := store.RecordItem(ctx, item); err != nil {
			t.Fatalf("RecordItem: %v", err)
		}
	}
	if err := store.FinishRun(ctx, run.ID); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID[:8])
	if err != nil {
		t.Fatalf("GetRun by prefix: %v", err)
	}
	if got.ID != run.ID || got.Kind != ledger.KindMerge || got.Reference != "Human" || !got.Finished() {
		t.Fatalf("unexpected run %+v", got)
	}
	if got.Params["top_k"] != float64(100) {
		t.Fatalf("params not round-tripped: %v", got.Params)
	}

	stored, err := store.Items(ctx, run.ID)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(stored) != 3 || stored[0].Key != "P1" || stored[1].Reason != "no_shards" || stored[2].Detail == "" {
		t.Fatalf("unexpected items %+v", stored)
	}

	counts, err := store.Counts(ctx, run.ID)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[ledger.StatusSucceeded] != 1 || counts[ledger.StatusSkipped] != 1 || counts[ledger.StatusFailed] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestRecordItemKeepsLatestOutcome(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	run, err := store.BeginRun(ctx, ledger.Run{Kind: ledger.KindSearch})
	if err != nil {
		t.Fatal(err)
	}
	for _, status := range []string{ledger.StatusFailed, ledger.StatusSucceeded} {
		if err := store.RecordItem(ctx, ledger.Item{RunID: run.ID, Key: "P1", Status: status}); err != nil {
			t.Fatal(err)
		}
	}
	items, err := store.Items(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Status != ledger.StatusSucceeded {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, kind := range []ledger.Kind{ledger.KindSearch, ledger.KindExtract, ledger.KindMerge} {
		if _, err := store.BeginRun(ctx, ledger.Run{Kind: kind, StartedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].Kind != ledger.KindMerge || runs[1].Kind != ledger.KindExtract {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if runs[0].Finished() {
		t.Fatal("unfinished run reported as finished")
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := openStore(t)
	if _, err := store.GetRun(context.Background(), "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.FinishRun(context.Background(), "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := ledger.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	run, err := store.BeginRun(context.Background(), ledger.Run{Kind: ledger.KindExtract, Target: "Mouse"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.GetRun(context.Background(), run.ID)
	if err != nil || got.Target != "Mouse" {
		t.Fatalf("unexpected run %+v err=%v", got, err)
	}
}

func TestNilStoreIsDisabled(t *testing.T) {
	var store *ledger.Store
	ctx := context.Background()
	run, err := store.BeginRun(ctx, ledger.Run{Kind: ledger.KindSearch})
	if err != nil || run.ID == "" {
		t.Fatalf("nil store BeginRun: %+v %v", run, err)
	}
	if err := store.RecordItem(ctx, ledger.Item{RunID: run.ID, Key: "x", Status: ledger.StatusSucceeded}); err != nil {
		t.Fatal(err)
	}
	if err := store.FinishRun(ctx, run.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
}
