package search_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"foldsweep/internal/search"
	"foldsweep/internal/services"
)

type stubExecutor struct {
	mu    sync.Mutex
	calls [][]string
	fail  map[string]error
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string{binary}, args...))
	s.mu.Unlock()
	query := args[1]
	if err, ok := s.fail[filepath.Base(query)]; ok {
		return []byte("line one\nsegfault in prefilter\n"), err
	}
	if err := os.WriteFile(args[3], []byte("<html></html>"), 0o644); err != nil {
		return nil, err
	}
	return []byte("ok"), nil
}

func (s *stubExecutor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func makeStructures(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("ATOM"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestBuildJobsDerivesUniqueOutputs(t *testing.T) {
	structures := makeStructures(t,
		"AF-P12345-F1-model_v4.cif.gz",
		"AF-Q67890-F1-model_v4.pdb",
		"Q67890.cif",
		"plain.pdb",
		".hidden.pdb",
	)
	if err := os.Mkdir(filepath.Join(structures, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}
	out := t.TempDir()

	jobs, skipped, err := search.BuildJobs(search.BuildOptions{
		StructureDir: structures,
		TargetDB:     "/db/mouse",
		OutputDir:    out,
		ScratchRoot:  "/scratch",
		RunID:        "run-1",
	})
	if err != nil {
		t.Fatalf("BuildJobs: %v", err)
	}
	if len(jobs) != 4 {
		t.Fatalf("expected 4 jobs, got %d: %+v", len(jobs), jobs)
	}
	wantIDs := []string{".hidden", "P12345", "Q67890", "plain"}
	outputs := map[string]bool{}
	scratch := map[string]bool{}
	for i, job := range jobs {
		if job.EntityID != wantIDs[i] {
			t.Fatalf("job %d id = %q, want %q", i, job.EntityID, wantIDs[i])
		}
		if job.OutputPath != filepath.Join(out, job.EntityID+".html") {
			t.Fatalf("unexpected output path %q", job.OutputPath)
		}
		if outputs[job.OutputPath] {
			t.Fatalf("duplicate output path %q", job.OutputPath)
		}
		outputs[job.OutputPath] = true
		if !strings.HasPrefix(job.ScratchDir, filepath.Join("/scratch", "run-1")+string(filepath.Separator)) {
			t.Fatalf("scratch dir %q not under run namespace", job.ScratchDir)
		}
		if scratch[job.ScratchDir] {
			t.Fatalf("duplicate scratch dir %q", job.ScratchDir)
		}
		scratch[job.ScratchDir] = true
		if job.TargetDBPath != "/db/mouse" {
			t.Fatalf("unexpected target db %q", job.TargetDBPath)
		}
	}
	if len(skipped) != 1 || skipped[0].Reason != search.ReasonDuplicate || skipped[0].Job.EntityID != "Q67890" {
		t.Fatalf("expected one duplicate skip for Q67890, got %+v", skipped)
	}
	if filepath.Base(skipped[0].Job.SourcePath) != "Q67890.cif" {
		t.Fatalf("later file should be the duplicate, got %q", skipped[0].Job.SourcePath)
	}
}

func TestBuildJobsDescendingOrder(t *testing.T) {
	structures := makeStructures(t, "A.pdb", "B.pdb", "C.pdb")
	jobs, _, err := search.BuildJobs(search.BuildOptions{
		StructureDir: structures,
		OutputDir:    t.TempDir(),
		Order:        search.OrderDescending,
		Extension:    ".m8",
	})
	if err != nil {
		t.Fatalf("BuildJobs: %v", err)
	}
	got := []string{jobs[0].EntityID, jobs[1].EntityID, jobs[2].EntityID}
	if strings.Join(got, ",") != "C,B,A" {
		t.Fatalf("unexpected order %v", got)
	}
	if filepath.Ext(jobs[0].OutputPath) != ".m8" {
		t.Fatalf("extension not applied: %q", jobs[0].OutputPath)
	}
}

func TestBuildJobsMissingDirectory(t *testing.T) {
	_, _, err := search.BuildJobs(search.BuildOptions{
		StructureDir: filepath.Join(t.TempDir(), "missing"),
		OutputDir:    t.TempDir(),
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestParseOrder(t *testing.T) {
	cases := map[string]search.Order{
		"":        search.OrderAscending,
		"asc":     search.OrderAscending,
		"reverse": search.OrderDescending,
		"DESC":    search.OrderDescending,
	}
	for in, want := range cases {
		got, err := search.ParseOrder(in)
		if err != nil || got != want {
			t.Errorf("ParseOrder(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := search.ParseOrder("sideways"); err == nil {
		t.Fatal("expected error for unknown order")
	}
}

func buildJobs(t *testing.T, names ...string) ([]search.Job, string) {
	t.Helper()
	out := t.TempDir()
	jobs, _, err := search.BuildJobs(search.BuildOptions{
		StructureDir: makeStructures(t, names...),
		TargetDB:     "/db/target",
		OutputDir:    out,
		ScratchRoot:  t.TempDir(),
		RunID:        "run",
	})
	if err != nil {
		t.Fatalf("BuildJobs: %v", err)
	}
	return jobs, out
}

func TestRunIsolatesFailures(t *testing.T) {
	jobs, out := buildJobs(t, "A.pdb", "B.pdb", "C.pdb", "D.pdb")
	exec := &stubExecutor{fail: map[string]error{"B.pdb": errors.New("exit status 1")}}

	var observed []search.Outcome
	d, err := search.New("foldseek", "easy-search", []string{"--format-mode", "3", "--max-seqs", "10"}, 2,
		search.WithExecutor(exec),
		search.WithObserver(func(o search.Outcome) { observed = append(observed, o) }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	outcomes := d.Run(context.Background(), jobs)
	if len(outcomes) != 4 || len(observed) != 4 {
		t.Fatalf("expected 4 outcomes and observations, got %d/%d", len(outcomes), len(observed))
	}
	for i, o := range outcomes {
		if o.Job.EntityID != jobs[i].EntityID {
			t.Fatalf("outcome %d out of order: %s", i, o.Job.EntityID)
		}
	}
	if outcomes[1].Status != search.StatusFailed {
		t.Fatalf("expected B to fail, got %s", outcomes[1].Status)
	}
	if !errors.Is(outcomes[1].Err, services.ErrExternalTool) || !strings.Contains(outcomes[1].Err.Error(), "segfault in prefilter") {
		t.Fatalf("expected tool error with output tail, got %v", outcomes[1].Err)
	}
	for _, idx := range []int{0, 2, 3} {
		if outcomes[idx].Status != search.StatusSucceeded {
			t.Fatalf("expected %s to succeed, got %s (%v)", outcomes[idx].Job.EntityID, outcomes[idx].Status, outcomes[idx].Err)
		}
		if _, err := os.Stat(filepath.Join(out, outcomes[idx].Job.EntityID+".html")); err != nil {
			t.Fatalf("missing output: %v", err)
		}
	}
	for _, o := range outcomes {
		if _, err := os.Stat(o.Job.ScratchDir); !os.IsNotExist(err) {
			t.Fatalf("scratch dir %q not removed", o.Job.ScratchDir)
		}
	}
}

// peakExecutor records how many Run calls overlap.
type peakExecutor struct {
	stubExecutor
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (p *peakExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.peak {
		p.peak = p.inFlight
	}
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()
	time.Sleep(20 * time.Millisecond)
	return p.stubExecutor.Run(ctx, binary, args)
}

func TestRunBoundsConcurrentSearches(t *testing.T) {
	jobs, _ := buildJobs(t, "A.pdb", "B.pdb", "C.pdb", "D.pdb", "E.pdb", "F.pdb", "G.pdb")
	exec := &peakExecutor{}
	const workers = 3
	d, err := search.New("foldseek", "easy-search", nil, workers, search.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	outcomes := d.Run(context.Background(), jobs)
	if len(outcomes) != len(jobs) {
		t.Fatalf("expected %d outcomes, got %d", len(jobs), len(outcomes))
	}
	for _, o := range outcomes {
		if o.Status != search.StatusSucceeded {
			t.Fatalf("expected %s to succeed, got %s (%v)", o.Job.EntityID, o.Status, o.Err)
		}
	}
	exec.mu.Lock()
	peak := exec.peak
	exec.mu.Unlock()
	if peak < 1 || peak > workers {
		t.Fatalf("peak concurrent searches = %d, want 1..%d", peak, workers)
	}
	if exec.callCount() != len(jobs) {
		t.Fatalf("expected %d tool runs, got %d", len(jobs), exec.callCount())
	}
}

func TestRunPassesToolArguments(t *testing.T) {
	jobs, _ := buildJobs(t, "AF-P1-F1-model_v4.cif.gz")
	exec := &stubExecutor{}
	d, err := search.New("foldseek", "easy-search", []string{"--format-mode", "3"}, 1, search.WithExecutor(exec), search.WithKeepScratch(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.Run(context.Background(), jobs)

	if exec.callCount() != 1 {
		t.Fatalf("expected 1 call, got %d", exec.callCount())
	}
	call := exec.calls[0]
	want := []string{"foldseek", "easy-search", jobs[0].SourcePath, "/db/target", jobs[0].OutputPath, jobs[0].ScratchDir, "--format-mode", "3"}
	if strings.Join(call, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected args\n got: %v\nwant: %v", call, want)
	}
	if _, err := os.Stat(jobs[0].ScratchDir); err != nil {
		t.Fatalf("scratch dir should be kept: %v", err)
	}
}

func TestRunSkipsClaimedEntities(t *testing.T) {
	jobs, out := buildJobs(t, "A.pdb", "B.pdb")
	claimDir := filepath.Join(out, search.ClaimDirName)
	if err := os.MkdirAll(claimDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(filepath.Join(claimDir, "A.lock"))
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("pre-claim A: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	exec := &stubExecutor{}
	d, err := search.New("foldseek", "easy-search", nil, 2, search.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	outcomes := d.Run(context.Background(), jobs)
	if outcomes[0].Status != search.StatusSkipped || outcomes[0].Reason != search.ReasonClaimed {
		t.Fatalf("expected A claimed skip, got %+v", outcomes[0])
	}
	if outcomes[1].Status != search.StatusSucceeded {
		t.Fatalf("expected B to succeed, got %+v", outcomes[1])
	}
	if exec.callCount() != 1 {
		t.Fatalf("expected one tool call, got %d", exec.callCount())
	}
}

func TestRunSkipExisting(t *testing.T) {
	jobs, _ := buildJobs(t, "A.pdb", "B.pdb")
	if err := os.WriteFile(jobs[0].OutputPath, []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}
	exec := &stubExecutor{}
	d, err := search.New("foldseek", "easy-search", nil, 1, search.WithExecutor(exec), search.WithSkipExisting(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	outcomes := d.Run(context.Background(), jobs)
	if outcomes[0].Status != search.StatusSkipped || outcomes[0].Reason != search.ReasonExists {
		t.Fatalf("expected exists skip, got %+v", outcomes[0])
	}
	if outcomes[1].Status != search.StatusSucceeded {
		t.Fatalf("expected B to run, got %+v", outcomes[1])
	}
}

func TestRunCancelledContextFailsUnstartedJobs(t *testing.T) {
	jobs, _ := buildJobs(t, "A.pdb", "B.pdb", "C.pdb")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &stubExecutor{}
	d, err := search.New("foldseek", "easy-search", nil, 2, search.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	outcomes := d.Run(ctx, jobs)
	for _, o := range outcomes {
		if o.Status != search.StatusFailed || !errors.Is(o.Err, context.Canceled) {
			t.Fatalf("expected cancelled failure, got %+v", o)
		}
	}
	if exec.callCount() != 0 {
		t.Fatalf("no tool should run after cancellation, got %d calls", exec.callCount())
	}
}

func TestNewValidatesArguments(t *testing.T) {
	if _, err := search.New(" ", "easy-search", nil, 1); err == nil {
		t.Fatal("expected error for empty binary")
	}
	if _, err := search.New("foldseek", "easy-search", nil, 0); err == nil {
		t.Fatal("expected error for zero workers")
	}
}

func TestRenderSummary(t *testing.T) {
	outcomes := []search.Outcome{
		{Job: search.Job{SourcePath: "/s/A.pdb"}, Status: search.StatusSucceeded},
		{Job: search.Job{SourcePath: "/s/B.pdb"}, Status: search.StatusFailed, Err: errors.New("exit status 1")},
		{Job: search.Job{SourcePath: "/s/C.pdb"}, Status: search.StatusSkipped, Reason: search.ReasonClaimed},
	}
	var buf bytes.Buffer
	finished := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := search.RenderSummary(&buf, outcomes, finished); err != nil {
		t.Fatalf("RenderSummary: %v", err)
	}
	want := "Done → /s/A.pdb\n" +
		"FAILED: exit status 1 → /s/B.pdb\n" +
		"SKIPPED (claimed) → /s/C.pdb\n" +
		"Finished at: 2025-03-01T12:00:00Z\n"
	if buf.String() != want {
		t.Fatalf("unexpected summary:\n%s", buf.String())
	}

	counts := search.Tally(outcomes)
	if counts.Succeeded != 1 || counts.Failed != 1 || counts.Skipped != 1 {
		t.Fatalf("unexpected tally %+v", counts)
	}
}
