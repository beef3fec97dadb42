package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"foldsweep/internal/config"
)

// ConfigOption adjusts a test configuration after the temp layout exists.
type ConfigOption func(*fixture)

type fixture struct {
	t    testing.TB
	base string
	cfg  *config.Config
}

// NewConfig returns defaults with every path under a fresh temp directory and
// small worker pools.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		ScratchRoot:   filepath.Join(base, "tmp"),
		StructuresDir: filepath.Join(base, "structures"),
		AlignmentsDir: filepath.Join(base, "alignments"),
		StateDir:      filepath.Join(base, "state"),
	}
	cfg.Search.Workers = 2
	cfg.Extract.Workers = 2
	cfg.Merge.Workers = 2

	f := &fixture{t: t, base: base, cfg: &cfg}
	for _, opt := range opts {
		opt(f)
	}
	return f.cfg
}

// WithLedgerDisabled turns the run ledger off.
func WithLedgerDisabled() ConfigOption {
	return func(f *fixture) { f.cfg.Ledger.Enabled = false }
}

// WithStubbedBinaries puts do-nothing executables on PATH. With no names the
// configured search binary is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(f *fixture) {
		if len(names) == 0 {
			names = []string{f.cfg.Search.Binary}
		}
		dir := f.binDir()
		for _, name := range names {
			f.writeScript(filepath.Join(dir, name), "#!/bin/sh\nexit 0\n")
		}
		f.t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// WithSearchStub points search.binary at a script that writes one line
// naming the query into its output argument, the way the real tool leaves a
// result page behind.
func WithSearchStub() ConfigOption {
	return func(f *fixture) {
		path := filepath.Join(f.binDir(), "search-stub")
		f.writeScript(path, "#!/bin/sh\nprintf 'searched %s\\n' \"$2\" > \"$4\"\n")
		f.cfg.Search.Binary = path
	}
}

func (f *fixture) binDir() string {
	dir := filepath.Join(f.base, "bin")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		f.t.Fatalf("mkdir bin dir: %v", err)
	}
	return dir
}

func (f *fixture) writeScript(path, script string) {
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		f.t.Fatalf("write stub %s: %v", filepath.Base(path), err)
	}
}

// BaseDir returns the temp directory holding every configured path.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
