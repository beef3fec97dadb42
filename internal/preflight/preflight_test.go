package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"foldsweep/internal/config"
	"foldsweep/internal/deps"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckTargetDB(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "mouse")
	if err := os.WriteFile(prefix+".dbtype", []byte{0}, 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckTargetDB("target", prefix); !result.Passed {
		t.Fatalf("expected database found via .dbtype, got %s", result.Detail)
	}
	if result := CheckTargetDB("target", filepath.Join(dir, "human")); result.Passed {
		t.Fatal("expected failure for missing database")
	}
	if result := CheckTargetDB("target", ""); result.Passed {
		t.Fatal("expected failure for empty prefix")
	}
}

func TestRunAll(t *testing.T) {
	base := t.TempDir()
	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(binDir, "foldseek"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir)

	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.ScratchRoot = filepath.Join(base, "tmp")
	cfg.Paths.AlignmentsDir = ""
	cfg.Paths.StructuresDir = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), &cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d: %+v", len(results), results)
	}
	if failed, ok := FirstFailure(results); ok {
		t.Fatalf("unexpected failure %+v", failed)
	}
	if results[0].Name != "Search tool" || results[0].Warning == "" {
		t.Fatalf("silent search tool should pass with a warning, got %+v", results[0])
	}

	cfg.Search.Binary = "missing-search-tool"
	failed, ok := FirstFailure(RunAll(context.Background(), &cfg))
	if !ok || failed.Name != "Search tool" {
		t.Fatalf("expected search tool failure, got %+v ok=%v", failed, ok)
	}
}

func TestFromDependency(t *testing.T) {
	cases := []struct {
		name    string
		status  deps.Status
		passed  bool
		warning bool
	}{
		{"versioned", deps.Status{Name: "Search tool", Available: true, Version: "10.941cd33"}, true, false},
		{"probe failed", deps.Status{Name: "Search tool", Available: true, VersionErr: errors.New("exit status 3")}, true, true},
		{"missing", deps.Status{Name: "Search tool", Detail: "not found", VersionErr: errors.New("unused")}, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FromDependency(tc.status)
			if got.Passed != tc.passed || (got.Warning != "") != tc.warning {
				t.Fatalf("FromDependency(%+v) = %+v", tc.status, got)
			}
		})
	}
}
