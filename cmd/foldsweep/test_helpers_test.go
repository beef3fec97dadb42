package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"foldsweep/internal/config"
	"foldsweep/internal/species"
	"foldsweep/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	root       string
	tablePath  string
}

// setupCLITestEnv lays out a two-species project under a shared root: Human
// is the reference species, Mouse the target.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	root := filepath.Join(base, "data")
	tablePath := filepath.Join(root, "species.tsv")
	testsupport.WriteSpeciesTable(t, tablePath,
		species.Descriptor{Name: "Human", ResultRoot: "results/human", TargetDB: "db/human", StructureDir: "structures/human", UniProtRef: "UP000005640", SpeciesID: "9606"},
		species.Descriptor{Name: "Mouse", ResultRoot: "results/mouse", TargetDB: "db/mouse", StructureDir: "structures/mouse", UniProtRef: "UP000000589", SpeciesID: "10090"},
	)
	for _, name := range []string{"AF-Q1-F1-model_v4.pdb", "AF-Q2-F1-model_v4.cif.gz", "AF-Q2-F1-confidence_v4.json.gz"} {
		testsupport.WriteFile(t, filepath.Join(root, "structures", "human", name), "structure")
	}
	testsupport.WriteFile(t, filepath.Join(root, "db", "mouse.dbtype"), "db")

	configPath := filepath.Join(base, "foldsweep.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, root: root, tablePath: tablePath}
}

func (e *cliTestEnv) path(parts ...string) string {
	return filepath.Join(append([]string{e.root}, parts...)...)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
