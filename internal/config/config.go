package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ScratchRoot   string `toml:"scratch_root"`
	StructuresDir string `toml:"structures_dir"`
	AlignmentsDir string `toml:"alignments_dir"`
	StateDir      string `toml:"state_dir"`
}

// Search contains configuration for the external structure search tool.
type Search struct {
	Binary          string   `toml:"binary"`
	Subcommand      string   `toml:"subcommand"`
	Workers         int      `toml:"workers"`
	FormatMode      int      `toml:"format_mode"`
	MaxSeqs         int      `toml:"max_seqs"`
	ExtraArgs       []string `toml:"extra_args"`
	ResultExtension string   `toml:"result_extension"`
	KeepScratch     bool     `toml:"keep_scratch"`
	SkipExisting    bool     `toml:"skip_existing"`
}

// Extract contains configuration for result extraction.
type Extract struct {
	Workers           int    `toml:"workers"`
	AnnotationDefault string `toml:"annotation_default"`
}

// Merge contains configuration for the cross-species merge.
type Merge struct {
	Workers int     `toml:"workers"`
	TopK    int     `toml:"top_k"`
	Cutoff  float64 `toml:"cutoff"`
}

// Ledger controls the SQLite run ledger.
type Ledger struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   bool   `toml:"file"`
}

// Config encapsulates all configuration values for foldsweep.
//
// Configuration sections by subsystem:
//   - Paths: scratch, structure, alignment, and state directories
//   - Search: external search binary and worker pool
//   - Extract: extraction fan-out and annotation fallback
//   - Merge: merge fan-out, top-K bound, and e-value cutoff
//   - Ledger: run ledger toggle
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Search  Search  `toml:"search"`
	Extract Extract `toml:"extract"`
	Merge   Merge   `toml:"merge"`
	Ledger  Ledger  `toml:"ledger"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("foldsweep.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories every stage writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchRoot, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the SQLite ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// LogPath returns the log file location used when logging.file is enabled.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "foldsweep.log")
}

// MasterDir returns the output directory for master records of a reference species.
func (c *Config) MasterDir(reference string) string {
	return filepath.Join(c.Paths.AlignmentsDir, reference+"_alignments")
}

// SearchArgs returns the mode/format flags appended after the positional
// search arguments.
func (c *Config) SearchArgs() []string {
	args := []string{
		"--format-mode", fmt.Sprint(c.Search.FormatMode),
		"--max-seqs", fmt.Sprint(c.Search.MaxSeqs),
	}
	return append(args, c.Search.ExtraArgs...)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
