package config

const (
	defaultConfigPath       = "~/.config/foldsweep/config.toml"
	defaultScratchRoot      = "./tmp"
	defaultStructuresDir    = "./structures"
	defaultAlignmentsDir    = "./alignments"
	defaultStateDir         = "~/.local/share/foldsweep"
	defaultSearchBinary     = "foldseek"
	defaultSearchSubcommand = "easy-search"
	defaultSearchWorkers    = 48
	defaultFormatMode       = 3
	defaultMaxSeqs          = 10
	defaultResultExtension  = "html"
	defaultExtractWorkers   = 8
	defaultAnnotation       = "N/A"
	defaultMergeWorkers     = 8
	defaultTopK             = 100
	defaultCutoff           = 0.001
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchRoot:   defaultScratchRoot,
			StructuresDir: defaultStructuresDir,
			AlignmentsDir: defaultAlignmentsDir,
			StateDir:      defaultStateDir,
		},
		Search: Search{
			Binary:          defaultSearchBinary,
			Subcommand:      defaultSearchSubcommand,
			Workers:         defaultSearchWorkers,
			FormatMode:      defaultFormatMode,
			MaxSeqs:         defaultMaxSeqs,
			ResultExtension: defaultResultExtension,
		},
		Extract: Extract{
			Workers:           defaultExtractWorkers,
			AnnotationDefault: defaultAnnotation,
		},
		Merge: Merge{
			Workers: defaultMergeWorkers,
			TopK:    defaultTopK,
			Cutoff:  defaultCutoff,
		},
		Ledger: Ledger{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
