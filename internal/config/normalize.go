package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSearch()
	c.normalizeExtract()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key   string
		value *string
		def   string
	}{
		{"paths.scratch_root", &c.Paths.ScratchRoot, defaultScratchRoot},
		{"paths.structures_dir", &c.Paths.StructuresDir, defaultStructuresDir},
		{"paths.alignments_dir", &c.Paths.AlignmentsDir, defaultAlignmentsDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.def
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeSearch() {
	c.Search.Binary = strings.TrimSpace(c.Search.Binary)
	if c.Search.Binary == "" {
		c.Search.Binary = defaultSearchBinary
	}
	c.Search.Subcommand = strings.TrimSpace(c.Search.Subcommand)
	c.Search.ResultExtension = strings.TrimPrefix(strings.TrimSpace(c.Search.ResultExtension), ".")
	if c.Search.ResultExtension == "" {
		c.Search.ResultExtension = defaultResultExtension
	}
	args := c.Search.ExtraArgs[:0]
	for _, arg := range c.Search.ExtraArgs {
		if arg = strings.TrimSpace(arg); arg != "" {
			args = append(args, arg)
		}
	}
	c.Search.ExtraArgs = args
}

func (c *Config) normalizeExtract() {
	c.Extract.AnnotationDefault = strings.TrimSpace(c.Extract.AnnotationDefault)
	if c.Extract.AnnotationDefault == "" {
		c.Extract.AnnotationDefault = defaultAnnotation
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
