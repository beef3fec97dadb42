package config

import (
	"errors"
	"fmt"
	"math"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := ensurePositiveMap(map[string]int{
		"search.workers":  c.Search.Workers,
		"search.max_seqs": c.Search.MaxSeqs,
		"extract.workers": c.Extract.Workers,
		"merge.workers":   c.Merge.Workers,
	}); err != nil {
		return err
	}
	if c.Search.FormatMode < 0 {
		return errors.New("search.format_mode must not be negative")
	}
	if err := ValidateMergeBounds(c.Merge.TopK, c.Merge.Cutoff); err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// ValidateMergeBounds checks the top-K bound and e-value cutoff used by merge.
func ValidateMergeBounds(topK int, cutoff float64) error {
	if topK <= 0 {
		return errors.New("top_k must be a positive integer")
	}
	if math.IsNaN(cutoff) || math.IsInf(cutoff, 0) || cutoff < 0 {
		return errors.New("cutoff must be a non-negative number")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
