// Package config loads, normalizes, and validates foldsweep configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. Every key is optional: a missing file
// yields the defaults, which mirror the classic pipeline layout (./tmp scratch,
// ./structures, ./alignments) and the foldseek invocation used by the search
// stage.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
