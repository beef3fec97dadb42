// Package services defines shared utilities consumed by the pipeline stages.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, species, and entity
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the configuration / external tool / validation / not-found
//     buckets the stages report.
//
// Use these helpers when wiring new stage logic so failure classification and
// observability stay uniform across search, extract, and merge.
package services
