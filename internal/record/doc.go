// Package record defines the typed result models shared by the extractor and
// the merger.
//
// Search output is loosely typed: beyond the handful of keys the pipeline
// reads (accession, target, eval, species, annotation) every record carries
// tool-specific columns that must survive the round trip untouched. The
// models keep those columns as raw JSON in Fields and merge them back on
// marshal, emitting keys in sorted order so encoded bytes depend only on the
// values.
package record
