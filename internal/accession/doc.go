// Package accession maps structure filenames to canonical entity identifiers.
//
// The same identifier names the search output, the per-species shard, and the
// merged master record, so every stage must derive it through Normalize.
package accession
