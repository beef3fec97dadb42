// Package merge combines per-species shards into one ranked master record per
// reference entity.
//
// For each entity the merger looks up the entity's shard under every
// species' result root, pools their alignments, keeps those whose e-value is
// within the cutoff, orders them by ascending e-value and writes at most
// top-K of them. Species without a shard are tolerated; an entity with no
// usable data produces no file and is reported as skipped.
package merge
