// Package search fans structure searches out over a fixed worker pool.
//
// BuildJobs turns a reference structure directory into one Job per entity,
// each with a unique output path derived from the entity ID and a private
// scratch directory. Dispatcher.Run feeds those jobs to the external search
// binary through an Executor, collecting one Outcome per job on a single
// collector goroutine. A failed job never cancels its siblings, and per-entity
// file locks let an ascending and a descending pass share one output tree
// without duplicating work.
package search
