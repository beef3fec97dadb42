// Package ledger persists run history in SQLite.
//
// Every search, extract and merge invocation opens a run and records one
// item per job, file or entity with its status and, for skips and failures,
// the reason. The ledger is what `foldsweep runs` reads to report coverage
// after the fact; it is never consulted to decide what work to do.
package ledger
