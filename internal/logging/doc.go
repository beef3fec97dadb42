// Package logging assembles structured slog loggers used across foldsweep.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code can tag log lines
// with run IDs, species, and entity identifiers. Every skip, failure, and
// success carries an event_type so a run can be audited from its logs alone.
package logging
