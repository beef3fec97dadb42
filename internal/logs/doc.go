// Package logs reads the JSON log file written when logging.file is enabled.
//
// Tail returns the last matching lines or, given an offset, the lines
// appended since a previous call, optionally waiting for new output. Filter
// narrows lines to one run or event type using the structured keys every
// stage emits, so a run can be audited without a separate store.
package logs
