// Package preflight provides readiness checks for the external search tool
// and the filesystem paths foldsweep reads and writes.
//
// These checks run in two contexts:
//   - Stage commands validate their inputs before any work starts, so a
//     mistyped species or missing database fails fast instead of producing a
//     directory of failed jobs.
//   - The CLI "foldsweep status" command uses RunAll to display readiness.
package preflight
