// Package species loads the tab-separated inputs that describe the pipeline:
// the species descriptor table and per-species annotation lookups.
//
// Both formats come from external collaborators, so column lookups go by
// header name rather than position, a leading UTF-8 byte order mark is
// tolerated, and a missing required column is reported as a configuration
// error before any work starts.
package species
