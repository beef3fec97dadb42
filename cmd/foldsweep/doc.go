// Package main hosts the foldsweep CLI entrypoint and command graph.
//
// Each pipeline stage is a subcommand: search dispatches structure searches
// against a target species database, extract normalizes the raw result pages
// into per-entity JSON shards, and merge pools shards across species into
// ranked master records. The runs and status commands read the run ledger
// and environment readiness. Configuration is resolved lazily in a shared
// command context so subcommands only deal with their own inputs.
package main
