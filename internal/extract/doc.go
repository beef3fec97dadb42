// Package extract turns raw search result pages into normalized per-species
// shards.
//
// Each result page embeds a JSON array beginning with the marker [{"query".
// Locate cuts that payload out of the page, Normalize renames fields to their
// canonical keys, resolves identifiers, drops self-hits and attaches species
// and annotation metadata, and Extractor writes the result to
// <dir>/JSON/<stem>.json next to the raw file.
package extract
