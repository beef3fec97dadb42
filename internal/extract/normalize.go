package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"foldsweep/internal/accession"
	"foldsweep/internal/record"
	"foldsweep/internal/services"
)

// Annotator resolves a target accession to a description.
type Annotator interface {
	Lookup(id string) string
}

// Raw key names emitted by the search tool and their canonical replacements.
var (
	queryRenames = map[string]string{
		"qCa":    "qca",
		"header": record.KeyAccession,
	}
	alignmentRenames = map[string]string{
		"tCa":       "tca",
		"alnLength": "alnLen",
		"tSeq":      "tseq",
	}
)

// Stats counts what normalization kept and dropped.
type Stats struct {
	Records    int
	Alignments int
	SelfHits   int
	Skipped    int
}

func (s *Stats) add(other Stats) {
	s.Records += other.Records
	s.Alignments += other.Alignments
	s.SelfHits += other.SelfHits
	s.Skipped += other.Skipped
}

// Normalize decodes an embedded payload into normalized records. Alignments
// are taken from the first results entry, renamed to canonical keys,
// self-hits are removed and the remainder is tagged with speciesName and the
// annotation of its target.
func Normalize(payload []byte, speciesName string, annotations Annotator) ([]record.Record, Stats, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, Stats{}, services.Wrap(services.ErrValidation, "extract", "decode payload", "payload is not a JSON array", err)
	}

	var stats Stats
	records := make([]record.Record, 0, len(raw))
	for i, entry := range raw {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
			return nil, stats, services.Wrap(services.ErrValidation, "extract", "decode payload",
				fmt.Sprintf("entry %d is not an object", i), err)
		}
		rec, recStats, err := normalizeRecord(fields, speciesName, annotations)
		if err != nil {
			return nil, stats, services.Wrap(services.ErrValidation, "extract", "decode payload",
				fmt.Sprintf("entry %d", i), err)
		}
		stats.add(recStats)
		stats.Records++
		records = append(records, rec)
	}
	return records, stats, nil
}

var errMissingQuery = errors.New("missing query")

func normalizeRecord(fields map[string]json.RawMessage, speciesName string, annotations Annotator) (record.Record, Stats, error) {
	var stats Stats
	rec := record.Record{Alignments: []record.Match{}}

	raw, ok := fields[record.KeyQuery]
	if !ok || isNull(raw) {
		return rec, stats, errMissingQuery
	}
	query, err := normalizeQuery(raw)
	if err != nil {
		return rec, stats, err
	}
	rec.Query = &query
	queryAccession := query.Accession

	for _, raw := range firstResultAlignments(fields["results"]) {
		match, ok := normalizeAlignment(raw)
		if !ok {
			stats.Skipped++
			continue
		}
		if queryAccession != "" && match.Target == queryAccession {
			stats.SelfHits++
			continue
		}
		match.Species = speciesName
		if annotations != nil {
			match.Annotation = annotations.Lookup(match.Target)
		}
		rec.Alignments = append(rec.Alignments, match)
		stats.Alignments++
	}
	return rec, stats, nil
}

func normalizeQuery(raw json.RawMessage) (record.QueryHeader, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return record.QueryHeader{}, fmt.Errorf("query is not an object")
	}
	rename(fields, queryRenames)
	if err := normalizeID(fields, record.KeyAccession); err != nil {
		return record.QueryHeader{}, err
	}
	data, err := encodeObject(fields)
	if err != nil {
		return record.QueryHeader{}, err
	}
	var query record.QueryHeader
	if err := json.Unmarshal(data, &query); err != nil {
		return record.QueryHeader{}, err
	}
	return query, nil
}

func normalizeAlignment(raw json.RawMessage) (record.Match, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return record.Match{}, false
	}
	rename(fields, alignmentRenames)
	if err := normalizeID(fields, record.KeyTarget); err != nil {
		return record.Match{}, false
	}
	data, err := encodeObject(fields)
	if err != nil {
		return record.Match{}, false
	}
	var match record.Match
	if err := json.Unmarshal(data, &match); err != nil {
		return record.Match{}, false
	}
	return match, true
}

// firstResultAlignments returns results[0].alignments, or nothing when any
// level is missing or malformed.
func firstResultAlignments(raw json.RawMessage) []json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var results []json.RawMessage
	if err := json.Unmarshal(raw, &results); err != nil || len(results) == 0 {
		return nil
	}
	var first struct {
		Alignments []json.RawMessage `json:"alignments"`
	}
	if err := json.Unmarshal(results[0], &first); err != nil {
		return nil
	}
	return first.Alignments
}

func rename(fields map[string]json.RawMessage, renames map[string]string) {
	for from, to := range renames {
		if v, ok := fields[from]; ok {
			delete(fields, from)
			fields[to] = v
		}
	}
}

// normalizeID rewrites a string identifier field through accession.Normalize.
// Non-string values are left untouched.
func normalizeID(fields map[string]json.RawMessage, key string) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	normalized, err := encodeObject(accession.Normalize(s))
	if err != nil {
		return err
	}
	fields[key] = normalized
	return nil
}

// encodeObject marshals v without escaping HTML characters.
func encodeObject(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
