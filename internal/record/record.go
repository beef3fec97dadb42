package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Canonical JSON keys.
const (
	KeyQuery      = "query"
	KeyAlignments = "alignments"
	KeyAccession  = "accession"
	KeyTarget     = "target"
	KeyEValue     = "eval"
	KeySpecies    = "species"
	KeyAnnotation = "annotation"
)

// QueryHeader describes the queried entity of a record.
type QueryHeader struct {
	Accession string
	Fields    map[string]json.RawMessage
}

// IsEmpty reports whether the header carries no information.
func (q QueryHeader) IsEmpty() bool {
	return q.Accession == "" && len(q.Fields) == 0
}

// MarshalJSON merges the accession with the preserved raw fields.
func (q QueryHeader) MarshalJSON() ([]byte, error) {
	out := cloneFields(q.Fields, 1)
	if q.Accession != "" {
		if err := setString(out, KeyAccession, q.Accession); err != nil {
			return nil, err
		}
	}
	return marshalObject(out)
}

// UnmarshalJSON splits the accession from the remaining raw fields.
func (q *QueryHeader) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return fmt.Errorf("query header: %w", err)
	}
	*q = QueryHeader{}
	if s, ok := takeString(fields, KeyAccession); ok {
		q.Accession = s
	}
	q.Fields = fields
	return nil
}

// Match is one alignment against a target entity.
type Match struct {
	Target     string
	EValue     float64
	HasEValue  bool
	Species    string
	Annotation string
	Fields     map[string]json.RawMessage
}

// MarshalJSON merges the typed match attributes with the preserved raw fields.
func (m Match) MarshalJSON() ([]byte, error) {
	out := cloneFields(m.Fields, 4)
	if m.Target != "" {
		if err := setString(out, KeyTarget, m.Target); err != nil {
			return nil, err
		}
	}
	if m.HasEValue {
		raw, err := json.Marshal(m.EValue)
		if err != nil {
			return nil, fmt.Errorf("encode eval: %w", err)
		}
		out[KeyEValue] = raw
	}
	if m.Species != "" {
		if err := setString(out, KeySpecies, m.Species); err != nil {
			return nil, err
		}
	}
	if m.Annotation != "" {
		if err := setString(out, KeyAnnotation, m.Annotation); err != nil {
			return nil, err
		}
	}
	return marshalObject(out)
}

// UnmarshalJSON extracts the typed attributes. A non-numeric eval is kept in
// Fields and leaves HasEValue false.
func (m *Match) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data)
	if err != nil {
		return fmt.Errorf("alignment: %w", err)
	}
	*m = Match{}
	if s, ok := takeString(fields, KeyTarget); ok {
		m.Target = s
	}
	if raw, ok := fields[KeyEValue]; ok {
		if v, ok := decodeNumber(raw); ok {
			m.EValue = v
			m.HasEValue = true
			delete(fields, KeyEValue)
		}
	}
	if s, ok := takeString(fields, KeySpecies); ok {
		m.Species = s
	}
	if s, ok := takeString(fields, KeyAnnotation); ok {
		m.Annotation = s
	}
	m.Fields = fields
	return nil
}

// Record is one normalized per-species result: the query header plus its
// filtered, annotated alignments.
type Record struct {
	Query      *QueryHeader `json:"query,omitempty"`
	Alignments []Match      `json:"alignments"`
}

// Master is the merged result for one entity across all species.
type Master struct {
	Query      QueryHeader `json:"query"`
	Alignments []Match     `json:"alignments"`
}

// Encode renders v as indented JSON followed by a newline. HTML characters are
// not escaped so annotations stay readable.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeShard parses a normalized per-species file.
func DecodeShard(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Alignments == nil {
			records[i].Alignments = []Match{}
		}
	}
	return records, nil
}

var errNotObject = errors.New("expected JSON object")

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errNotObject
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	return fields, nil
}

func decodeNumber(raw json.RawMessage) (float64, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, false
	}
	// Reject strings and other literals; only bare JSON numbers count.
	if c := trimmed[0]; c != '-' && (c < '0' || c > '9') {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return 0, false
	}
	return v, true
}

// takeString moves a string field out of fields. An empty string stays in
// fields so the key survives re-encoding while the typed value is unset.
func takeString(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	if s != "" {
		delete(fields, key)
	}
	return s, true
}

func setString(fields map[string]json.RawMessage, key, value string) error {
	raw, err := marshalValue(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	fields[key] = raw
	return nil
}

func cloneFields(fields map[string]json.RawMessage, extra int) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(fields)+extra)
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func marshalObject(fields map[string]json.RawMessage) ([]byte, error) {
	return marshalValue(fields)
}

func marshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
