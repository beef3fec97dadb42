package species

// Annotation file column names.
const (
	ColumnEntry        = "Entry"
	ColumnGeneNames    = "Gene Names"
	ColumnProteinNames = "Protein names"
)

// Unavailable is the annotation reported for unmapped accessions.
const Unavailable = "N/A"

// Annotations maps accessions to human-readable protein descriptions.
type Annotations struct {
	names    map[string]string
	fallback string
}

// NewAnnotations builds a lookup from an in-memory mapping.
func NewAnnotations(names map[string]string, fallback string) Annotations {
	if fallback == "" {
		fallback = Unavailable
	}
	cp := make(map[string]string, len(names))
	for k, v := range names {
		cp[k] = v
	}
	return Annotations{names: cp, fallback: fallback}
}

// LoadAnnotations reads an annotation TSV. Rows lacking either the entry or
// the protein names are not mapped.
func LoadAnnotations(path, fallback string) (Annotations, error) {
	file, err := readTSV(path, []string{ColumnEntry, ColumnProteinNames})
	if err != nil {
		return Annotations{}, err
	}
	names := make(map[string]string, len(file.rows))
	for _, row := range file.rows {
		entry := file.value(row, ColumnEntry)
		desc := file.value(row, ColumnProteinNames)
		if entry == "" || desc == "" {
			continue
		}
		names[entry] = desc
	}
	ann := NewAnnotations(nil, fallback)
	ann.names = names
	return ann, nil
}

// Lookup returns the description for id, or the fallback sentinel.
func (a Annotations) Lookup(id string) string {
	if desc, ok := a.names[id]; ok {
		return desc
	}
	if a.fallback == "" {
		return Unavailable
	}
	return a.fallback
}

// Len reports the number of mapped accessions.
func (a Annotations) Len() int { return len(a.names) }
