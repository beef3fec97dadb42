package species

import (
	"fmt"
	"path/filepath"
	"strings"

	"foldsweep/internal/services"
)

// Species table column names.
const (
	ColumnSpecies    = "Species"
	ColumnResultRoot = "HTML"
	ColumnTargetDB   = "DB"
	ColumnStructures = "CIF"
	ColumnAnnotation = "Annotation"
	ColumnUniProtID  = "UniProtID"
	ColumnSpeciesID  = "SpeciesID"
)

var tableColumns = []string{
	ColumnSpecies,
	ColumnResultRoot,
	ColumnTargetDB,
	ColumnStructures,
	ColumnAnnotation,
	ColumnUniProtID,
	ColumnSpeciesID,
}

// Descriptor is one row of the species table.
type Descriptor struct {
	Name string
	// ResultRoot holds raw search output; normalized shards live in its JSON
	// subfolder.
	ResultRoot     string
	TargetDB       string
	StructureDir   string
	AnnotationPath string
	UniProtRef     string
	SpeciesID      string
}

// Table is the parsed species table in file order.
type Table struct {
	path        string
	descriptors []Descriptor
	byName      map[string]int
}

// LoadTable reads a species table. Relative paths in the path columns are
// resolved against baseDir; an empty baseDir leaves them relative to the
// working directory.
func LoadTable(path, baseDir string) (*Table, error) {
	file, err := readTSV(path, tableColumns)
	if err != nil {
		return nil, err
	}

	table := &Table{path: path, byName: make(map[string]int, len(file.rows))}
	for _, row := range file.rows {
		name := file.value(row, ColumnSpecies)
		if name == "" {
			continue
		}
		desc := Descriptor{
			Name:           name,
			ResultRoot:     resolve(baseDir, file.value(row, ColumnResultRoot)),
			TargetDB:       resolve(baseDir, file.value(row, ColumnTargetDB)),
			StructureDir:   resolve(baseDir, file.value(row, ColumnStructures)),
			AnnotationPath: resolve(baseDir, file.value(row, ColumnAnnotation)),
			UniProtRef:     file.value(row, ColumnUniProtID),
			SpeciesID:      file.value(row, ColumnSpeciesID),
		}
		if idx, dup := table.byName[name]; dup {
			// Later rows win, matching a dictionary load of the table.
			table.descriptors[idx] = desc
			continue
		}
		table.byName[name] = len(table.descriptors)
		table.descriptors = append(table.descriptors, desc)
	}
	if len(table.descriptors) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "input", "species table", path+" has no species rows", nil)
	}
	return table, nil
}

// Path returns the file the table was loaded from.
func (t *Table) Path() string { return t.path }

// Lookup returns the descriptor for name.
func (t *Table) Lookup(name string) (Descriptor, bool) {
	idx, ok := t.byName[strings.TrimSpace(name)]
	if !ok {
		return Descriptor{}, false
	}
	return t.descriptors[idx], true
}

// Require returns the descriptor for name or a configuration error.
func (t *Table) Require(role, name string) (Descriptor, error) {
	desc, ok := t.Lookup(name)
	if !ok {
		return Descriptor{}, services.Wrap(services.ErrConfiguration, "input", "species table",
			fmt.Sprintf("%s species %q not found in %s", role, name, t.path), nil)
	}
	return desc, nil
}

// All returns the descriptors in table order.
func (t *Table) All() []Descriptor {
	out := make([]Descriptor, len(t.descriptors))
	copy(out, t.descriptors)
	return out
}

func resolve(baseDir, value string) string {
	if value == "" || baseDir == "" || filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(baseDir, value)
}
