package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"foldsweep/internal/species"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteSpeciesTable writes a species table with one row per descriptor.
func WriteSpeciesTable(t testing.TB, path string, rows ...species.Descriptor) {
	t.Helper()

	var b strings.Builder
	b.WriteString(strings.Join([]string{
		species.ColumnSpecies,
		species.ColumnResultRoot,
		species.ColumnTargetDB,
		species.ColumnStructures,
		species.ColumnAnnotation,
		species.ColumnUniProtID,
		species.ColumnSpeciesID,
	}, "\t"))
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(strings.Join([]string{
			row.Name, row.ResultRoot, row.TargetDB, row.StructureDir,
			row.AnnotationPath, row.UniProtRef, row.SpeciesID,
		}, "\t"))
		b.WriteByte('\n')
	}
	WriteFile(t, path, b.String())
}

// WriteAnnotations writes an annotation table mapping entries to protein names.
func WriteAnnotations(t testing.TB, path string, names map[string]string) {
	t.Helper()

	var b strings.Builder
	b.WriteString("Entry\tGene Names\tProtein names\n")
	for entry, name := range names {
		b.WriteString(entry + "\t\t" + name + "\n")
	}
	WriteFile(t, path, b.String())
}

// WriteResultPage writes a raw search result page embedding payload the way
// the search tool renders it.
func WriteResultPage(t testing.TB, path, payload string) {
	t.Helper()

	WriteFile(t, path, "<!DOCTYPE html>\n<html>\n<body>\n<div id=\"app\"></div>\n<div>\n"+payload+"\n</div>\n</body>\n</html>\n")
}
