package species_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"foldsweep/internal/services"
	"foldsweep/internal/species"
)

const tableHeader = "Species\tHTML\tDB\tCIF\tAnnotation\tUniProtID\tSpeciesID\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadTableResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "species.tsv", "\ufeff"+tableHeader+
		"Human\thtml/Human\tdb/human\tstructures/Human\tann/human.tsv\tUP000005640\t9606\n"+
		"Mouse\t/abs/html/Mouse\t/abs/db/mouse\t/abs/structures/Mouse\t/abs/ann/mouse.tsv\tUP000000589\t10090\n"+
		"\t\t\t\t\t\t\n")

	table, err := species.LoadTable(path, "/shared")
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	all := table.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 species, got %d", len(all))
	}
	if all[0].Name != "Human" || all[1].Name != "Mouse" {
		t.Fatalf("unexpected order: %+v", all)
	}
	human, ok := table.Lookup("Human")
	if !ok {
		t.Fatal("expected Human in table")
	}
	if human.ResultRoot != "/shared/html/Human" || human.TargetDB != "/shared/db/human" {
		t.Fatalf("relative paths not resolved: %+v", human)
	}
	if human.SpeciesID != "9606" || human.UniProtRef != "UP000005640" {
		t.Fatalf("unexpected identifiers: %+v", human)
	}
	mouse, _ := table.Lookup("Mouse")
	if mouse.StructureDir != "/abs/structures/Mouse" {
		t.Fatalf("absolute path rewritten: %q", mouse.StructureDir)
	}
}

func TestLoadTableMissingColumn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "species.tsv", "Species\tHTML\tDB\nHuman\th\td\n")
	_, err := species.LoadTable(path, "")
	if err == nil {
		t.Fatal("expected error for missing columns")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "CIF") {
		t.Fatalf("expected missing column names in error, got %v", err)
	}
}

func TestLoadTableMissingFile(t *testing.T) {
	_, err := species.LoadTable(filepath.Join(t.TempDir(), "nope.tsv"), "")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRequireUnknownSpecies(t *testing.T) {
	path := writeFile(t, t.TempDir(), "species.tsv", tableHeader+"Human\th\td\tc\ta\tu\t1\n")
	table, err := species.LoadTable(path, "")
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if _, err := table.Require("target", "Zebrafish"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if desc, err := table.Require("reference", "Human"); err != nil || desc.ResultRoot != "h" {
		t.Fatalf("unexpected descriptor %+v err=%v", desc, err)
	}
}

func TestLoadAnnotations(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ann.tsv",
		"Entry\tGene Names\tProtein names\n"+
			"P1\tABC1 XYZ\tATP-binding cassette 1\n"+
			"P2\tGENE2\t\n"+
			"\tGENE3\tOrphan description\n"+
			"P3\t\t5'-nucleotidase \"cytosolic\"\n")

	ann, err := species.LoadAnnotations(path, "")
	if err != nil {
		t.Fatalf("LoadAnnotations: %v", err)
	}
	if ann.Len() != 2 {
		t.Fatalf("expected 2 mapped entries, got %d", ann.Len())
	}
	if got := ann.Lookup("P1"); got != "ATP-binding cassette 1" {
		t.Fatalf("P1 = %q", got)
	}
	if got := ann.Lookup("P2"); got != species.Unavailable {
		t.Fatalf("P2 should be unavailable, got %q", got)
	}
	if got := ann.Lookup("P3"); got != `5'-nucleotidase "cytosolic"` {
		t.Fatalf("P3 = %q", got)
	}
	if got := ann.Lookup("missing"); got != "N/A" {
		t.Fatalf("missing = %q", got)
	}
}

func TestLoadAnnotationsRequiresColumns(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ann.tsv", "Entry\tGene Names\nP1\tX\n")
	if _, err := species.LoadAnnotations(path, ""); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestAnnotationsCustomFallback(t *testing.T) {
	ann := species.NewAnnotations(map[string]string{"T1": "Kinase"}, "unavailable")
	if ann.Lookup("T1") != "Kinase" || ann.Lookup("T2") != "unavailable" {
		t.Fatalf("unexpected lookups: %q %q", ann.Lookup("T1"), ann.Lookup("T2"))
	}
	var zero species.Annotations
	if zero.Lookup("x") != species.Unavailable {
		t.Fatal("zero value should fall back to N/A")
	}
}
