package accession_test

import (
	"testing"

	"foldsweep/internal/accession"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "model cif gz", in: "AF-P12345-F1-model_v4.cif.gz", want: "P12345"},
		{name: "model pdb gz", in: "AF-Q9XYZ1-F1-model_v4.pdb.gz", want: "Q9XYZ1"},
		{name: "model json gz", in: "AF-A0A024-F1-model_v4.json.gz", want: "A0A024"},
		{name: "model newer version", in: "AF-P99999-F1-model_v6.cif", want: "P99999"},
		{name: "model bare header", in: "AF-P12345-F1-model_v4", want: "P12345"},
		{name: "case insensitive", in: "af-p1-f1-MODEL_V4.CIF.GZ", want: "p1"},
		{name: "with directory", in: "/data/structures/AF-P1-F1-model_v4.pdb.gz", want: "P1"},
		{name: "plain pdb", in: "A010FDG.pdb", want: "A010FDG"},
		{name: "plain pdb gz", in: "A010FDG.pdb.gz", want: "A010FDG"},
		{name: "unknown extension kept", in: "A010FDG.html", want: "A010FDG.html"},
		{name: "no extension", in: "Q1", want: "Q1"},
		{name: "empty capture", in: "AF--F1-model_v4.cif.gz", want: ""},
		{name: "suffix only", in: ".cif.gz", want: ""},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := accession.Normalize(tt.in); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIsStableAcrossSuffixes(t *testing.T) {
	base := "AF-O15552-F1-model_v4"
	want := accession.Normalize(base)
	for _, suffix := range accession.StructureSuffixes() {
		if got := accession.Normalize(base + suffix); got != want {
			t.Fatalf("suffix %s: got %q want %q", suffix, got, want)
		}
	}
}

func TestHasStructureSuffix(t *testing.T) {
	if !accession.HasStructureSuffix("x.PDB.GZ") {
		t.Fatal("expected .PDB.GZ to be recognized")
	}
	if accession.HasStructureSuffix("x.txt") {
		t.Fatal("did not expect .txt to be recognized")
	}
}
