package extract_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"foldsweep/internal/extract"
	"foldsweep/internal/record"
	"foldsweep/internal/services"
	"foldsweep/internal/species"
)

const samplePayload = `[{"query":{"header":"AF-P12345-F1-model_v4","qCa":"1,2,3","qSeq":"MKV"},` +
	`"results":[{"db":"mouse","alignments":[` +
	`{"target":"AF-P12345-F1-model_v4","eval":0.0,"tCa":"x","alnLength":120,"tSeq":"MKV"},` +
	`{"target":"AF-Q11111-F1-model_v4","eval":1e-10,"prob":1,"tCa":"y","alnLength":118,"tSeq":"MKL"},` +
	`{"target":"Q22222","eval":0.5,"alnLength":40},` +
	`"garbage"` +
	`]}]}]`

func samplePage(payload string) string {
	return "<!DOCTYPE html>\n<html><body>\n<div id=\"app\"></div>\n<div>\n" + payload + "\n</div>\n</body>\n</html>\n"
}

func TestLocateStripsTrailingMarkup(t *testing.T) {
	got, err := extract.Locate([]byte(samplePage(samplePayload)))
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if string(got) != samplePayload {
		t.Fatalf("unexpected payload:\n%s", got)
	}
}

func TestLocateMissingMarker(t *testing.T) {
	_, err := extract.Locate([]byte("<html><body>no results</body></html>"))
	if !errors.Is(err, extract.ErrMarkerNotFound) {
		t.Fatalf("expected ErrMarkerNotFound, got %v", err)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation class, got %v", err)
	}
}

func TestNormalizeRenamesAndDropsSelfHits(t *testing.T) {
	ann := species.NewAnnotations(map[string]string{"Q11111": "Kinase <alpha>"}, "")
	records, stats, err := extract.Normalize([]byte(samplePayload), "Mouse", ann)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Query == nil || rec.Query.Accession != "P12345" {
		t.Fatalf("unexpected query %+v", rec.Query)
	}
	if _, ok := rec.Query.Fields["qca"]; !ok {
		t.Fatalf("qCa not renamed: %v", rec.Query.Fields)
	}
	if _, ok := rec.Query.Fields["header"]; ok {
		t.Fatal("header should be renamed to accession")
	}
	if stats.SelfHits != 1 || stats.Skipped != 1 || stats.Alignments != 2 || stats.Records != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(rec.Alignments) != 2 {
		t.Fatalf("expected 2 alignments, got %d", len(rec.Alignments))
	}
	for _, m := range rec.Alignments {
		if m.Target == rec.Query.Accession {
			t.Fatalf("self-hit survived: %+v", m)
		}
		if m.Species != "Mouse" {
			t.Fatalf("species not attached: %+v", m)
		}
	}
	first := rec.Alignments[0]
	if first.Target != "Q11111" || first.Annotation != "Kinase <alpha>" || !first.HasEValue || first.EValue != 1e-10 {
		t.Fatalf("unexpected first alignment %+v", first)
	}
	for _, key := range []string{"tca", "alnLen", "tseq", "prob"} {
		if _, ok := first.Fields[key]; !ok {
			t.Fatalf("expected field %q in %v", key, first.Fields)
		}
	}
	for _, key := range []string{"tCa", "alnLength", "tSeq"} {
		if _, ok := first.Fields[key]; ok {
			t.Fatalf("raw field %q should be renamed", key)
		}
	}
	if rec.Alignments[1].Annotation != species.Unavailable {
		t.Fatalf("expected N/A annotation, got %q", rec.Alignments[1].Annotation)
	}
}

func TestNormalizeRecordWithoutResults(t *testing.T) {
	records, _, err := extract.Normalize([]byte(`[{"query":{"header":"X1"}},{"query":{"header":"X2"},"results":[]}]`), "Mouse", nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, rec := range records {
		if rec.Alignments == nil || len(rec.Alignments) != 0 {
			t.Fatalf("expected empty alignments, got %+v", rec.Alignments)
		}
	}
}

func TestNormalizeRejectsMalformedPayload(t *testing.T) {
	for _, payload := range []string{`[{"query":`, `{"query":{}}`, `[1,2]`} {
		if _, _, err := extract.Normalize([]byte(payload), "Mouse", nil); !errors.Is(err, services.ErrValidation) {
			t.Errorf("payload %q: expected validation error, got %v", payload, err)
		}
	}
}

func TestNormalizeRequiresQuery(t *testing.T) {
	payloads := map[string]string{
		"absent": `[{"query":{"header":"E1"}},{"results":[{"alignments":[{"target":"T1","eval":0.1}]}]}]`,
		"null":   `[{"query":null,"results":[{"alignments":[{"target":"T1","eval":0.1}]}]}]`,
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			records, _, err := extract.Normalize([]byte(payload), "Mouse", nil)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), "missing query") {
				t.Fatalf("expected missing query in error, got %v", err)
			}
			if records != nil {
				t.Fatalf("expected no records, got %+v", records)
			}
		})
	}
}

func TestFileWithoutQueryWritesNoShard(t *testing.T) {
	root := t.TempDir()
	raw := filepath.Join(root, "E1.html")
	payload := `[{"query":{"header":"E1"}},{"results":[{"alignments":[{"target":"T1","eval":0.1}]}]}]`
	if err := os.WriteFile(raw, []byte(samplePage(payload)), 0o644); err != nil {
		t.Fatal(err)
	}

	ex, err := extract.New("Mouse", species.NewAnnotations(nil, ""), 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := ex.File(context.Background(), raw); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := os.Stat(extract.OutputPath(raw)); !os.IsNotExist(err) {
		t.Fatalf("record without query must not produce a shard: %v", err)
	}
}

func TestOutputPath(t *testing.T) {
	got := extract.OutputPath("/data/html/Mouse/P12345.html")
	want := filepath.Join("/data/html/Mouse", "JSON", "P12345.json")
	if got != want {
		t.Fatalf("OutputPath = %q, want %q", got, want)
	}
}

func TestDirProcessesSiblingsDespiteFailures(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "batch2")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		filepath.Join(root, "P12345.html"):   samplePage(samplePayload),
		filepath.Join(root, "BROKEN.html"):   "<html><body>tool crashed</body></html>",
		filepath.Join(nested, "Q99999.HTML"): samplePage(`[{"query":{"header":"Q99999"},"results":[{"alignments":[]}]}]`),
		filepath.Join(root, "notes.txt"):     "ignore me",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ex, err := extract.New("Mouse", species.NewAnnotations(nil, ""), 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summary, err := ex.Dir(context.Background(), root)
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if summary.Processed != 3 || summary.Written != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summary.FailedFiles) != 1 || filepath.Base(summary.FailedFiles[0]) != "BROKEN.html" {
		t.Fatalf("unexpected failed files %v", summary.FailedFiles)
	}
	if _, err := os.Stat(filepath.Join(root, "JSON", "BROKEN.json")); !os.IsNotExist(err) {
		t.Fatalf("failed file must not produce a shard: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "JSON", "P12345.json"))
	if err != nil {
		t.Fatalf("read shard: %v", err)
	}
	shard, err := record.DecodeShard(data)
	if err != nil {
		t.Fatalf("decode shard: %v", err)
	}
	if len(shard) != 1 || len(shard[0].Alignments) != 2 {
		t.Fatalf("unexpected shard %+v", shard)
	}
	var generic []map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatal(err)
	}
	if _, ok := generic[0]["results"]; ok {
		t.Fatal("results wrapper should be removed")
	}
	if !strings.Contains(string(data), `"annotation": "N/A"`) {
		t.Fatalf("expected N/A annotation in shard:\n%s", data)
	}

	if _, err := os.Stat(filepath.Join(nested, "JSON", "Q99999.json")); err != nil {
		t.Fatalf("nested shard missing: %v", err)
	}
}

func TestDirRejectsMissingRoot(t *testing.T) {
	ex, err := extract.New("Mouse", nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ex.Dir(context.Background(), filepath.Join(t.TempDir(), "missing")); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
