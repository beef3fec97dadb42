package accession

import (
	"path/filepath"
	"regexp"
	"strings"
)

// structureSuffixes are stripped before template matching. Compound suffixes
// come first so ".pdb.gz" is not reduced to ".pdb".
var structureSuffixes = []string{
	".cif.gz",
	".pdb.gz",
	".json.gz",
	".cif",
	".pdb",
}

// modelTemplate matches AlphaFold DB model names, e.g. AF-P12345-F1-model_v4.
var modelTemplate = regexp.MustCompile(`(?i)^AF-(.*?)-F1-model_v\d+`)

// Normalize returns the entity identifier encoded in filename. Names that do
// not follow the model template fall back to the suffix-stripped stem. An
// empty result means the name cannot identify an entity.
func Normalize(filename string) string {
	stem := TrimStructureSuffix(filepath.Base(strings.TrimSpace(filename)))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return ""
	}
	if m := modelTemplate.FindStringSubmatch(stem); m != nil {
		return m[1]
	}
	return stem
}

// TrimStructureSuffix removes one known structure suffix (case-insensitive).
func TrimStructureSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, suffix := range structureSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}

// HasStructureSuffix reports whether name ends in a supported structure suffix.
func HasStructureSuffix(name string) bool {
	return TrimStructureSuffix(name) != name
}

// StructureSuffixes returns a copy of the supported structure suffixes.
func StructureSuffixes() []string {
	out := make([]string, len(structureSuffixes))
	copy(out, structureSuffixes)
	return out
}
