package merge

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"foldsweep/internal/accession"
	"foldsweep/internal/services"
)

// CollectReferenceIDs returns the entity IDs of every structure file directly
// under dir.
func CollectReferenceIDs(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "merge", "reference scan",
			"read reference directory "+dir, err)
	}
	ids := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isReferenceStructure(entry.Name()) {
			continue
		}
		if id := accession.Normalize(entry.Name()); id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

// isReferenceStructure accepts coordinate files only; .json.gz metadata
// archives share the model naming but carry no structure.
func isReferenceStructure(name string) bool {
	return accession.HasStructureSuffix(name) && !strings.HasSuffix(strings.ToLower(name), ".json.gz")
}

// SortedIDs returns the members of ids in ascending order.
func SortedIDs(ids map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CandidateFunc proposes a shard path for an entity under a species result
// root.
type CandidateFunc func(root, id string) string

// PrimaryCandidate is <root>/JSON/<id>.json.
func PrimaryCandidate(root, id string) string {
	return filepath.Join(root, "JSON", id+".json")
}

// AlternateCandidate is <root>/JSON/<id>.pdb.json, written when the raw file
// kept its structure suffix.
func AlternateCandidate(root, id string) string {
	return filepath.Join(root, "JSON", id+".pdb.json")
}

// DefaultCandidates is the lookup order used unless overridden.
func DefaultCandidates() []CandidateFunc {
	return []CandidateFunc{PrimaryCandidate, AlternateCandidate}
}

// locateShard returns the first candidate that is a regular file, and every
// path tried.
func locateShard(candidates []CandidateFunc, root, id string) (string, []string) {
	tried := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		path := candidate(root, id)
		tried = append(tried, path)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, tried
		}
	}
	return "", tried
}
