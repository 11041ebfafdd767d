// Package translocate detects renames and moves between two file-set
// snapshots by content-hash equality, the comparison core the Chronicle
// Scribe uses to federate a new manifest against its predecessor without
// recording a delete-then-create pair for every path the Architect simply
// moved.
package translocate

import (
	"sort"

	"github.com/novalym/velm-sub003/internal/types"
)

// Translocation is one path whose content survived unchanged at a new
// location between two snapshots.
type Translocation struct {
	From   string
	To     string
	SHA256 string
}

// Report classifies every path across the before/after snapshots.
type Report struct {
	// Moved holds paths whose content-hash matched a different path in
	// the other snapshot.
	Moved []Translocation
	// New holds after-paths with no content-hash match in before.
	New []string
	// Unchanged holds paths present at the same location in both
	// snapshots with the same hash.
	Unchanged []string
	// Orphaned holds before-paths with no content-hash match anywhere
	// in after — candidates for the caller's own ignore/archive/delete
	// adjudication, which this package does not perform.
	Orphaned []string
}

// Detect compares a prior manifest's file entries against a transaction's
// newly staged file hashes (path -> sha256) and classifies every path by
// content-hash equality. This mirrors the hash-exact matching pass of
// detective.py's `_synthesize_plan` (Movement I); the original's difflib
// fuzzy-similarity pass over the unmatched remainder, and its interactive
// adjudication of ambiguous matches, are out of scope here — a hash miss
// is simply reported as New/Orphaned for the caller to act on.
func Detect(before map[string]types.ManifestFileEntry, after map[string]string) Report {
	// hash -> origin path, built in sorted order so that when two before
	// paths share a hash (duplicate content) the tie is broken the same
	// way every run rather than depending on map iteration order.
	available := make(map[string]string, len(before))
	for _, path := range sortedKeys(before) {
		available[before[path].SHA256] = path
	}

	var report Report
	matchedBefore := make(map[string]bool, len(before))

	for _, path := range sortedStringKeys(after) {
		hash := after[path]
		origin, ok := available[hash]
		if !ok {
			report.New = append(report.New, path)
			continue
		}
		matchedBefore[origin] = true
		delete(available, hash)

		if origin == path {
			report.Unchanged = append(report.Unchanged, path)
		} else {
			report.Moved = append(report.Moved, Translocation{From: origin, To: path, SHA256: hash})
		}
	}

	for _, path := range sortedKeys(before) {
		if !matchedBefore[path] {
			report.Orphaned = append(report.Orphaned, path)
		}
	}

	return report
}

func sortedKeys(m map[string]types.ManifestFileEntry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStringKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
