// Package sentinel adjudicates blueprint path tokens: it normalizes
// separators, rejects forbidden characters and traversal, and guards
// against case-collision between paths destined for the same staging tree.
package sentinel

import (
	"path/filepath"
	"strings"

	"github.com/novalym/velm-sub003/internal/heresy"
)

// reservedWindowsNames are device names reserved regardless of extension
// (CON, CON.txt, etc. are all reserved).
var reservedWindowsNames = map[string]struct{}{
	"con": {}, "prn": {}, "nul": {}, "aux": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// forbiddenChars are rejected in any path segment, matching the
// case-insensitive-Windows-hostile character set.
const forbiddenChars = "<>|?*"

// Sentinel adjudicates paths against a single project root and remembers
// the lowercase form of every path it has already accepted, so a later
// sibling differing only in case is caught as a collision.
type Sentinel struct {
	root      string
	caseIndex map[string]string // lowercase path -> first-seen exact path
}

// New returns a Sentinel rooted at root, which must be an absolute,
// cleaned directory path.
func New(root string) *Sentinel {
	return &Sentinel{
		root:      filepath.Clean(root),
		caseIndex: make(map[string]string),
	}
}

// Adjudicate normalizes raw, validates it against the forbidden-character,
// traversal and reserved-name rules, resolves it against the project root,
// and checks for a case collision with a previously adjudicated path. On
// success it returns the project-root-relative path with forward slashes.
func (s *Sentinel) Adjudicate(raw string) (string, *heresy.Heresy) {
	if raw == "" {
		return "", heresy.New(heresy.KindPath, raw, 0, 0, "empty path")
	}

	for _, r := range raw {
		if r < 0x20 || strings.ContainsRune(forbiddenChars, r) {
			return "", heresy.New(heresy.KindPath, raw, 0, 0, "forbidden character %q in path", r)
		}
	}

	normalized := strings.ReplaceAll(raw, "\\", "/")
	normalized = strings.TrimPrefix(normalized, "/")

	segments := strings.Split(normalized, "/")
	for _, seg := range segments {
		if seg == ".." {
			return "", heresy.New(heresy.KindPath, raw, 0, 0, "path traversal segment %q", seg)
		}
		if seg == ".git" {
			return "", heresy.New(heresy.KindPath, raw, 0, 0, "reserved segment %q", seg)
		}
		base := seg
		if idx := strings.IndexByte(base, '.'); idx >= 0 {
			base = base[:idx]
		}
		if _, reserved := reservedWindowsNames[strings.ToLower(base)]; reserved {
			return "", heresy.New(heresy.KindPath, raw, 0, 0, "reserved device name %q", seg)
		}
	}

	cleanRel := filepath.ToSlash(filepath.Clean(normalized))
	if cleanRel == "." || cleanRel == "" {
		return "", heresy.New(heresy.KindPath, raw, 0, 0, "path resolves to project root itself")
	}

	resolved := filepath.Join(s.root, filepath.FromSlash(cleanRel))
	resolvedClean := filepath.Clean(resolved)
	rootWithSep := s.root + string(filepath.Separator)
	if resolvedClean != s.root && !strings.HasPrefix(resolvedClean, rootWithSep) {
		return "", heresy.New(heresy.KindPath, raw, 0, 0, "resolves outside project root: %s", resolvedClean)
	}

	lower := strings.ToLower(cleanRel)
	if prior, seen := s.caseIndex[lower]; seen && prior != cleanRel {
		return "", heresy.New(heresy.KindPath, raw, 0, 0,
			"case collision with already-planned path %q", prior)
	}
	s.caseIndex[lower] = cleanRel

	return cleanRel, nil
}

// Reset clears the case-collision index, for adjudicating a fresh plan
// against the same Sentinel instance.
func (s *Sentinel) Reset() {
	s.caseIndex = make(map[string]string)
}

// SeedExisting indexes paths already present on the project root (as
// root-relative, forward-slash paths) before any blueprint item is
// adjudicated, so a later Adjudicate call catches a case collision
// against a file that already exists but was never replanned by this
// rite - not just against other paths the current plan itself touches.
// An existing entry never overwrites one Adjudicate has already recorded.
func (s *Sentinel) SeedExisting(paths []string) {
	for _, p := range paths {
		clean := filepath.ToSlash(filepath.Clean(p))
		if clean == "." || clean == "" {
			continue
		}
		lower := strings.ToLower(clean)
		if _, seen := s.caseIndex[lower]; !seen {
			s.caseIndex[lower] = clean
		}
	}
}

// VerifyFinalSet re-derives case-collision detection from scratch over
// paths (the transaction's actually-touched set, independent of whatever
// incremental state Adjudicate already accumulated), catching anything a
// per-call check could miss if a path ever reached Promote without
// passing through Adjudicate.
func (s *Sentinel) VerifyFinalSet(paths []string) *heresy.Heresy {
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		clean := filepath.ToSlash(filepath.Clean(p))
		lower := strings.ToLower(clean)
		if prior, ok := seen[lower]; ok && prior != clean {
			return heresy.New(heresy.KindPath, clean, 0, 0,
				"case collision in final promoted set: %q vs %q", prior, clean)
		}
		seen[lower] = clean
	}
	return nil
}
