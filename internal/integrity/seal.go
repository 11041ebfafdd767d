// Package integrity computes the hashes the Chronicle Scribe seals a
// manifest with after Commit: a content hash over every materialized
// file's own hash, a hash over the manifest's canonical serialized form,
// and a Merkle-style root over sorted (path, sha256) pairs for large
// projects, so a later rite can detect drift between scaffold.lock and
// the real tree in a single comparison.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/novalym/velm-sub003/internal/types"
)

// HashBytes returns the lowercase hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CanonicalJSON serializes v deterministically: encoding/json already
// sorts map keys and struct fields serialize in declaration order, which
// is all the determinism a Manifest's shape needs since it has no
// interface-typed or non-map unordered collection fields.
func CanonicalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// manifestShadow excludes Integrity so ComputeManifestHash can hash a
// manifest's content without hashing its own prior seal.
type manifestShadow struct {
	Version     int
	Provenance  types.Provenance
	GnosisDelta map[string]string
	Edicts      types.ManifestEdicts
	Heresies    []string
	Files       map[string]types.ManifestFileEntry
}

// ComputeManifestHash hashes the canonical JSON of m, excluding m.Integrity
// itself.
func ComputeManifestHash(m *types.Manifest) (string, error) {
	shadow := manifestShadow{
		Version:     m.Version,
		Provenance:  m.Provenance,
		GnosisDelta: m.GnosisDelta,
		Edicts:      m.Edicts,
		Heresies:    m.Heresies,
		Files:       m.Files,
	}
	data, err := CanonicalJSON(shadow)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// sortedPaths returns files' keys in lexical order.
func sortedPaths(files map[string]types.ManifestFileEntry) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ComputeContentHash hashes the concatenation of every file's own SHA256,
// ordered by path, so two manifests with the same file set and content
// hash identically regardless of map iteration order or insertion history.
func ComputeContentHash(files map[string]types.ManifestFileEntry) string {
	var b strings.Builder
	for _, path := range sortedPaths(files) {
		b.WriteString(files[path].SHA256)
		b.WriteByte('\n')
	}
	return HashBytes([]byte(b.String()))
}

// ComputeMerkleRoot builds a Merkle-style binary tree over files' sorted
// (path, sha256) pairs and returns the hex root. An odd node at any level
// is promoted unchanged to the next level rather than duplicated, since
// duplicating the last leaf lets an attacker equivocate about the true
// leaf count.
func ComputeMerkleRoot(files map[string]types.ManifestFileEntry) string {
	paths := sortedPaths(files)
	if len(paths) == 0 {
		return HashBytes(nil)
	}
	level := make([]string, len(paths))
	for i, path := range paths {
		level[i] = HashBytes([]byte(path + ":" + files[path].SHA256))
	}
	for len(level) > 1 {
		var next []string
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			combined, _ := hex.DecodeString(level[i])
			right, _ := hex.DecodeString(level[i+1])
			next = append(next, HashBytes(append(combined, right...)))
		}
		level = next
	}
	return level[0]
}

// ComputeSeal computes all three integrity hashes for m's current Files
// map and returns a populated IntegritySeal.
func ComputeSeal(m *types.Manifest) (types.IntegritySeal, error) {
	manifestHash, err := ComputeManifestHash(m)
	if err != nil {
		return types.IntegritySeal{}, err
	}
	return types.IntegritySeal{
		ContentHash:  ComputeContentHash(m.Files),
		ManifestHash: manifestHash,
		MerkleRoot:   ComputeMerkleRoot(m.Files),
	}, nil
}
