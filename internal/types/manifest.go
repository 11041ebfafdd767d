package types

import "time"

// Provenance records who/what/when produced a Manifest version.
type Provenance struct {
	Timestamp time.Time
	Architect string // the user or process identity that ran the rite
	GitCommit string // HEAD commit hash at rite time, if the project is a git checkout
}

// IntegritySeal bundles the hashes that let a later rite detect drift
// between the chronicle and the actual tree.
type IntegritySeal struct {
	ContentHash  string // hash over all materialized file hashes, ordered by path
	ManifestHash string // hash over the manifest's own serialized form (excluding this field)
	MerkleRoot   string `json:"merkle_root,omitempty"` // optional, for large projects
}

// ManifestFileEntry is one path's entry in a Manifest's file map.
type ManifestFileEntry struct {
	Action          ActionTaken
	SHA256          string
	Bytes           int64
	Timestamp       time.Time
	Dependencies    []string
	BlueprintOrigin string
}

// Manifest is the persisted project chronicle (scaffold.lock). It is
// created by the first rite, read before each subsequent rite to derive
// prior state, and rewritten atomically at the end of each successful
// rite; the previous version is archived under .scaffold/chronicles/.
type Manifest struct {
	Version     int
	Provenance  Provenance
	GnosisDelta map[string]string // variables changed since the last rite
	Edicts      ManifestEdicts
	Heresies    []string // heresy summaries recorded during the rite that produced this manifest
	Integrity   IntegritySeal
	Files       map[string]ManifestFileEntry // path -> entry
}

// ManifestEdicts records which Symphony edicts ran during a rite.
type ManifestEdicts struct {
	Executed []string
}

// NewManifest returns an empty manifest at version 1, ready for its first
// rite's entries.
func NewManifest() *Manifest {
	return &Manifest{
		Version:     1,
		GnosisDelta: make(map[string]string),
		Files:       make(map[string]ManifestFileEntry),
	}
}
