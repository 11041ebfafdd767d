package integrity

import (
	"testing"

	"github.com/novalym/velm-sub003/internal/types"
)

func sampleFiles() map[string]types.ManifestFileEntry {
	return map[string]types.ManifestFileEntry{
		"b.txt": {SHA256: "bbb"},
		"a.txt": {SHA256: "aaa"},
	}
}

func TestComputeContentHashIsOrderIndependent(t *testing.T) {
	h1 := ComputeContentHash(sampleFiles())
	reordered := map[string]types.ManifestFileEntry{
		"a.txt": {SHA256: "aaa"},
		"b.txt": {SHA256: "bbb"},
	}
	h2 := ComputeContentHash(reordered)
	if h1 != h2 {
		t.Errorf("content hash depends on map order: %q != %q", h1, h2)
	}
}

func TestComputeContentHashChangesWithContent(t *testing.T) {
	h1 := ComputeContentHash(sampleFiles())
	files := sampleFiles()
	entry := files["a.txt"]
	entry.SHA256 = "changed"
	files["a.txt"] = entry
	h2 := ComputeContentHash(files)
	if h1 == h2 {
		t.Error("expected content hash to change when a file's hash changes")
	}
}

func TestComputeMerkleRootDeterministicAndSensitive(t *testing.T) {
	r1 := ComputeMerkleRoot(sampleFiles())
	r2 := ComputeMerkleRoot(sampleFiles())
	if r1 != r2 {
		t.Error("expected deterministic merkle root for identical input")
	}
	files := sampleFiles()
	files["c.txt"] = types.ManifestFileEntry{SHA256: "ccc"}
	r3 := ComputeMerkleRoot(files)
	if r1 == r3 {
		t.Error("expected merkle root to change when a file is added")
	}
}

func TestComputeMerkleRootEmptyIsStable(t *testing.T) {
	r1 := ComputeMerkleRoot(map[string]types.ManifestFileEntry{})
	r2 := ComputeMerkleRoot(map[string]types.ManifestFileEntry{})
	if r1 != r2 || r1 == "" {
		t.Errorf("expected a stable non-empty root for zero files, got %q and %q", r1, r2)
	}
}

func TestComputeManifestHashExcludesIntegrityField(t *testing.T) {
	m := types.NewManifest()
	m.Files["a.txt"] = types.ManifestFileEntry{SHA256: "aaa"}
	h1, err := ComputeManifestHash(m)
	if err != nil {
		t.Fatal(err)
	}
	m.Integrity = types.IntegritySeal{ManifestHash: "should not affect the next hash"}
	h2, err := ComputeManifestHash(m)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("expected ComputeManifestHash to be unaffected by m.Integrity's own contents")
	}
}

func TestComputeSealPopulatesAllThreeHashes(t *testing.T) {
	m := types.NewManifest()
	m.Files["a.txt"] = types.ManifestFileEntry{SHA256: "aaa"}
	seal, err := ComputeSeal(m)
	if err != nil {
		t.Fatal(err)
	}
	if seal.ContentHash == "" || seal.ManifestHash == "" || seal.MerkleRoot == "" {
		t.Errorf("expected all three hashes populated, got %+v", seal)
	}
}
