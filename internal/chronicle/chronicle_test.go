package chronicle

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/novalym/velm-sub003/internal/sanctum"
	"github.com/novalym/velm-sub003/internal/types"
)

// timeComparer lets cmp.Diff walk a types.Manifest even though time.Time
// carries unexported fields; two timestamps are equal iff time.Equal says
// so, matching how the rest of this package treats timestamps.
var timeComparer = cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })

func TestLoadReturnsFreshManifestWhenNoneExists(t *testing.T) {
	project := sanctum.NewMemorySanctum("/proj")
	s := New(project, "scaffold.lock", nil)

	m, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, m.Version)
	require.Empty(t, m.Files)
}

func TestLoadParsesExistingManifest(t *testing.T) {
	project := sanctum.NewMemorySanctum("/proj")
	prior := types.NewManifest()
	prior.Files["a.txt"] = types.ManifestFileEntry{SHA256: "aaa"}
	data, err := json.Marshal(prior)
	require.NoError(t, err)
	require.NoError(t, project.WriteFile(context.Background(), "scaffold.lock", data, ""))

	s := New(project, "scaffold.lock", nil)
	m, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "aaa", m.Files["a.txt"].SHA256)
}

func TestFederateInsertsNewPaths(t *testing.T) {
	prior := types.NewManifest()
	results := []*types.WriteResult{
		{Path: "a.txt", ActionTaken: types.ActionCreated, GnosticFingerprint: "aaa", BytesWritten: 5},
	}
	next := Federate(prior, results, "init.yaml", types.Provenance{Timestamp: time.Unix(0, 0)})

	require.Equal(t, 2, next.Version)
	require.Contains(t, next.Files, "a.txt")
	require.Equal(t, "aaa", next.Files["a.txt"].SHA256)
	require.Equal(t, types.ActionCreated, next.Files["a.txt"].Action)
}

func TestFederateDropsDeletedPaths(t *testing.T) {
	prior := types.NewManifest()
	prior.Files["gone.txt"] = types.ManifestFileEntry{SHA256: "zzz"}
	results := []*types.WriteResult{
		{Path: "gone.txt", ActionTaken: types.ActionDeleted},
	}
	next := Federate(prior, results, "prune.yaml", types.Provenance{})
	require.NotContains(t, next.Files, "gone.txt")
}

func TestFederateDetectsTranslocation(t *testing.T) {
	prior := types.NewManifest()
	prior.Files["old/path.go"] = types.ManifestFileEntry{
		SHA256:       "shared-hash",
		Dependencies: []string{"fmt"},
	}
	results := []*types.WriteResult{
		{Path: "new/path.go", ActionTaken: types.ActionCreated, GnosticFingerprint: "shared-hash"},
	}
	next := Federate(prior, results, "rename.yaml", types.Provenance{})

	require.NotContains(t, next.Files, "old/path.go")
	entry, ok := next.Files["new/path.go"]
	require.True(t, ok)
	require.Equal(t, types.ActionTranslocated, entry.Action)
	require.Equal(t, []string{"fmt"}, entry.Dependencies, "translocated entries keep the prior entry's metadata")
}

func TestFederateOverwritePreservesPriorDependenciesWhenNotRecomputed(t *testing.T) {
	prior := types.NewManifest()
	prior.Files["lib.go"] = types.ManifestFileEntry{SHA256: "old-hash", Dependencies: []string{"context"}}
	results := []*types.WriteResult{
		{Path: "lib.go", ActionTaken: types.ActionTransfigured, GnosticFingerprint: "new-hash"},
	}
	next := Federate(prior, results, "update.yaml", types.Provenance{})
	require.Equal(t, "new-hash", next.Files["lib.go"].SHA256)
	require.Equal(t, []string{"context"}, next.Files["lib.go"].Dependencies)
}

// TestFederateManifestFilesStructuralDiff checks Federate's produced
// ManifestFileEntry values field-by-field via go-cmp, so a future field
// added to ManifestFileEntry that Federate forgets to populate fails
// with a precise diff rather than a passing require.Equal on the one
// field a test happens to check.
func TestFederateManifestFilesStructuralDiff(t *testing.T) {
	prior := types.NewManifest()
	ts := time.Unix(1700000000, 0).UTC()
	results := []*types.WriteResult{
		{Path: "a.txt", ActionTaken: types.ActionCreated, GnosticFingerprint: "aaa", BytesWritten: 5},
	}
	next := Federate(prior, results, "init.yaml", types.Provenance{Timestamp: ts, Architect: "maintainer"})

	want := map[string]types.ManifestFileEntry{
		"a.txt": {Action: types.ActionCreated, SHA256: "aaa", Bytes: 5, Timestamp: ts},
	}
	if diff := cmp.Diff(want, next.Files, timeComparer); diff != "" {
		t.Fatalf("manifest files mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ts, next.Provenance.Timestamp, timeComparer); diff != "" {
		t.Fatalf("provenance timestamp mismatch: %s", diff)
	}
}

func TestCommitWritesAtomicallyAndSealsIntegrity(t *testing.T) {
	project := sanctum.NewMemorySanctum("/proj")
	s := New(project, "scaffold.lock", nil)
	prior := types.NewManifest()
	next := Federate(prior, []*types.WriteResult{
		{Path: "a.txt", ActionTaken: types.ActionCreated, GnosticFingerprint: "aaa"},
	}, "init.yaml", types.Provenance{})

	require.NoError(t, s.Commit(context.Background(), prior, next, "tx1"))

	data, err := project.ReadFile(context.Background(), "scaffold.lock")
	require.NoError(t, err)
	var persisted types.Manifest
	require.NoError(t, json.Unmarshal(data, &persisted))
	require.NotEmpty(t, persisted.Integrity.ContentHash)
	require.NotEmpty(t, persisted.Integrity.ManifestHash)

	info, _ := project.Stat(context.Background(), "scaffold.lock")
	require.True(t, info.Exists)
}

func TestCommitArchivesPriorManifestWhenItHadFiles(t *testing.T) {
	project := sanctum.NewMemorySanctum("/proj")
	archiver := NewArchiver(project, ".scaffold/chronicles", func() string { return "20260731" })
	s := New(project, "scaffold.lock", archiver)

	prior := types.NewManifest()
	prior.Files["a.txt"] = types.ManifestFileEntry{SHA256: "aaa"}
	next := Federate(prior, []*types.WriteResult{
		{Path: "b.txt", ActionTaken: types.ActionCreated, GnosticFingerprint: "bbb"},
	}, "add.yaml", types.Provenance{})

	require.NoError(t, s.Commit(context.Background(), prior, next, "tx2"))

	archived, err := project.ReadFile(context.Background(), ".scaffold/chronicles/20260731_add.yaml_tx2.zip")
	require.NoError(t, err)
	require.NotEmpty(t, archived)
}

func TestCommitSkipsArchivingAnEmptyPriorManifest(t *testing.T) {
	project := sanctum.NewMemorySanctum("/proj")
	archiver := NewArchiver(project, ".scaffold/chronicles", func() string { return "20260731" })
	s := New(project, "scaffold.lock", archiver)

	prior := types.NewManifest() // no Files: first-ever rite
	next := Federate(prior, []*types.WriteResult{
		{Path: "a.txt", ActionTaken: types.ActionCreated, GnosticFingerprint: "aaa"},
	}, "init.yaml", types.Provenance{})

	require.NoError(t, s.Commit(context.Background(), prior, next, "tx1"))

	info, _ := project.Stat(context.Background(), ".scaffold/chronicles")
	require.False(t, info.Exists, "a first rite has no prior manifest worth archiving")
}
