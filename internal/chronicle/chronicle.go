// Package chronicle federates a transaction's results into the persisted
// project manifest (scaffold.lock): it folds in new and overwritten paths,
// drops deleted ones, classifies renamed paths via internal/translocate,
// reseals the manifest's integrity hashes, and rewrites scaffold.lock
// atomically (temp file + rename) while archiving the previous version
// under .scaffold/chronicles/.
package chronicle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/novalym/velm-sub003/internal/integrity"
	"github.com/novalym/velm-sub003/internal/translocate"
	"github.com/novalym/velm-sub003/internal/types"
)

// Scribe federates manifests for one project Sanctum.
type Scribe struct {
	project      types.Sanctum
	manifestPath string
	archiver     *Archiver
}

// New returns a Scribe that reads/writes manifestPath (typically
// "scaffold.lock") within project, archiving superseded versions through
// archiver. A nil archiver disables archiving (used by dry-run callers
// that never reach Federate).
func New(project types.Sanctum, manifestPath string, archiver *Archiver) *Scribe {
	return &Scribe{project: project, manifestPath: manifestPath, archiver: archiver}
}

// Load reads and parses the current manifest, returning a fresh
// types.NewManifest() if none exists yet.
func (s *Scribe) Load(ctx context.Context) (*types.Manifest, error) {
	exists, err := sanctumHas(ctx, s.project, s.manifestPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return types.NewManifest(), nil
	}
	data, err := s.project.ReadFile(ctx, s.manifestPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.manifestPath, err)
	}
	var m types.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.manifestPath, err)
	}
	return &m, nil
}

// Federate folds a transaction's WriteResults into prior, classifying
// renamed paths by content-hash equality (internal/translocate), dropping
// deleted paths, and inserting/overwriting the rest. rite names the
// blueprint that produced results, for Manifest.Edicts bookkeeping.
func Federate(prior *types.Manifest, results []*types.WriteResult, rite string, provenance types.Provenance) *types.Manifest {
	next := &types.Manifest{
		Version:     prior.Version + 1,
		Provenance:  provenance,
		GnosisDelta: prior.GnosisDelta,
		Edicts:      types.ManifestEdicts{Executed: append(append([]string{}, prior.Edicts.Executed...), rite)},
		Files:       make(map[string]types.ManifestFileEntry, len(prior.Files)),
	}
	if next.GnosisDelta == nil {
		next.GnosisDelta = make(map[string]string)
	}
	for path, entry := range prior.Files {
		next.Files[path] = entry
	}

	after := make(map[string]string, len(results))
	for _, r := range results {
		if r.ActionTaken == types.ActionDeleted {
			continue
		}
		after[r.Path] = r.GnosticFingerprint
	}
	report := translocate.Detect(prior.Files, after)

	for _, move := range report.Moved {
		entry := next.Files[move.From]
		delete(next.Files, move.From)
		entry.Action = types.ActionTranslocated
		entry.SHA256 = move.SHA256
		next.Files[move.To] = entry
	}

	for _, r := range results {
		if r.ActionTaken == types.ActionDeleted {
			delete(next.Files, r.Path)
			continue
		}
		if isMoveTarget(r.Path, report) {
			continue // already folded in above, with its prior dependencies/metrics preserved
		}
		entry := next.Files[r.Path] // zero value if new
		entry.Action = r.ActionTaken
		entry.SHA256 = r.GnosticFingerprint
		entry.Bytes = r.BytesWritten
		entry.Timestamp = provenance.Timestamp
		if len(r.Dependencies) > 0 {
			entry.Dependencies = r.Dependencies
		}
		next.Files[r.Path] = entry
	}

	return next
}

func isMoveTarget(path string, report translocate.Report) bool {
	for _, m := range report.Moved {
		if m.To == path {
			return true
		}
	}
	return false
}

// Commit seals next's integrity hashes, archives the prior manifest (if an
// archiver is configured and prior has any files), and writes next to
// manifestPath atomically via a temp file + rename.
func (s *Scribe) Commit(ctx context.Context, prior, next *types.Manifest, txID string) error {
	seal, err := integrity.ComputeSeal(next)
	if err != nil {
		return fmt.Errorf("sealing manifest: %w", err)
	}
	next.Integrity = seal

	if s.archiver != nil && len(prior.Files) > 0 {
		if err := s.archiver.Archive(ctx, prior, latestEdict(next.Edicts), txID); err != nil {
			return fmt.Errorf("archiving prior manifest: %w", err)
		}
	}

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	tmpPath := s.manifestPath + ".tmp-" + uuid.NewString()
	if err := s.project.WriteFile(ctx, tmpPath, data, ""); err != nil {
		return fmt.Errorf("writing temp manifest: %w", err)
	}
	if err := s.project.Rename(ctx, tmpPath, s.manifestPath); err != nil {
		_ = s.project.Remove(ctx, tmpPath)
		return fmt.Errorf("renaming temp manifest into place: %w", err)
	}
	return nil
}

func latestEdict(e types.ManifestEdicts) string {
	if len(e.Executed) == 0 {
		return ""
	}
	return e.Executed[len(e.Executed)-1]
}

func sanctumHas(ctx context.Context, s types.Sanctum, path string) (bool, error) {
	info, err := s.Stat(ctx, path)
	if err != nil {
		return false, err
	}
	return info.Exists, nil
}
