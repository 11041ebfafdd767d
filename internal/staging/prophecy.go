package staging

import (
	"context"
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ProphecyStatus classifies one path's change for a dry-run rite.
type ProphecyStatus string

const (
	ProphecyCreated  ProphecyStatus = "Created"
	ProphecyModified ProphecyStatus = "Modified"
	ProphecyDeleted  ProphecyStatus = "Deleted"
)

// ProphecyEntry describes one path's predicted change, as produced by a
// dry-run rite once Stage and Validate have run against a MemorySanctum.
type ProphecyEntry struct {
	Path    string
	Status  ProphecyStatus
	Diff    string // human-readable diff text, when small enough to show
	Summary string // size-only summary, used for a Created path and above largeDiffThreshold
}

// largeDiffThreshold bounds how big a staged file can be before Prophecy
// reports only a byte-count summary instead of a full diff body.
const largeDiffThreshold = 64 * 1024

var dmp = diffmatchpatch.New()

// Prophecy computes a diff entry for every path this Manager staged,
// comparing staging content against the corresponding project-root content
// (absent entirely for a Created path). Staging is left untouched; the
// caller discards it after reading the result.
func (m *Manager) Prophecy(ctx context.Context) ([]ProphecyEntry, error) {
	entries := make([]ProphecyEntry, 0, len(m.touched))
	for _, path := range m.touched {
		if m.dirs[path] {
			continue
		}
		entry, err := m.prophesyOne(ctx, path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (m *Manager) prophesyOne(ctx context.Context, path string) (ProphecyEntry, error) {
	newData, err := m.Staging.ReadFile(ctx, path)
	if err != nil {
		return ProphecyEntry{}, fmt.Errorf("prophecy read staged %s: %w", path, err)
	}
	info, err := m.Project.Stat(ctx, path)
	if err != nil {
		return ProphecyEntry{}, fmt.Errorf("prophecy stat project %s: %w", path, err)
	}
	if !info.Exists {
		return ProphecyEntry{Path: path, Status: ProphecyCreated, Summary: fmt.Sprintf("%d bytes", len(newData))}, nil
	}
	oldData, err := m.Project.ReadFile(ctx, path)
	if err != nil {
		return ProphecyEntry{}, fmt.Errorf("prophecy read project %s: %w", path, err)
	}
	if len(oldData) > largeDiffThreshold || len(newData) > largeDiffThreshold {
		return ProphecyEntry{
			Path:    path,
			Status:  ProphecyModified,
			Summary: fmt.Sprintf("%d bytes -> %d bytes", len(oldData), len(newData)),
		}, nil
	}
	a, b, lineArray := dmp.DiffLinesToChars(string(oldData), string(newData))
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return ProphecyEntry{Path: path, Status: ProphecyModified, Diff: dmp.DiffPrettyText(diffs)}, nil
}
