// Package staging implements the Transactional Materializer's Stage phase:
// a transient tree under .scaffold/staging/<tx_id> that mirrors the project
// root and absorbs every write a rite produces, so nothing becomes visible
// outside the transaction until Promote runs. Every filesystem touch routes
// through a types.Sanctum, so a dry-run rite can run the identical code path
// against an in-memory backend.
package staging

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/novalym/velm-sub003/internal/heresy"
	"github.com/novalym/velm-sub003/internal/sanctum"
	"github.com/novalym/velm-sub003/internal/types"
)

// pendingSymlink is an intended symlink recorded during Stage; actual
// creation happens at Promote, per the materializer's documented lifecycle.
type pendingSymlink struct {
	path   string
	target string
}

// Manager owns one transaction's staging tree. Project is the Sanctum
// rooted at the real project root; Staging is rooted at
// .scaffold/staging/<tx_id>. Both may be LocalSanctum or MemorySanctum,
// independently, so a dry-run rite can stage into memory while anchor-hash
// checks still read real project content, or vice versa for tests.
type Manager struct {
	Project types.Sanctum
	Staging types.Sanctum
	TxID    string

	touched  []string // staged paths, in stage order, for Promote/Prophecy
	dirs     map[string]bool
	symlinks []pendingSymlink
	seen     map[string]bool
}

// NewManager returns a Manager for transaction txID, staging into staging
// and promoting into project.
func NewManager(project, stagingRoot types.Sanctum, txID string) *Manager {
	return &Manager{
		Project: project,
		Staging: stagingRoot,
		TxID:    txID,
		dirs:    make(map[string]bool),
		seen:    make(map[string]bool),
	}
}

// Begin creates the staging root.
func (m *Manager) Begin(ctx context.Context) error {
	return m.Staging.MkdirAll(ctx, "")
}

func (m *Manager) markTouched(path string) {
	if !m.seen[path] {
		m.seen[path] = true
		m.touched = append(m.touched, path)
	}
}

// StageDir materializes a directory node into staging.
func (m *Manager) StageDir(ctx context.Context, path string) (*types.WriteResult, *heresy.Heresy) {
	if err := m.Staging.MkdirAll(ctx, path); err != nil {
		return nil, heresy.Wrap(err, "staging directory "+path)
	}
	m.dirs[path] = true
	m.markTouched(path)
	return &types.WriteResult{Path: path, Success: true, ActionTaken: types.ActionCreated}, nil
}

// StageSymlink records a symlink's intended target; it is created for real
// during Promote.
func (m *Manager) StageSymlink(path, target string) *types.WriteResult {
	m.symlinks = append(m.symlinks, pendingSymlink{path: path, target: target})
	m.markTouched(path)
	return &types.WriteResult{Path: path, Success: true, ActionTaken: types.ActionCreated}
}

// currentBase returns path's bytes as they stand right now: from staging if
// this transaction already staged a version, otherwise from the project
// root (nil, no error, if the project has no such file yet).
func (m *Manager) currentBase(ctx context.Context, path string) ([]byte, error) {
	if m.seen[path] {
		return m.Staging.ReadFile(ctx, path)
	}
	info, err := m.Project.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	if !info.Exists {
		return nil, nil
	}
	return m.Project.ReadFile(ctx, path)
}

func (m *Manager) verifyAnchor(path, anchorHash string, base []byte) *heresy.Heresy {
	if anchorHash == "" {
		return nil
	}
	sum := sha256.Sum256(base)
	got := hex.EncodeToString(sum[:])[:8]
	if got != anchorHash {
		return heresy.New(heresy.KindAnchorMismatch, path, 0, 0,
			"anchor hash %q does not match current content hash %q", anchorHash, got)
	}
	return nil
}

// StageSeed copies seed bytes into staging verbatim (for a binary seed
// file) or after transmutation the caller already applied (for a text
// seed); StageSeed itself never transmutes.
func (m *Manager) StageSeed(ctx context.Context, path string, data []byte, perm string) (*types.WriteResult, *heresy.Heresy) {
	return m.writeDefine(ctx, path, data, perm)
}

// StageDefine writes a Define-mutation (plain overwrite) Form item's
// already-rendered content into staging.
func (m *Manager) StageDefine(ctx context.Context, path string, content []byte, perm string) (*types.WriteResult, *heresy.Heresy) {
	return m.writeDefine(ctx, path, content, perm)
}

// writeDefine writes a plain-overwrite Form item's content into staging,
// unless it is byte-identical to the path's current content (staged
// already this transaction, or on the project root otherwise) — in which
// case it reports ActionSkipped and never touches staging at all, so a
// second rite against an unchanged blueprint leaves no Ledger entry for
// files it didn't actually change.
func (m *Manager) writeDefine(ctx context.Context, path string, data []byte, perm string) (*types.WriteResult, *heresy.Heresy) {
	exists, prior, err := m.PriorContent(ctx, path)
	if err != nil {
		return nil, heresy.Wrap(err, "reading current content for "+path)
	}
	if exists && bytes.Equal(prior, data) {
		// Nothing actually changes, so nothing is staged: Promote/Prophecy
		// only ever walk m.touched, and a path never added there is never
		// read back out of Staging (which was never written for it).
		return m.result(path, types.ActionSkipped, data), nil
	}
	if err := m.Staging.WriteFile(ctx, path, data, perm); err != nil {
		return nil, heresy.Wrap(err, "staging write "+path)
	}
	m.markTouched(path)
	action := types.ActionCreated
	if exists {
		action = types.ActionTransfigured
	}
	return m.result(path, action, data), nil
}

// StageMutation applies op to path's current base content (from staging if
// already touched this transaction, else from the project root) and writes
// the result into staging. For Append on a structured target
// (.json/.yaml/.yml/.toml), spec is deep-merged rather than concatenated.
func (m *Manager) StageMutation(ctx context.Context, path string, op types.MutationOp, spec, anchorHash, perm string) (*types.WriteResult, *heresy.Heresy) {
	base, err := m.currentBase(ctx, path)
	if err != nil {
		return nil, heresy.Wrap(err, "reading mutation base for "+path)
	}
	if h := m.verifyAnchor(path, anchorHash, base); h != nil {
		return nil, h
	}

	var out []byte
	var mutErr error
	switch op {
	case types.Append:
		if IsStructured(path) {
			out, mutErr = DeepMergeStructured(path, base, []byte(spec))
		} else {
			out = ApplyAppend(base, []byte(spec))
		}
	case types.Prepend:
		out = ApplyPrepend(base, []byte(spec))
	case types.Subtract:
		out, mutErr = ApplySubtract(base, spec)
	case types.Transfigure:
		out, mutErr = ApplyTransfigure(base, spec)
	default:
		return nil, heresy.New(heresy.KindParse, path, 0, 0, "StageMutation called with non-mutation op %v", op)
	}
	if mutErr != nil {
		return nil, heresy.New(heresy.KindParse, path, 0, 0, "%s", mutErr.Error())
	}

	if bytes.Equal(base, out) {
		return m.result(path, types.ActionSkipped, out), nil
	}

	if err := m.Staging.WriteFile(ctx, path, out, perm); err != nil {
		return nil, heresy.Wrap(err, "staging mutation write "+path)
	}
	m.markTouched(path)
	return m.result(path, types.ActionTransfigured, out), nil
}

func (m *Manager) result(path string, action types.ActionTaken, data []byte) *types.WriteResult {
	sum := sha256.Sum256(data)
	return &types.WriteResult{
		Path:               path,
		Success:            true,
		ActionTaken:        action,
		BytesWritten:       int64(len(data)),
		GnosticFingerprint: hex.EncodeToString(sum[:]),
	}
}

// Touched returns the staged paths in stage order.
func (m *Manager) Touched() []string {
	return append([]string(nil), m.touched...)
}

// IsDir reports whether path was staged as a directory, so a caller
// walking Touched() can skip it for file-only operations like validation.
func (m *Manager) IsDir(path string) bool {
	return m.dirs[path]
}

// PriorContent returns the content a mutation against path would observe
// right now: the already-staged bytes if this transaction has touched
// path before, otherwise the project root's current bytes. exists is
// false and data is nil when the project has no such file yet. Exposed so
// a caller (the Materializer) can snapshot the exact pre-operation state
// for an accurate Ledger Inverse.
func (m *Manager) PriorContent(ctx context.Context, path string) (exists bool, data []byte, err error) {
	if m.seen[path] {
		data, err = m.Staging.ReadFile(ctx, path)
		return err == nil, data, err
	}
	info, err := m.Project.Stat(ctx, path)
	if err != nil {
		return false, nil, err
	}
	if !info.Exists {
		return false, nil, nil
	}
	data, err = m.Project.ReadFile(ctx, path)
	return err == nil, data, err
}

// Promote moves every staged path into the project root. When both
// Project and Staging are LocalSanctum instances rooted on the same
// filesystem, it takes a true atomic-rename fast path; otherwise it falls
// back to read-write-remove, which is still race-free since the staging
// tree is exclusively owned by this transaction.
func (m *Manager) Promote(ctx context.Context) ([]*types.WriteResult, error) {
	var results []*types.WriteResult
	for _, path := range m.touched {
		if m.dirs[path] {
			if err := m.Project.MkdirAll(ctx, path); err != nil {
				return results, fmt.Errorf("promote mkdir %s: %w", path, err)
			}
			continue
		}
		if err := m.promoteOne(ctx, path); err != nil {
			return results, fmt.Errorf("promote %s: %w", path, err)
		}
	}
	for _, link := range m.symlinks {
		info, err := m.Project.Stat(ctx, link.path)
		if err == nil && info.Exists {
			_ = m.Project.Remove(ctx, link.path)
		}
		if err := m.promoteSymlink(link); err != nil {
			return results, fmt.Errorf("promote symlink %s: %w", link.path, err)
		}
	}
	return results, nil
}

// promoteSymlink creates link for real when the project root is a
// LocalSanctum; symlink creation is a real-filesystem concept types.Sanctum
// does not model, so a non-local project root (memory, dry-run) simply
// records the intent above without a filesystem effect.
func (m *Manager) promoteSymlink(link pendingSymlink) error {
	p, ok := m.Project.(*sanctum.LocalSanctum)
	if !ok {
		return nil
	}
	dest := filepath.Join(p.Root, link.path)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.Symlink(link.target, dest)
}

func (m *Manager) promoteOne(ctx context.Context, path string) error {
	if fromRoot, toRoot, ok := localRoots(m.Staging, m.Project); ok {
		dest := filepath.Join(toRoot, path)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		return os.Rename(filepath.Join(fromRoot, path), dest)
	}
	data, err := m.Staging.ReadFile(ctx, path)
	if err != nil {
		return err
	}
	if err := m.Project.WriteFile(ctx, path, data, ""); err != nil {
		return err
	}
	return m.Staging.Remove(ctx, path)
}

// localRoots returns the two Sanctums' roots when both are LocalSanctum, so
// promoteOne can take a real os.Rename instead of read-write-remove.
func localRoots(staging, project types.Sanctum) (fromRoot, toRoot string, ok bool) {
	s, ok1 := staging.(*sanctum.LocalSanctum)
	p, ok2 := project.(*sanctum.LocalSanctum)
	if !ok1 || !ok2 {
		return "", "", false
	}
	return s.Root, p.Root, true
}

// Discard removes the entire staging tree, leaving the project root
// untouched. Used on cancellation and on any Stage/Validate failure.
func (m *Manager) Discard(ctx context.Context) error {
	return m.Staging.RemoveAll(ctx, "")
}
