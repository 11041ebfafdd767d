package ledger

import (
	"context"
	"strconv"
	"strings"

	"github.com/novalym/velm-sub003/internal/gnosis"
	"github.com/novalym/velm-sub003/internal/heresy"
	"github.com/novalym/velm-sub003/internal/types"
)

// rmdirFileCountThreshold is the N above which an RmDir inverse is marked
// non-reversible instead of replaying a full tree snapshot.
const rmdirFileCountThreshold = 256

// inferredShellInverses maps a forward command's normalized prefix to a
// static best-effort undo, used only when no on-undo block was recorded
// at parse time for an ExecShell entry.
var inferredShellInverses = []struct {
	prefix  string
	inverse func(cmd string) string
}{
	{"npm install", func(string) string { return "rm -rf node_modules" }},
	{"mkdir ", func(cmd string) string { return "rmdir " + strings.TrimPrefix(cmd, "mkdir ") }},
}

func inferShellInverse(cmd string) (string, bool) {
	for _, rule := range inferredShellInverses {
		if strings.HasPrefix(cmd, rule.prefix) {
			return rule.inverse(cmd), true
		}
	}
	return "", false
}

// Reverse walks entries in reverse order, undoing each reversible one via
// s, and returns a meta-heresy for every step it could not undo. A failing
// step never aborts the walk: the Reverser is resilient by design, since
// by the time it runs the forward transaction has already failed and
// partial cleanup is better than none.
func Reverse(ctx context.Context, s types.Sanctum, entries []types.LedgerEntry, exec gnosis.Executor) []*heresy.Heresy {
	var heresies []*heresy.Heresy
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if !entry.Reversible || entry.Inverse == nil {
			continue
		}
		if h := reverseOne(ctx, s, entry, exec); h != nil {
			heresies = append(heresies, h)
		}
	}
	return heresies
}

func reverseOne(ctx context.Context, s types.Sanctum, entry types.LedgerEntry, exec gnosis.Executor) *heresy.Heresy {
	path := entry.ForwardState["path"]
	inv := entry.Inverse

	switch entry.Op {
	case types.OpWriteFile:
		if len(inv.SnapshotContent) == 0 && inv.Params["existed"] != "true" {
			if err := s.Remove(ctx, path); err != nil {
				return heresy.Wrap(err, "reversing write_file (delete) "+path)
			}
			return nil
		}
		if err := s.WriteFile(ctx, path, inv.SnapshotContent, inv.SnapshotMetadata["mode"]); err != nil {
			return heresy.Wrap(err, "reversing write_file (restore) "+path)
		}
		return nil

	case types.OpDeleteFile:
		if err := s.WriteFile(ctx, path, inv.SnapshotContent, inv.SnapshotMetadata["mode"]); err != nil {
			return heresy.Wrap(err, "reversing delete_file "+path)
		}
		return nil

	case types.OpMkDir:
		if inv.Params["recursive"] == "true" {
			if err := s.RemoveAll(ctx, path); err != nil {
				return heresy.Wrap(err, "reversing mkdir (recursive) "+path)
			}
			return nil
		}
		if err := s.Remove(ctx, path); err != nil {
			return heresy.Wrap(err, "reversing mkdir "+path+" (refused: not empty)")
		}
		return nil

	case types.OpRmDir:
		if n, err := strconv.Atoi(inv.Params["file_count"]); err == nil && n > rmdirFileCountThreshold {
			return heresy.New(heresy.KindMeta, path, 0, 0,
				"rmdir of %d files exceeds the %d-file reversibility threshold; not replayed", n, rmdirFileCountThreshold)
		}
		if err := s.MkdirAll(ctx, path); err != nil {
			return heresy.Wrap(err, "reversing rmdir "+path)
		}
		if err := s.WriteFile(ctx, path, inv.SnapshotContent, ""); err != nil && len(inv.SnapshotContent) > 0 {
			return heresy.Wrap(err, "reversing rmdir "+path)
		}
		return nil

	case types.OpChmod:
		priorMode := inv.Params["prior_mode"]
		data, err := s.ReadFile(ctx, path)
		if err != nil {
			return heresy.Wrap(err, "reversing chmod "+path)
		}
		if err := s.WriteFile(ctx, path, data, priorMode); err != nil {
			return heresy.Wrap(err, "reversing chmod "+path)
		}
		return nil

	case types.OpSymlink:
		if err := s.Remove(ctx, path); err != nil {
			return heresy.Wrap(err, "reversing symlink "+path)
		}
		return nil

	case types.OpExecShell:
		return reverseExecShell(entry, exec)

	default:
		return heresy.New(heresy.KindMeta, path, 0, 0, "no reverse handler for op %q", entry.Op)
	}
}

func reverseExecShell(entry types.LedgerEntry, exec gnosis.Executor) *heresy.Heresy {
	if exec == nil {
		return heresy.New(heresy.KindMeta, entry.ForwardState["path"], 0, 0, "exec_shell reversal requires an Executor")
	}
	if onUndo, ok := entry.Inverse.Params["on_undo"]; ok && strings.TrimSpace(onUndo) != "" {
		if _, err := exec(onUndo); err != nil {
			return heresy.Wrap(err, "on-undo block for "+entry.ForwardState["command"])
		}
		return nil
	}
	if inferred, ok := inferShellInverse(entry.ForwardState["command"]); ok {
		if _, err := exec(inferred); err != nil {
			return heresy.Wrap(err, "inferred inverse for "+entry.ForwardState["command"])
		}
		return nil
	}
	return heresy.New(heresy.KindMeta, entry.ForwardState["path"], 0, 0,
		"command %q has no on-undo block and no inferred inverse; marked non-reversible",
		entry.ForwardState["command"])
}
