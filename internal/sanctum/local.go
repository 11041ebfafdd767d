// Package sanctum implements types.Sanctum, the boundary every external
// I/O operation passes through during a rite: LocalSanctum for real disk
// access and MemorySanctum (afero-backed) for dry-run/test use, so the
// staging manager and materializer never call os/io directly.
package sanctum

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/novalym/velm-sub003/internal/types"
)

// LocalSanctum is the production backend: plain os/io calls rooted at
// Root, the way a real filesystem-backed store would be, mirroring the
// teacher's Local-prefixed store implementations (internal/store's
// LocalStore family) in naming even though the underlying concern here is
// raw file I/O rather than a knowledge base.
type LocalSanctum struct {
	Root string
}

// NewLocalSanctum returns a LocalSanctum rooted at root. Callers are
// expected to have already run every path through internal/sentinel
// before it reaches here; LocalSanctum itself trusts its input.
func NewLocalSanctum(root string) *LocalSanctum {
	return &LocalSanctum{Root: root}
}

func (s *LocalSanctum) resolve(path string) string {
	if path == "" {
		return s.Root
	}
	return filepath.Join(s.Root, path)
}

func (s *LocalSanctum) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(s.resolve(path))
}

func (s *LocalSanctum) WriteFile(ctx context.Context, path string, data []byte, perm string) error {
	mode, err := parsePerm(perm)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.resolve(path)), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.resolve(path), data, mode)
}

func (s *LocalSanctum) MkdirAll(ctx context.Context, path string) error {
	return os.MkdirAll(s.resolve(path), 0o755)
}

func (s *LocalSanctum) Remove(ctx context.Context, path string) error {
	return os.Remove(s.resolve(path))
}

func (s *LocalSanctum) RemoveAll(ctx context.Context, path string) error {
	return os.RemoveAll(s.resolve(path))
}

func (s *LocalSanctum) Stat(ctx context.Context, path string) (types.SanctumInfo, error) {
	info, err := os.Stat(s.resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return types.SanctumInfo{Exists: false}, nil
		}
		return types.SanctumInfo{}, err
	}
	return infoFrom(info), nil
}

func (s *LocalSanctum) Rename(ctx context.Context, oldPath, newPath string) error {
	return os.Rename(s.resolve(oldPath), s.resolve(newPath))
}

func infoFrom(info fs.FileInfo) types.SanctumInfo {
	return types.SanctumInfo{
		Exists:  true,
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		Mode:    info.Mode().String(),
		ModTime: info.ModTime().Unix(),
	}
}

// namedPerms resolves a semantic permission name that reaches a Sanctum
// unconverted to an octal mode, right before the write syscall. The parser
// already turns these names (and "public", which this table lacks) into
// octal strings for blueprint forms via its own namedPermissions table.
var namedPerms = map[string]os.FileMode{
	"executable": 0o755,
	"secret":     0o600,
	"readonly":   0o444,
}

func parsePerm(perm string) (os.FileMode, error) {
	if perm == "" {
		return 0o644, nil
	}
	if mode, ok := namedPerms[perm]; ok {
		return mode, nil
	}
	n, err := strconv.ParseUint(perm, 8, 32)
	if err != nil {
		return 0, err
	}
	return os.FileMode(n), nil
}
