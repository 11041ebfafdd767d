package sanctum

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/novalym/velm-sub003/internal/types"
)

// MemorySanctum backs a dry-run Prophecy or a test fixture with an
// in-memory filesystem: nothing it does ever touches the real disk. Used
// whenever RiteConfig.Sanctum selects "memory", and by every package test
// that exercises staging without a temp directory.
type MemorySanctum struct {
	fs   afero.Fs
	Root string
}

// NewMemorySanctum returns a MemorySanctum rooted at root within its own
// private afero.MemMapFs.
func NewMemorySanctum(root string) *MemorySanctum {
	return &MemorySanctum{fs: afero.NewMemMapFs(), Root: root}
}

func (s *MemorySanctum) resolve(path string) string {
	if path == "" {
		return s.Root
	}
	return filepath.Join(s.Root, path)
}

func (s *MemorySanctum) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return afero.ReadFile(s.fs, s.resolve(path))
}

func (s *MemorySanctum) WriteFile(ctx context.Context, path string, data []byte, perm string) error {
	mode, err := parsePerm(perm)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.resolve(path)), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(s.fs, s.resolve(path), data, mode)
}

func (s *MemorySanctum) MkdirAll(ctx context.Context, path string) error {
	return s.fs.MkdirAll(s.resolve(path), 0o755)
}

func (s *MemorySanctum) Remove(ctx context.Context, path string) error {
	return s.fs.Remove(s.resolve(path))
}

func (s *MemorySanctum) RemoveAll(ctx context.Context, path string) error {
	return s.fs.RemoveAll(s.resolve(path))
}

func (s *MemorySanctum) Stat(ctx context.Context, path string) (types.SanctumInfo, error) {
	info, err := s.fs.Stat(s.resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return types.SanctumInfo{Exists: false}, nil
		}
		return types.SanctumInfo{}, err
	}
	return infoFrom(info), nil
}

func (s *MemorySanctum) Rename(ctx context.Context, oldPath, newPath string) error {
	return s.fs.Rename(s.resolve(oldPath), s.resolve(newPath))
}
