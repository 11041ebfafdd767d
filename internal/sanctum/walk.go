package sanctum

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/novalym/velm-sub003/internal/types"
)

// WalkFiles lists every regular file already present under s, as
// root-relative, forward-slash paths. Used to seed the Path Sentinel's
// case-collision index with the project's existing tree before a rite
// adjudicates a single blueprint path, since types.Sanctum itself exposes
// no directory-listing method.
func WalkFiles(s types.Sanctum) ([]string, error) {
	switch root := s.(type) {
	case *LocalSanctum:
		return walkLocal(root.Root)
	case *MemorySanctum:
		return walkAfero(root.fs, root.Root)
	default:
		return nil, nil
	}
}

func walkLocal(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	return out, err
}

func walkAfero(fsys afero.Fs, root string) ([]string, error) {
	if exists, err := afero.DirExists(fsys, root); err != nil || !exists {
		return nil, err
	}
	var out []string
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	return out, err
}
