package types

import "context"

// Sanctum is the boundary every external I/O operation passes through
// during a rite: local disk by default, with an afero-backed memory backend
// selectable via configuration (s3 and ssh have no backend in this build).
// Keeping this interface in
// types lets the staging manager, materializer, and chronicle depend on it
// without importing the sanctum package's concrete backends.
type Sanctum interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte, perm string) error
	MkdirAll(ctx context.Context, path string) error
	Remove(ctx context.Context, path string) error
	RemoveAll(ctx context.Context, path string) error
	Stat(ctx context.Context, path string) (SanctumInfo, error)
	Rename(ctx context.Context, oldPath, newPath string) error
}

// SanctumInfo is the subset of file metadata the pipeline needs, decoupled
// from os.FileInfo so in-memory and remote backends can satisfy it too.
type SanctumInfo struct {
	Exists  bool
	IsDir   bool
	Size    int64
	Mode    string
	ModTime int64
}

// Validator checks a single staged file's content before it is promoted,
// returning a Heresy-compatible error (via the heresy package) on failure.
// Built-in validators cover .py (tree-sitter parse), .json, and .yaml/.yml.
type Validator interface {
	// Extensions lists the file extensions this validator applies to,
	// e.g. []string{".py"}.
	Extensions() []string
	Validate(ctx context.Context, path string, content []byte) error
}
