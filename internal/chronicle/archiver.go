package chronicle

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/novalym/velm-sub003/internal/types"
)

// zstdThreshold is the pre-compression size above which an archived
// manifest payload is zstd-compressed before being written into its zip
// entry, rather than relying on the zip format's own (weaker, flate-only)
// compression.
const zstdThreshold = 64 * 1024

// Archiver writes superseded manifest versions to
// .scaffold/chronicles/<ts>_<rite>_<txid>.zip before a Scribe overwrites
// scaffold.lock, so a project's full chronicle history survives every
// rite rather than only its current snapshot.
type Archiver struct {
	project types.Sanctum
	dir     string        // project-relative, typically ".scaffold/chronicles"
	clock   func() string // returns the archive filename's timestamp segment
}

// NewArchiver returns an Archiver writing into dir within project. clock
// supplies the filename's timestamp segment; callers stamp this
// themselves (Date.now()-equivalents are avoided inside this package so
// it stays deterministic under test).
func NewArchiver(project types.Sanctum, dir string, clock func() string) *Archiver {
	return &Archiver{project: project, dir: dir, clock: clock}
}

// Archive serializes manifest as manifest.json inside a new zip entry
// under a.dir, named "<ts>_<rite>_<txid>.zip". Entries whose encoded size
// exceeds zstdThreshold are zstd-compressed and stored (not deflated);
// smaller entries use the zip format's standard deflate.
func (a *Archiver) Archive(ctx context.Context, manifest *types.Manifest, rite, txID string) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding archived manifest: %w", err)
	}

	payload := data
	method := uint16(zip.Deflate)
	if len(data) > zstdThreshold {
		compressed, err := zstdCompress(data)
		if err != nil {
			return fmt.Errorf("zstd-compressing archived manifest: %w", err)
		}
		payload = compressed
		method = zip.Store
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	entryName := "manifest.json"
	if method == zip.Store {
		entryName = "manifest.json.zst"
	}
	entryWriter, err := w.CreateHeader(&zip.FileHeader{Name: entryName, Method: method})
	if err != nil {
		return fmt.Errorf("creating zip entry: %w", err)
	}
	if _, err := entryWriter.Write(payload); err != nil {
		return fmt.Errorf("writing zip entry: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing zip archive: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s.zip", a.clock(), safeSegment(rite), txID)
	return a.project.WriteFile(ctx, a.dir+"/"+name, buf.Bytes(), "")
}

func zstdCompress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// safeSegment strips characters a filename segment shouldn't carry, so an
// unusual rite name (a blueprint path with slashes) can't escape the
// chronicles directory.
func safeSegment(s string) string {
	if s == "" {
		return "unknown"
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
