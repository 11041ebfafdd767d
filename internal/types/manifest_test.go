package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewManifestDefaults(t *testing.T) {
	m := NewManifest()
	require.Equal(t, 1, m.Version)
	require.NotNil(t, m.GnosisDelta)
	require.NotNil(t, m.Files)
	require.Empty(t, m.Heresies)
}

func TestManifestFileEntryRoundTrip(t *testing.T) {
	m := NewManifest()
	m.Files["src/main.go"] = ManifestFileEntry{
		Action:    ActionCreated,
		SHA256:    "deadbeef",
		Bytes:     42,
		Timestamp: time.Unix(0, 0),
	}

	entry, ok := m.Files["src/main.go"]
	require.True(t, ok)
	require.Equal(t, ActionCreated, entry.Action)
	require.Equal(t, int64(42), entry.Bytes)
}
