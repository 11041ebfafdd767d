package heresy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNearestDirective(t *testing.T) {
	require.Equal(t, "if", NearestDirective("fi"))
	require.Equal(t, "include", NearestDirective("incldue"))
	require.Equal(t, "", NearestDirective(""))
}

func TestNearestStateKey(t *testing.T) {
	require.Equal(t, "sleep", NearestStateKey("slep"))
	require.Equal(t, "choose", NearestStateKey("chose"))
}
