package sentinel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdjudicateNormalizesSeparators(t *testing.T) {
	s := New("/project")
	rel, h := s.Adjudicate("src\\main.go")
	require.Nil(t, h)
	require.Equal(t, "src/main.go", rel)
}

func TestAdjudicateRejectsTraversal(t *testing.T) {
	s := New("/project")
	_, h := s.Adjudicate("../etc/passwd")
	require.NotNil(t, h)
	require.Equal(t, "PathHeresy", h.Kind.String())
}

func TestAdjudicateRejectsForbiddenChar(t *testing.T) {
	s := New("/project")
	_, h := s.Adjudicate("weird<name>.txt")
	require.NotNil(t, h)
}

func TestAdjudicateRejectsReservedDevice(t *testing.T) {
	s := New("/project")
	_, h := s.Adjudicate("CON.txt")
	require.NotNil(t, h)
}

func TestAdjudicateRejectsDotGit(t *testing.T) {
	s := New("/project")
	_, h := s.Adjudicate(".git/config")
	require.NotNil(t, h)
}

func TestAdjudicateRejectsCaseCollision(t *testing.T) {
	s := New("/project")
	_, h := s.Adjudicate("README.md")
	require.Nil(t, h)
	_, h = s.Adjudicate("readme.md")
	require.NotNil(t, h)
}

func TestAdjudicateResetClearsCollisionIndex(t *testing.T) {
	s := New("/project")
	_, h := s.Adjudicate("README.md")
	require.Nil(t, h)
	s.Reset()
	_, h = s.Adjudicate("readme.md")
	require.Nil(t, h)
}

func TestSeedExistingCatchesCollisionWithPreExistingFile(t *testing.T) {
	s := New("/project")
	s.SeedExisting([]string{"docs/README.md"})
	_, h := s.Adjudicate("docs/readme.md")
	require.NotNil(t, h, "a new path differing only in case from a pre-existing file must collide")
}

func TestSeedExistingNeverOverridesAlreadyAdjudicatedPath(t *testing.T) {
	s := New("/project")
	rel, h := s.Adjudicate("README.md")
	require.Nil(t, h)
	require.Equal(t, "README.md", rel)

	// Seeding the same lowercase path under a different case must not
	// clobber the exact spelling Adjudicate already recorded.
	s.SeedExisting([]string{"readme.md"})
	_, h = s.Adjudicate("ReadMe.md")
	require.NotNil(t, h)
}

func TestVerifyFinalSetCatchesCaseCollision(t *testing.T) {
	s := New("/project")
	h := s.VerifyFinalSet([]string{"src/main.go", "src/Main.go"})
	require.NotNil(t, h)
	require.Equal(t, "PathHeresy", h.Kind.String())
}

func TestVerifyFinalSetAcceptsDisjointPaths(t *testing.T) {
	s := New("/project")
	h := s.VerifyFinalSet([]string{"src/main.go", "src/lib.go", "docs/README.md"})
	require.Nil(t, h)
}
