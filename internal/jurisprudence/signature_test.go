package jurisprudence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFieldSignatureKeywordArgs(t *testing.T) {
	typeName, constraints, isList, err := ParseFieldSignature(`str(min=3, max=10)`)
	require.NoError(t, err)
	require.Equal(t, "str", typeName)
	require.False(t, isList)
	require.Equal(t, 3, constraints["min"])
	require.Equal(t, 10, constraints["max"])
}

func TestParseFieldSignatureEnumPositional(t *testing.T) {
	typeName, constraints, _, err := ParseFieldSignature(`enum("a", "b", "c")`)
	require.NoError(t, err)
	require.Equal(t, "enum", typeName)
	require.Equal(t, []string{"a", "b", "c"}, constraints["options"])
}

func TestParseFieldSignatureList(t *testing.T) {
	typeName, _, isList, err := ParseFieldSignature("List[int]")
	require.NoError(t, err)
	require.Equal(t, "int", typeName)
	require.True(t, isList)
}

func TestParseFieldSignatureBare(t *testing.T) {
	typeName, constraints, isList, err := ParseFieldSignature("int")
	require.NoError(t, err)
	require.Equal(t, "int", typeName)
	require.False(t, isList)
	require.Empty(t, constraints)
}
