package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMutationOp(t *testing.T) {
	cases := []struct {
		token string
		want  MutationOp
	}{
		{"", Define},
		{"::", Define},
		{"+=", Append},
		{"^=", Prepend},
		{"-=", Subtract},
		{"~=", Transfigure},
	}
	for _, c := range cases {
		op, err := ParseMutationOp(c.token)
		require.NoError(t, err)
		require.Equal(t, c.want, op)
	}

	_, err := ParseMutationOp("??")
	require.Error(t, err)
}

func TestMutationOpString(t *testing.T) {
	require.Equal(t, "::", Define.String())
	require.Equal(t, "+=", Append.String())
	require.Equal(t, "^=", Prepend.String())
	require.Equal(t, "-=", Subtract.String())
	require.Equal(t, "~=", Transfigure.String())
}

func TestBlueprintItemIsEmpty(t *testing.T) {
	require.True(t, (&BlueprintItem{}).IsEmpty())
	require.False(t, (&BlueprintItem{Content: "hi"}).IsEmpty())
	require.False(t, (&BlueprintItem{SeedPath: "seed.txt"}).IsEmpty())
	require.False(t, (&BlueprintItem{IsDir: true}).IsEmpty())
}

func TestVariableDossierMissing(t *testing.T) {
	d := NewVariableDossier()
	d.AddRequired("name")
	d.AddRequired("cwd")
	d.AddRequired("port")
	d.AddDefined("port")

	missing := d.Missing()
	require.ElementsMatch(t, []string{"name"}, missing)
}

func TestIsBuiltin(t *testing.T) {
	require.True(t, IsBuiltin("now"))
	require.True(t, IsBuiltin("year"))
	require.False(t, IsBuiltin("project_name"))
}
