package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/novalym/velm-sub003/internal/types"
)

func TestParseBareFormIsEmptyFile(t *testing.T) {
	out := New("root.bp", nil).Parse("README.md\n")
	require.Empty(t, out.Heresies)
	require.Len(t, out.Items, 1)
	require.Equal(t, types.KindForm, out.Items[0].Kind)
	require.Equal(t, "README.md", out.Items[0].Path)
	require.True(t, out.Items[0].IsEmpty())
}

func TestParseDirectoryForm(t *testing.T) {
	out := New("root.bp", nil).Parse("src/\n")
	require.Empty(t, out.Heresies)
	require.Len(t, out.Items, 1)
	require.True(t, out.Items[0].IsDir)
	require.Equal(t, "src", out.Items[0].Path)
}

func TestParseInlineLiteralForm(t *testing.T) {
	out := New("root.bp", nil).Parse(`main.go :: "package main"` + "\n")
	require.Empty(t, out.Heresies)
	require.Equal(t, "package main", out.Items[0].Content)
}

func TestParseIndentedBlockForm(t *testing.T) {
	text := "main.go:\n    package main\n    func main() {}\n"
	out := New("root.bp", nil).Parse(text)
	require.Empty(t, out.Heresies)
	require.Equal(t, "package main\nfunc main() {}", out.Items[0].Content)
}

func TestParseVariableInline(t *testing.T) {
	out := New("root.bp", nil).Parse("$$name = \"widget\"\n")
	require.Empty(t, out.Heresies)
	require.Equal(t, types.KindVariable, out.Items[0].Kind)
	_, defined := out.Dossier.Defined["name"]
	require.True(t, defined)
	require.Equal(t, `"widget"`, out.Dossier.Defaults["name"])
}

func TestParseVariableWithTypeSignature(t *testing.T) {
	out := New("root.bp", nil).Parse("$$port: int(min=1, max=65535) = 8080\n")
	require.Empty(t, out.Heresies)
	require.Equal(t, "int(min=1, max=65535)", out.Dossier.Contracts["port"])
}

func TestParseLogicGate(t *testing.T) {
	text := "@if use_docker\nDockerfile\n@endif\n"
	out := New("root.bp", nil).Parse(text)
	require.Empty(t, out.Heresies)
	require.Len(t, out.Items, 3)
	require.Equal(t, types.KindLogic, out.Items[0].Kind)
	require.Equal(t, "if", out.Items[0].LogicTag)
	require.Equal(t, "use_docker", out.Items[0].Content)
	require.Equal(t, "Dockerfile", out.Items[1].Path)
	require.Equal(t, "endif", out.Items[2].LogicTag)
}

func TestParseInlineIfForm(t *testing.T) {
	text := `@if debug -> .env :: "DEBUG=1"` + "\n"
	out := New("root.bp", nil).Parse(text)
	require.Empty(t, out.Heresies)
	require.Len(t, out.Items, 2)
	require.Equal(t, ".env", out.Items[1].Path)
	require.Equal(t, "DEBUG=1", out.Items[1].Content)
}

func TestParseUnknownDirectiveIsWarning(t *testing.T) {
	out := New("root.bp", nil).Parse("@bogus foo\n")
	require.Len(t, out.Heresies, 1)
}

func TestParseMixedTabsAndSpacesIsIndentationHeresy(t *testing.T) {
	out := New("root.bp", nil).Parse("main.go:\n \tbroken\n")
	require.NotEmpty(t, out.Heresies)
}

func TestParseIncludeSplicesItems(t *testing.T) {
	resolver := func(path string) (string, error) {
		return "shared.txt\n", nil
	}
	out := New("root.bp", resolver).Parse(`@include "lib.bp"` + "\n")
	require.Empty(t, out.Heresies)
	require.Len(t, out.Items, 1)
	require.Equal(t, "shared.txt", out.Items[0].Path)
	require.Equal(t, "lib.bp", out.Items[0].BlueprintOrigin)
}

func TestParseIncludeCycleIsFatal(t *testing.T) {
	var resolver Include
	resolver = func(path string) (string, error) {
		return `@include "` + path + `"` + "\n", nil
	}
	out := New("root.bp", resolver).Parse(`@include "self.bp"` + "\n")
	require.NotEmpty(t, out.Heresies)
	last := out.Heresies[len(out.Heresies)-1]
	require.True(t, last.IsFatal())
}

func TestParseMutationOperator(t *testing.T) {
	out := New("root.bp", nil).Parse("config.yaml += \"extra: true\"\n")
	require.Empty(t, out.Heresies)
	require.Equal(t, types.Append, out.Items[0].MutationOp)
	require.Equal(t, `"extra: true"`, out.Items[0].Content)
}

func TestParseAnchorHashAndPermission(t *testing.T) {
	out := New("root.bp", nil).Parse("deploy.sh @hash:abcd1234 %% executable\n")
	require.Empty(t, out.Heresies)
	item := out.Items[0]
	require.Equal(t, "abcd1234", item.AnchorHash)
	require.Equal(t, "755", item.Permissions)
}

func TestParseSymlinkForm(t *testing.T) {
	out := New("root.bp", nil).Parse("current -> releases/v1\n")
	require.Empty(t, out.Heresies)
	require.True(t, out.Items[0].IsSymlink)
	require.Equal(t, "releases/v1", out.Items[0].SymlinkTarget)
}

func TestParseSeedPathForm(t *testing.T) {
	out := New("root.bp", nil).Parse("logo.png << assets/logo.png\n")
	require.Empty(t, out.Heresies)
	require.Equal(t, "assets/logo.png", out.Items[0].SeedPath)
}
