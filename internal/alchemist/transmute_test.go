package alchemist

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransmuteSimple(t *testing.T) {
	ctx := Context{"name": "widgets"}
	res, h := Transmute("Project: {{ name | upper }}", ctx, nil, nil)
	require.Nil(t, h)
	require.Equal(t, "Project: WIDGETS", res.Text)
}

func TestTransmuteDottedIdentifier(t *testing.T) {
	ctx := Context{"config": map[string]interface{}{"port": 8080}}
	res, h := Transmute("listen :{{ config.port }}", ctx, nil, nil)
	require.Nil(t, h)
	require.Equal(t, "listen :8080", res.Text)
}

func TestTransmuteMissingVariableFails(t *testing.T) {
	_, h := Transmute("{{ missing }}", Context{}, nil, nil)
	require.NotNil(t, h)
	require.Equal(t, "MissingGnosisHeresy", h.Kind.String())
}

func TestTransmuteDefaultFilterRescuesMissing(t *testing.T) {
	res, h := Transmute("{{ missing | default:\"fallback\" }}", Context{}, nil, nil)
	require.Nil(t, h)
	require.Equal(t, "fallback", res.Text)
}

func TestTransmuteFilterChainLeftToRight(t *testing.T) {
	ctx := Context{"title": "  My Project  "}
	res, h := Transmute("{{ title | trim | slug }}", ctx, nil, nil)
	require.Nil(t, h)
	require.Equal(t, "my-project", res.Text)
}

func TestTransmuteBase64MarksBinary(t *testing.T) {
	ctx := Context{"payload": "hello"}
	res, h := Transmute("{{ payload | base64 }}", ctx, nil, nil)
	require.Nil(t, h)
	require.True(t, res.IsBinary)
}

func TestTransmuteUnterminatedExpression(t *testing.T) {
	_, h := Transmute("hello {{ name", Context{"name": "x"}, nil, nil)
	require.NotNil(t, h)
	require.Equal(t, "ParseHeresy", h.Kind.String())
}

func TestDiscoverVariablesStaticScan(t *testing.T) {
	names, h := DiscoverVariables("{{ a }} and {{ b.c | upper }}")
	require.Nil(t, h)
	require.Contains(t, names, "a")
	require.Contains(t, names, "b.c")
}

func TestTransmuteContractViolation(t *testing.T) {
	// sentinel contract that always fails, proving SchemaViolationHeresy wiring
	checker := schemaFailChecker{}
	ctx := Context{"port": "abc"}
	_, h := Transmute("{{ port }}", ctx, map[string]string{"port": "int"}, checker)
	require.NotNil(t, h)
	require.Equal(t, "SchemaViolationHeresy", h.Kind.String())
}

type schemaFailChecker struct{}

func (schemaFailChecker) Check(contractType, value string) error {
	return &contractError{contractType, value}
}

type contractError struct {
	contractType, value string
}

func (e *contractError) Error() string {
	return e.contractType + ": " + e.value
}
