package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderedPlanFormsAndEdicts(t *testing.T) {
	plan := &OrderedPlan{
		Items: []*BlueprintItem{
			{Path: "README.md", Kind: KindForm},
			{Path: "$$name", Kind: KindVariable},
			{Path: "EDICT:git init", Kind: KindEdict},
			{Path: "src/", Kind: KindForm, IsDir: true},
			{Path: "EDICT:go mod tidy", Kind: KindEdict},
		},
	}

	forms := plan.Forms()
	require.Len(t, forms, 2)
	require.Equal(t, "README.md", forms[0].Path)
	require.Equal(t, "src/", forms[1].Path)

	edicts := plan.Edicts()
	require.Len(t, edicts, 2)
	require.Equal(t, "EDICT:git init", edicts[0].Path)
}

func TestOrderedPlanEmpty(t *testing.T) {
	plan := &OrderedPlan{}
	require.Empty(t, plan.Forms())
	require.Empty(t, plan.Edicts())
}
