package gnosis

import (
	"errors"
	"testing"

	"github.com/novalym/velm-sub003/internal/heresy"
	"github.com/novalym/velm-sub003/internal/types"
)

func plan(items ...*types.BlueprintItem) *types.OrderedPlan {
	return &types.OrderedPlan{Items: items, Dossier: types.NewVariableDossier()}
}

func TestFindBoundLocatesOnHeresyAtSameIndent(t *testing.T) {
	p := plan(
		&types.BlueprintItem{Kind: types.KindPostRun, OriginalIndent: 0},
		&types.BlueprintItem{Kind: types.KindOnHeresy, OriginalIndent: 0, Content: "echo healed"},
	)
	bound, ok := FindBound(p, 0)
	if !ok || bound.Content != "echo healed" {
		t.Fatalf("bound=%+v ok=%v", bound, ok)
	}
}

func TestFindBoundNoneWhenNextIsUnrelated(t *testing.T) {
	p := plan(
		&types.BlueprintItem{Kind: types.KindPostRun, OriginalIndent: 0},
		&types.BlueprintItem{Kind: types.KindForm, OriginalIndent: 0, Path: "a.txt"},
	)
	_, ok := FindBound(p, 0)
	if ok {
		t.Fatal("expected no bound redemption rite")
	}
}

func TestAttemptHealedOutcome(t *testing.T) {
	p := plan(
		&types.BlueprintItem{Kind: types.KindPostRun, OriginalIndent: 0},
		&types.BlueprintItem{Kind: types.KindOnHeresy, OriginalIndent: 0, Content: "echo fixed"},
	)
	cause := heresy.New(heresy.KindShellStrikeFracture, "", 0, 0, "npm install exited 1")
	out := Attempt(p, 0, cause, func(body string) (string, error) {
		return "fixed\n", nil
	})
	if !out.Bound || !out.Fired || !out.Healed {
		t.Fatalf("out=%+v", out)
	}
}

func TestAttemptStillFailingOutcome(t *testing.T) {
	p := plan(
		&types.BlueprintItem{Kind: types.KindPostRun, OriginalIndent: 0},
		&types.BlueprintItem{Kind: types.KindOnHeresy, OriginalIndent: 0, Content: "exit 1"},
	)
	cause := heresy.New(heresy.KindShellStrikeFracture, "", 0, 0, "build failed")
	out := Attempt(p, 0, cause, func(body string) (string, error) {
		return "", errors.New("still broken")
	})
	if !out.Bound || !out.Fired || out.Healed {
		t.Fatalf("out=%+v", out)
	}
}

func TestAttemptUnboundOutcome(t *testing.T) {
	p := plan(&types.BlueprintItem{Kind: types.KindPostRun, OriginalIndent: 0})
	cause := heresy.New(heresy.KindShellStrikeFracture, "", 0, 0, "build failed")
	out := Attempt(p, 0, cause, nil)
	if out.Bound {
		t.Fatal("expected unbound outcome")
	}
	if out.Summary() == "" {
		t.Fatal("expected a non-empty summary")
	}
}
