package staging

import (
	"context"
	"strings"
	"testing"

	"github.com/novalym/velm-sub003/internal/sanctum"
	"github.com/novalym/velm-sub003/internal/types"
)

func newTestManager() *Manager {
	project := sanctum.NewMemorySanctum("/proj")
	stagingRoot := sanctum.NewMemorySanctum("/proj/.scaffold/staging/tx1")
	return NewManager(project, stagingRoot, "tx1")
}

func TestStageDefineThenPromoteWritesProject(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	if err := m.Begin(ctx); err != nil {
		t.Fatal(err)
	}
	res, h := m.StageDefine(ctx, "a.txt", []byte("hello"), "")
	if h != nil {
		t.Fatal(h)
	}
	if res.ActionTaken != types.ActionCreated {
		t.Errorf("action = %v, want Created", res.ActionTaken)
	}
	if _, err := m.Promote(ctx); err != nil {
		t.Fatal(err)
	}
	got, err := m.Project.ReadFile(ctx, "a.txt")
	if err != nil || string(got) != "hello" {
		t.Fatalf("got=%q err=%v", got, err)
	}
}

func TestStageDefineOverExistingIsTransfigured(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	m.Begin(ctx)
	if err := m.Project.WriteFile(ctx, "a.txt", []byte("old"), ""); err != nil {
		t.Fatal(err)
	}
	res, h := m.StageDefine(ctx, "a.txt", []byte("new"), "")
	if h != nil {
		t.Fatal(h)
	}
	if res.ActionTaken != types.ActionTransfigured {
		t.Errorf("action = %v, want Transfigured", res.ActionTaken)
	}
}

func TestStageDefineByteIdenticalToExistingIsSkipped(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	m.Begin(ctx)
	if err := m.Project.WriteFile(ctx, "a.txt", []byte("same"), ""); err != nil {
		t.Fatal(err)
	}
	res, h := m.StageDefine(ctx, "a.txt", []byte("same"), "")
	if h != nil {
		t.Fatal(h)
	}
	if res.ActionTaken != types.ActionSkipped {
		t.Errorf("action = %v, want Skipped", res.ActionTaken)
	}
	if info, _ := m.Staging.Stat(ctx, "a.txt"); info.Exists {
		t.Error("a skipped write must not stage anything")
	}
	for _, p := range m.Touched() {
		if p == "a.txt" {
			t.Error("a skipped path must not appear in Touched, or Promote/Prophecy would try to read it from staging")
		}
	}
}

func TestStageMutationByteIdenticalResultIsSkipped(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	m.Begin(ctx)
	if err := m.Project.WriteFile(ctx, "log.txt", []byte("line one"), ""); err != nil {
		t.Fatal(err)
	}
	// Subtracting a string that isn't present leaves the content unchanged.
	res, h := m.StageMutation(ctx, "log.txt", types.Subtract, "not present", "", "")
	if h != nil {
		t.Fatal(h)
	}
	if res.ActionTaken != types.ActionSkipped {
		t.Errorf("action = %v, want Skipped", res.ActionTaken)
	}
}

func TestPromoteSkipsSkippedPathsAndLeavesProjectUntouched(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	m.Begin(ctx)
	if err := m.Project.WriteFile(ctx, "a.txt", []byte("same"), ""); err != nil {
		t.Fatal(err)
	}
	res, h := m.StageDefine(ctx, "a.txt", []byte("same"), "")
	if h != nil {
		t.Fatal(h)
	}
	if res.ActionTaken != types.ActionSkipped {
		t.Fatalf("action = %v, want Skipped", res.ActionTaken)
	}
	if _, err := m.Promote(ctx); err != nil {
		t.Fatalf("promote should be a no-op for a fully-skipped transaction: %v", err)
	}
	got, err := m.Project.ReadFile(ctx, "a.txt")
	if err != nil || string(got) != "same" {
		t.Fatalf("got=%q err=%v", got, err)
	}
}

func TestStageMutationAppendPlainText(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	m.Begin(ctx)
	m.Project.WriteFile(ctx, "log.txt", []byte("line one"), "")
	res, h := m.StageMutation(ctx, "log.txt", types.Append, "line two", "", "")
	if h != nil {
		t.Fatal(h)
	}
	got, _ := m.Staging.ReadFile(ctx, "log.txt")
	if string(got) != "line one\nline two" {
		t.Errorf("got %q", got)
	}
	_ = res
}

func TestStageMutationAppendStructuredJSONDeepMerges(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	m.Begin(ctx)
	m.Project.WriteFile(ctx, "pkg.json", []byte(`{"name":"x","deps":{"a":"1"}}`), "")
	_, h := m.StageMutation(ctx, "pkg.json", types.Append, `{"deps":{"b":"2"}}`, "", "")
	if h != nil {
		t.Fatal(h)
	}
	got, _ := m.Staging.ReadFile(ctx, "pkg.json")
	if !strings.Contains(string(got), `"a": "1"`) || !strings.Contains(string(got), `"b": "2"`) {
		t.Errorf("expected deep merge of both dep keys, got %s", got)
	}
}

func TestStageMutationAnchorMismatchIsFatal(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	m.Begin(ctx)
	m.Project.WriteFile(ctx, "f.txt", []byte("actual content"), "")
	_, h := m.StageMutation(ctx, "f.txt", types.Append, "more", "deadbeef", "")
	if h == nil {
		t.Fatal("expected an anchor mismatch heresy")
	}
}

func TestStageMutationSubtractLiteral(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	m.Begin(ctx)
	m.Project.WriteFile(ctx, "f.txt", []byte("hello TODO world"), "")
	_, h := m.StageMutation(ctx, "f.txt", types.Subtract, "literal:TODO ", "", "")
	if h != nil {
		t.Fatal(h)
	}
	got, _ := m.Staging.ReadFile(ctx, "f.txt")
	if string(got) != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestStageMutationTransfigureSed(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	m.Begin(ctx)
	m.Project.WriteFile(ctx, "f.txt", []byte("version=1.0.0"), "")
	_, h := m.StageMutation(ctx, "f.txt", types.Transfigure, "s/1\\.0\\.0/2.0.0/", "", "")
	if h != nil {
		t.Fatal(h)
	}
	got, _ := m.Staging.ReadFile(ctx, "f.txt")
	if string(got) != "version=2.0.0" {
		t.Errorf("got %q", got)
	}
}

func TestPromoteDirectory(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	m.Begin(ctx)
	if _, h := m.StageDir(ctx, "src/pkg"); h != nil {
		t.Fatal(h)
	}
	if _, err := m.Promote(ctx); err != nil {
		t.Fatal(err)
	}
	info, err := m.Project.Stat(ctx, "src/pkg")
	if err != nil || !info.Exists || !info.IsDir {
		t.Fatalf("info=%+v err=%v", info, err)
	}
}

func TestDiscardRemovesStagingLeavesProjectUntouched(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	m.Begin(ctx)
	m.StageDefine(ctx, "a.txt", []byte("x"), "")
	if err := m.Discard(ctx); err != nil {
		t.Fatal(err)
	}
	if info, _ := m.Project.Stat(ctx, "a.txt"); info.Exists {
		t.Error("expected project root untouched by a discarded transaction")
	}
}

func TestProphecyReportsCreatedAndModified(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()
	m.Begin(ctx)
	m.Project.WriteFile(ctx, "existing.txt", []byte("old content"), "")
	m.StageDefine(ctx, "new.txt", []byte("brand new"), "")
	m.StageDefine(ctx, "existing.txt", []byte("changed content"), "")

	entries, err := m.Prophecy(ctx)
	if err != nil {
		t.Fatal(err)
	}
	byPath := map[string]ProphecyEntry{}
	for _, e := range entries {
		byPath[e.Path] = e
	}
	if byPath["new.txt"].Status != ProphecyCreated {
		t.Errorf("new.txt status = %v, want Created", byPath["new.txt"].Status)
	}
	if byPath["existing.txt"].Status != ProphecyModified {
		t.Errorf("existing.txt status = %v, want Modified", byPath["existing.txt"].Status)
	}
	if byPath["existing.txt"].Diff == "" {
		t.Error("expected non-empty diff text for a small modified file")
	}
}

func TestIsKnownBinaryAndStructured(t *testing.T) {
	if !IsKnownBinary("logo.PNG") {
		t.Error("expected .PNG to be recognized as binary case-insensitively")
	}
	if IsKnownBinary("main.go") {
		t.Error("main.go should not be binary")
	}
	if !IsStructured("config.yaml") {
		t.Error("expected .yaml to be structured")
	}
	if IsStructured("README.md") {
		t.Error("README.md should not be structured")
	}
}
