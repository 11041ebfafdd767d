package materializer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/novalym/velm-sub003/internal/alchemist"
	"github.com/novalym/velm-sub003/internal/heresy"
	"github.com/novalym/velm-sub003/internal/ledger"
	"github.com/novalym/velm-sub003/internal/sanctum"
	"github.com/novalym/velm-sub003/internal/sentinel"
	"github.com/novalym/velm-sub003/internal/types"
	"github.com/novalym/velm-sub003/internal/validators"
)

func formItem(path, content string, op types.MutationOp) *types.BlueprintItem {
	return &types.BlueprintItem{Kind: types.KindForm, Path: path, Content: content, MutationOp: op}
}

func dirItem(path string) *types.BlueprintItem {
	return &types.BlueprintItem{Kind: types.KindForm, Path: path, IsDir: true}
}

func newFixture(txID string) (project, stagingRoot *sanctum.MemorySanctum) {
	return sanctum.NewMemorySanctum("/proj"), sanctum.NewMemorySanctum("/proj/.scaffold/staging/" + txID)
}

func run(t *testing.T, opts Options, items []*types.BlueprintItem) *Result {
	t.Helper()
	m := New(opts, sentinel.New("/proj"), ledger.New(), validators.NewRegistry())
	plan := &types.OrderedPlan{Items: items, Dossier: types.NewVariableDossier()}
	return m.Run(context.Background(), plan)
}

func TestRunCreatesFileOnPromote(t *testing.T) {
	project, stagingRoot := newFixture("tx1")
	result := run(t, Options{Project: project, StagingRoot: stagingRoot, TxID: "tx1"}, []*types.BlueprintItem{
		formItem("a.txt", "hello", types.Define),
	})
	if len(result.Heresies) != 0 {
		t.Fatalf("unexpected heresies: %v", result.Heresies)
	}
	got, err := project.ReadFile(context.Background(), "a.txt")
	if err != nil || string(got) != "hello" {
		t.Fatalf("got=%q err=%v", got, err)
	}
}

func TestRunTransmutesPathAndContent(t *testing.T) {
	project, stagingRoot := newFixture("tx1")
	opts := Options{
		Project: project, StagingRoot: stagingRoot, TxID: "tx1",
		Vars: alchemist.Context{"name": "widget"},
	}
	result := run(t, opts, []*types.BlueprintItem{
		formItem("{{ name }}.txt", "module {{ name }}", types.Define),
	})
	if len(result.Heresies) != 0 {
		t.Fatalf("unexpected heresies: %v", result.Heresies)
	}
	got, err := project.ReadFile(context.Background(), "widget.txt")
	if err != nil || string(got) != "module widget" {
		t.Fatalf("got=%q err=%v", got, err)
	}
}

func TestRunStagesDirectory(t *testing.T) {
	project, stagingRoot := newFixture("tx1")
	result := run(t, Options{Project: project, StagingRoot: stagingRoot, TxID: "tx1"}, []*types.BlueprintItem{
		dirItem("src/pkg"),
	})
	if len(result.Heresies) != 0 {
		t.Fatalf("unexpected heresies: %v", result.Heresies)
	}
	info, err := project.Stat(context.Background(), "src/pkg")
	if err != nil || !info.Exists || !info.IsDir {
		t.Fatalf("info=%+v err=%v", info, err)
	}
}

func TestRunAppendMutationOnExistingFile(t *testing.T) {
	project, stagingRoot := newFixture("tx1")
	project.WriteFile(context.Background(), "log.txt", []byte("line one"), "")
	result := run(t, Options{Project: project, StagingRoot: stagingRoot, TxID: "tx1"}, []*types.BlueprintItem{
		formItem("log.txt", "line two", types.Append),
	})
	if len(result.Heresies) != 0 {
		t.Fatalf("unexpected heresies: %v", result.Heresies)
	}
	got, _ := project.ReadFile(context.Background(), "log.txt")
	if string(got) != "line one\nline two" {
		t.Fatalf("got %q", got)
	}
}

func TestRunFatalHeresyDuringStageDiscardsStaging(t *testing.T) {
	project, stagingRoot := newFixture("tx1")
	result := run(t, Options{Project: project, StagingRoot: stagingRoot, TxID: "tx1"}, []*types.BlueprintItem{
		formItem("../escape.txt", "nope", types.Define),
	})
	if len(result.Heresies) == 0 {
		t.Fatal("expected a path heresy")
	}
	if info, _ := stagingRoot.Stat(context.Background(), ""); info.Exists {
		t.Error("expected staging tree removed after a fatal Stage heresy")
	}
	if info, _ := project.Stat(context.Background(), "escape.txt"); info.Exists {
		t.Error("project root must never see a path that failed Sentinel adjudication")
	}
}

func TestRunValidatorFailureAbortsBeforePromote(t *testing.T) {
	project, stagingRoot := newFixture("tx1")
	result := run(t, Options{Project: project, StagingRoot: stagingRoot, TxID: "tx1"}, []*types.BlueprintItem{
		formItem("bad.json", "{not valid", types.Define),
	})
	if len(result.Heresies) == 0 {
		t.Fatal("expected a syntax heresy from the JSON validator")
	}
	if info, _ := project.Stat(context.Background(), "bad.json"); info.Exists {
		t.Error("a validator failure must prevent promotion")
	}
}

func TestRunDryRunNeverTouchesProject(t *testing.T) {
	project, stagingRoot := newFixture("tx1")
	result := run(t, Options{Project: project, StagingRoot: stagingRoot, TxID: "tx1", DryRun: true}, []*types.BlueprintItem{
		formItem("a.txt", "hello", types.Define),
	})
	if len(result.Heresies) != 0 {
		t.Fatalf("unexpected heresies: %v", result.Heresies)
	}
	if len(result.Prophecy) != 1 || result.Prophecy[0].Path != "a.txt" {
		t.Fatalf("expected one prophecy entry for a.txt, got %+v", result.Prophecy)
	}
	if info, _ := project.Stat(context.Background(), "a.txt"); info.Exists {
		t.Error("dry-run must never write the project root")
	}
}

func TestRunConcurrentRiteHeresyWhenLockUnavailable(t *testing.T) {
	project, stagingRoot := newFixture("tx1")
	opts := Options{
		Project: project, StagingRoot: stagingRoot, TxID: "tx1",
		Locker: alwaysBusyLocker{}, LockTimeout: 10 * time.Millisecond,
	}
	result := run(t, opts, []*types.BlueprintItem{formItem("a.txt", "hello", types.Define)})
	if len(result.Heresies) != 1 || result.Heresies[0].Kind != heresy.KindConcurrentRite {
		t.Fatalf("expected a single ConcurrentRiteHeresy, got %v", result.Heresies)
	}
	if len(result.Results) != 0 {
		t.Error("expected no results when the lock could not be acquired")
	}
}

type alwaysBusyLocker struct{}

func (alwaysBusyLocker) TryLockContext(ctx context.Context, retryDelay time.Duration) (bool, error) {
	return false, nil
}
func (alwaysBusyLocker) Unlock() error { return nil }

// failingProjectSanctum wraps a MemorySanctum and fails every WriteFile,
// simulating a Promote-time failure (e.g. a disk-full project root) so the
// rollback path can be exercised.
type failingProjectSanctum struct {
	*sanctum.MemorySanctum
}

func (f failingProjectSanctum) WriteFile(ctx context.Context, path string, data []byte, perm string) error {
	return errors.New("simulated promote failure")
}

func TestRunPromoteFailureTriggersRollbackAndTaints(t *testing.T) {
	realProject := sanctum.NewMemorySanctum("/proj")
	project := failingProjectSanctum{realProject}
	_, stagingRoot := newFixture("tx1")

	result := run(t, Options{Project: project, StagingRoot: stagingRoot, TxID: "tx1"}, []*types.BlueprintItem{
		formItem("a.txt", "hello", types.Define),
	})
	if !result.Tainted {
		t.Error("expected the transaction to be marked Tainted after a promote failure")
	}
	if len(result.Heresies) == 0 {
		t.Fatal("expected at least the wrapped promote-failure heresy")
	}
}
