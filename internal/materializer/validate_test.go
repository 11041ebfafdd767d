package materializer

import (
	"fmt"
	"testing"

	"go.uber.org/goleak"

	"github.com/novalym/velm-sub003/internal/types"
)

// TestMain verifies the Validate phase's errgroup-bounded worker pool
// leaves no goroutine running past the end of the package's tests, the
// same guard the teacher's root go.mod carries goleak for.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestValidateStagedRunsWithinWorkerLimitAndCollectsAllHeresies(t *testing.T) {
	project, stagingRoot := newFixture("tx-validate")

	const total = 24
	items := make([]*types.BlueprintItem, 0, total)
	for i := 0; i < total; i++ {
		path := fmt.Sprintf("file%d.json", i)
		content := `{"ok": true}`
		if i%3 == 0 {
			content = `{"broken":` // invalid JSON for every third file
		}
		items = append(items, formItem(path, content, types.Define))
	}

	result := run(t, Options{
		Project:     project,
		StagingRoot: stagingRoot,
		TxID:        "tx-validate",
		WorkerLimit: 4, // small pool, so pool-bound behavior is actually exercised
	}, items)

	wantInvalid := 0
	for i := 0; i < total; i++ {
		if i%3 == 0 {
			wantInvalid++
		}
	}
	if len(result.Heresies) != wantInvalid {
		t.Fatalf("got %d heresies, want %d", len(result.Heresies), wantInvalid)
	}
	if len(result.Results) != 0 {
		t.Fatalf("a failed Validate phase must not promote any file, got %d results", len(result.Results))
	}
}
