package symphony

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/novalym/velm-sub003/internal/heresy"
	"github.com/novalym/velm-sub003/internal/sanctum"
)

func stubRunner(results ...CommandResult) (CommandRunner, *int) {
	calls := 0
	return func(ctx context.Context, dir string, env []string, command string, timeout time.Duration) CommandResult {
		idx := calls
		if idx >= len(results) {
			idx = len(results) - 1
		}
		calls++
		r := results[idx]
		r.Command = command
		return r
	}, &calls
}

func TestRunActionSuccess(t *testing.T) {
	c := NewConductor("/work", nil)
	runner, calls := stubRunner(CommandResult{Stdout: "hi", ExitCode: 0})
	c.Runner = runner

	result, h := c.Run(context.Background(), ">> echo hi")
	require.Nil(t, h)
	require.Equal(t, 1, *calls)
	require.Len(t, result.Actions, 1)
	require.Equal(t, "hi", result.Actions[0].Stdout)
}

func TestRunActionCapturesOutputIntoVar(t *testing.T) {
	c := NewConductor("/work", nil)
	c.Runner, _ = stubRunner(CommandResult{Stdout: "captured", ExitCode: 0})

	_, h := c.Run(context.Background(), ">> echo captured as out")
	require.Nil(t, h)
	require.Equal(t, "captured", c.Vars["out"])
}

func TestRunActionRetriesThenSucceeds(t *testing.T) {
	c := NewConductor("/work", nil)
	runner, calls := stubRunner(
		CommandResult{ExitCode: 1},
		CommandResult{ExitCode: 1},
		CommandResult{Stdout: "ok", ExitCode: 0},
	)
	c.Runner = runner

	_, h := c.Run(context.Background(), ">> flaky retry(3, backoff=linear, interval=0)")
	require.Nil(t, h)
	require.Equal(t, 3, *calls)
}

func TestRunActionRetryExhaustedIsFatal(t *testing.T) {
	c := NewConductor("/work", nil)
	runner, calls := stubRunner(CommandResult{ExitCode: 1})
	c.Runner = runner

	_, h := c.Run(context.Background(), ">> always-fails retry(2, interval=0)")
	require.NotNil(t, h)
	require.Equal(t, heresy.KindShellStrikeFracture, h.Kind)
	require.Equal(t, 2, *calls)
}

func TestParseActionSuffixOrderAndStrip(t *testing.T) {
	edict := parseAction(">> build the thing as result using json retry(4, backoff=exponential, interval=2) timeout(30)")
	require.Equal(t, "build the thing", edict.Command)
	require.Equal(t, "result", edict.CaptureVar)
	require.Equal(t, "json", edict.Strategy)
	require.Equal(t, 4, edict.Retry.Attempts)
	require.Equal(t, "exponential", edict.Retry.Backoff)
	require.Equal(t, 2*time.Second, edict.Retry.Interval)
	require.Equal(t, 30*time.Second, edict.Timeout)
}

func TestBackoffDelayLinearAndExponential(t *testing.T) {
	linear := RetryPolicy{Backoff: "linear", Interval: time.Second}
	require.Equal(t, time.Second, backoffDelay(linear, 0))
	require.Equal(t, 2*time.Second, backoffDelay(linear, 1))

	exp := RetryPolicy{Backoff: "exponential", Interval: time.Second}
	require.Equal(t, time.Second, backoffDelay(exp, 0))
	require.Equal(t, 2*time.Second, backoffDelay(exp, 1))
	require.Equal(t, 4*time.Second, backoffDelay(exp, 2))
}

func TestVowSucceedsPassesAfterSuccessfulAction(t *testing.T) {
	c := NewConductor("/work", nil)
	c.Runner, _ = stubRunner(CommandResult{ExitCode: 0})

	_, h := c.Run(context.Background(), ">> do a thing\n?? succeeds")
	require.Nil(t, h)
}

func TestVowSucceedsFailsAfterFailedAction(t *testing.T) {
	c := NewConductor("/work", nil)
	c.Runner, _ = stubRunner(CommandResult{ExitCode: 1})

	// The failed action itself ends the Run with a ShellStrikeFracture, so
	// the run fails before the succeeds vow line is evaluated.
	_, h := c.Run(context.Background(), ">> do a thing retry(1)\n?? succeeds")
	require.NotNil(t, h)
	require.Equal(t, heresy.KindShellStrikeFracture, h.Kind)
}

func TestVowStdoutContains(t *testing.T) {
	c := NewConductor("/work", nil)
	c.Runner, _ = stubRunner(CommandResult{Stdout: "build succeeded", ExitCode: 0})

	_, h := c.Run(context.Background(), ">> build\n?? stdout_contains: \"succeeded\"")
	require.Nil(t, h)

	c2 := NewConductor("/work", nil)
	c2.Runner, _ = stubRunner(CommandResult{Stdout: "build failed", ExitCode: 0})
	_, h2 := c2.Run(context.Background(), ">> build\n?? stdout_contains: \"succeeded\"")
	require.NotNil(t, h2)
}

func TestVowFileExists(t *testing.T) {
	ms := sanctum.NewMemorySanctum("/proj")
	require.NoError(t, ms.WriteFile(context.Background(), "out.txt", []byte("x"), ""))

	c := NewConductor("/proj", nil)
	c.Sanctum = ms

	_, h := c.Run(context.Background(), "?? file_exists: out.txt")
	require.Nil(t, h)

	_, h2 := c.Run(context.Background(), "?? file_exists: missing.txt")
	require.NotNil(t, h2)
}

func TestVowExitCode(t *testing.T) {
	c := NewConductor("/work", nil)
	c.Runner, _ = stubRunner(CommandResult{ExitCode: 0})

	_, h := c.Run(context.Background(), ">> flaky retry(1)\n?? exit_code: 1")
	require.NotNil(t, h)
	require.Equal(t, heresy.KindShellStrikeFracture, h.Kind)
}

func TestVowPortOpen(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)

	c := NewConductor("/work", nil)
	_, h := c.Run(context.Background(), "?? port_open: "+port)
	require.Nil(t, h)
}

func TestApplyStateLetAndSubstitution(t *testing.T) {
	c := NewConductor("/work", nil)
	_, h := c.Run(context.Background(), "%% let: name = fellowship\n%% proclaim: hello ${name}")
	require.Nil(t, h)
	require.Equal(t, "fellowship", c.Vars["name"])
	require.Equal(t, []string{"hello fellowship"}, c.proclaimed)
}

func TestApplyStateUnresolvedSubstitutionLeftVerbatim(t *testing.T) {
	c := NewConductor("/work", nil)
	_, h := c.Run(context.Background(), "%% proclaim: hello ${nope}")
	require.Nil(t, h)
	require.Equal(t, []string{"hello ${nope}"}, c.proclaimed)
}

func TestApplyStateEnv(t *testing.T) {
	c := NewConductor("/work", nil)
	_, h := c.Run(context.Background(), "%% env: STAGE=prod")
	require.Nil(t, h)
	require.Equal(t, "prod", c.Env["STAGE"])
}

func TestApplyStateFailAbortsRun(t *testing.T) {
	c := NewConductor("/work", nil)
	result, h := c.Run(context.Background(), "%% fail: the realm is lost\n%% proclaim: unreachable")
	require.NotNil(t, h)
	require.True(t, result.Failed)
	require.Equal(t, "the realm is lost", result.FailReason)
}

func TestApplyStateUnknownKeyIsFatal(t *testing.T) {
	c := NewConductor("/work", nil)
	_, h := c.Run(context.Background(), "%% nonsense: whatever")
	require.NotNil(t, h)
	require.Equal(t, heresy.KindUnknownState, h.Kind)
}

func TestApplyStateHoardWritesToCache(t *testing.T) {
	ms := sanctum.NewMemorySanctum("/proj")
	c := NewConductor("/proj", nil)
	c.Sanctum = ms

	_, h := c.Run(context.Background(), "%% hoard: token = abc123")
	require.Nil(t, h)

	data, err := ms.ReadFile(context.Background(), ".scaffold/cache/token")
	require.NoError(t, err)
	require.Equal(t, "abc123", string(data))
}

func TestApplyStateTunnelRecordsProclamationNotHeresy(t *testing.T) {
	c := NewConductor("/work", nil)
	_, h := c.Run(context.Background(), "%% tunnel: 8080:remote:80")
	require.Nil(t, h)
	require.Contains(t, c.proclaimed[0], "tunnel (unimplemented)")
}

func TestApplyStateKillIsNoOp(t *testing.T) {
	c := NewConductor("/work", nil)
	_, h := c.Run(context.Background(), "%% kill: some-process")
	require.Nil(t, h)
}

func TestApplyStateAskWithoutPrompterIsMetaHeresy(t *testing.T) {
	c := NewConductor("/work", nil)
	_, h := c.Run(context.Background(), "%% ask: name")
	require.NotNil(t, h)
	require.Equal(t, heresy.KindMeta, h.Kind)
}

type stubPrompter struct{ answer string }

func (p stubPrompter) Ask(ctx context.Context, plea Plea) (string, error) {
	return p.answer, nil
}

func TestApplyStateAskResolvesViaPrompter(t *testing.T) {
	c := NewConductor("/work", nil)
	c.Prompter = stubPrompter{answer: "velm"}

	_, h := c.Run(context.Background(), "%% ask: project_name")
	require.Nil(t, h)
	require.Equal(t, "velm", c.Vars["project_name"])
}

func TestApplyStateChooseSplitsChoices(t *testing.T) {
	var gotChoices []string
	c := NewConductor("/work", nil)
	c.Prompter = promptFunc(func(ctx context.Context, plea Plea) (string, error) {
		gotChoices = plea.Choices
		return plea.Choices[0], nil
	})

	_, h := c.Run(context.Background(), "%% choose: flavor = sweet, savory")
	require.Nil(t, h)
	require.Equal(t, []string{"sweet", "savory"}, gotChoices)
	require.Equal(t, "sweet", c.Vars["flavor"])
}

type promptFunc func(ctx context.Context, plea Plea) (string, error)

func (f promptFunc) Ask(ctx context.Context, plea Plea) (string, error) { return f(ctx, plea) }

func TestRunRejectsUnrecognizedLine(t *testing.T) {
	c := NewConductor("/work", nil)
	_, h := c.Run(context.Background(), "!! not a real edict")
	require.NotNil(t, h)
	require.Equal(t, heresy.KindParse, h.Kind)
}

func TestRunMixedBodyStopsAtFirstFailure(t *testing.T) {
	c := NewConductor("/work", nil)
	c.Runner, _ = stubRunner(CommandResult{Stdout: "built", ExitCode: 0})

	result, h := c.Run(context.Background(), "%% let: out = pending\n>> build\n?? stdout_contains: \"built\"\n>> deploy retry(1)")
	require.Nil(t, h)
	require.Len(t, result.Actions, 2)

	c2 := NewConductor("/work", nil)
	c2.Runner, _ = stubRunner(CommandResult{Stdout: "ok", ExitCode: 0}, CommandResult{ExitCode: 1})
	result2, h2 := c2.Run(context.Background(), ">> build\n>> deploy retry(1)\n>> never-runs")
	require.NotNil(t, h2)
	require.Len(t, result2.Actions, 2)
}

func TestSplitArgsHonorsQuotedCommas(t *testing.T) {
	args := splitArgs(`"hello, world", plain`)
	require.Equal(t, []string{"hello, world", "plain"}, args)
}

func TestNewExecutorAdaptsConductorToGnosisExecutor(t *testing.T) {
	c := NewConductor("/work", nil)
	c.Runner, _ = stubRunner(CommandResult{Stdout: "recovered", ExitCode: 0})

	exec := NewExecutor(c)
	output, err := exec(">> heal the realm")
	require.NoError(t, err)
	require.Contains(t, output, "recovered")
}

func TestNewExecutorPropagatesHeresyAsError(t *testing.T) {
	c := NewConductor("/work", nil)
	c.Runner, _ = stubRunner(CommandResult{ExitCode: 1})

	exec := NewExecutor(c)
	_, err := exec(">> still broken retry(1)")
	require.Error(t, err)
}
