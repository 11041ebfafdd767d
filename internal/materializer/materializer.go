// Package materializer orchestrates the Transactional Materializer
// lifecycle: Begin (staging tree + advisory lock), Stage (each plan item
// resolved, transmuted, and written into staging with a Ledger entry),
// Validate (the staging tree's built-in validators), Promote (atomic move
// into the project root, with a best-effort Reverser rollback on
// failure), and Commit (ledger journal tail, staging teardown, lock
// release). Dry-run mode replaces Promote with a Prophecy diff and never
// touches the project root.
package materializer

import (
	"context"
	"runtime"
	"time"

	"github.com/novalym/velm-sub003/internal/alchemist"
	"github.com/novalym/velm-sub003/internal/gnosis"
	"github.com/novalym/velm-sub003/internal/heresy"
	"github.com/novalym/velm-sub003/internal/ledger"
	"github.com/novalym/velm-sub003/internal/sentinel"
	"github.com/novalym/velm-sub003/internal/staging"
	"github.com/novalym/velm-sub003/internal/types"
	"github.com/novalym/velm-sub003/internal/validators"
)

// Options configures a single transaction.
type Options struct {
	Project     types.Sanctum // the project root
	StagingRoot types.Sanctum // a fresh Sanctum rooted at .scaffold/staging/<TxID>
	TxID        string

	DryRun bool

	// Vars is the fully-resolved variable context the AST Weaver produced;
	// Stage transmutes every Form item's path/content/mutation-spec/symlink
	// target against it.
	Vars    alchemist.Context
	Dossier *types.VariableDossier
	Checker alchemist.ContractChecker

	// Exec runs an exec_shell Ledger entry's inverse during a Promote
	// rollback; nil disables exec_shell reversal (it is simply reported
	// non-reversible).
	Exec gnosis.Executor

	LockTimeout time.Duration // default 30s, per spec.md's Begin step
	WorkerLimit int           // Validate's bounded pool size; default min(32, cpu*4)
	Locker      Locker        // nil -> real flock at LockPath, or a no-op if LockPath is empty
	LockPath    string        // absolute path to the advisory lock file

	JournalPath string // project-relative path to append the ledger tail to; empty skips persistence
}

// Result is everything one transaction produced.
type Result struct {
	TxID     string
	Results  []*types.WriteResult
	Heresies []*heresy.Heresy
	Prophecy []staging.ProphecyEntry // populated only in dry-run mode
	Tainted  bool                    // a Promote failure left residual dirty state after rollback
}

// Materializer runs one transaction against a resolved OrderedPlan.
type Materializer struct {
	opts       Options
	staging    *staging.Manager
	sentinel   *sentinel.Sentinel
	ledger     *ledger.Ledger
	validators *validators.Registry
	locker     Locker
}

// New returns a Materializer for one transaction. sent, led, and reg are
// shared across a rite's transactions; staging and the advisory lock are
// private to this one.
func New(opts Options, sent *sentinel.Sentinel, led *ledger.Ledger, reg *validators.Registry) *Materializer {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 30 * time.Second
	}
	if opts.WorkerLimit <= 0 {
		opts.WorkerLimit = defaultWorkerLimit()
	}
	if opts.Vars == nil {
		opts.Vars = alchemist.Context{}
	}
	if opts.Dossier == nil {
		opts.Dossier = types.NewVariableDossier()
	}
	return &Materializer{
		opts:       opts,
		staging:    staging.NewManager(opts.Project, opts.StagingRoot, opts.TxID),
		sentinel:   sent,
		ledger:     led,
		validators: reg,
		locker:     resolveLocker(opts),
	}
}

// Run executes Begin/Stage/Validate/Promote/Commit (or, in dry-run mode,
// Begin/Stage/Validate/Prophecy) against plan.
func (m *Materializer) Run(ctx context.Context, plan *types.OrderedPlan) *Result {
	result := &Result{TxID: m.opts.TxID}

	lockCtx, cancel := context.WithTimeout(ctx, m.opts.LockTimeout)
	defer cancel()
	acquired, err := m.locker.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil || !acquired {
		result.Heresies = append(result.Heresies, heresy.New(heresy.KindConcurrentRite, "", 0, 0,
			"could not acquire the advisory lock within %s", m.opts.LockTimeout))
		return result
	}
	defer m.locker.Unlock()

	if err := m.staging.Begin(ctx); err != nil {
		result.Heresies = append(result.Heresies, heresy.Wrap(err, "beginning transaction "+m.opts.TxID))
		return result
	}

	for _, item := range plan.Items {
		if item.Kind != types.KindForm {
			continue
		}
		writeResult, h := m.stageItem(ctx, item)
		if h != nil {
			result.Heresies = append(result.Heresies, h)
			if h.IsFatal() {
				result.Results = nil
				m.abort(ctx)
				return result
			}
			continue
		}
		result.Results = append(result.Results, writeResult)
	}

	if staged := m.validateStaged(ctx); len(staged) > 0 {
		result.Heresies = append(result.Heresies, staged...)
		if anyFatal(staged) {
			result.Results = nil
			m.abort(ctx)
			return result
		}
	}

	if h := m.sentinel.VerifyFinalSet(m.staging.Touched()); h != nil {
		result.Heresies = append(result.Heresies, h)
		result.Results = nil
		m.abort(ctx)
		return result
	}

	if m.opts.DryRun {
		prophecy, err := m.staging.Prophecy(ctx)
		if err != nil {
			result.Heresies = append(result.Heresies, heresy.Wrap(err, "computing prophecy"))
		}
		result.Prophecy = prophecy
		m.abort(ctx)
		return result
	}

	if _, err := m.staging.Promote(ctx); err != nil {
		result.Tainted = true
		entries := m.ledger.Snapshot(m.opts.TxID)
		result.Heresies = append(result.Heresies, heresy.Wrap(err, "promote failed, rollback attempted"))
		result.Heresies = append(result.Heresies, ledger.Reverse(ctx, m.opts.Project, entries, m.opts.Exec)...)
		_ = m.staging.Discard(ctx)
		return result
	}

	if m.opts.JournalPath != "" {
		if err := m.ledger.Persist(ctx, m.opts.Project, m.opts.TxID, m.opts.JournalPath); err != nil {
			result.Heresies = append(result.Heresies, heresy.Wrap(err, "persisting ledger journal"))
		}
	}
	_ = m.staging.Discard(ctx)
	return result
}

func (m *Materializer) abort(ctx context.Context) {
	_ = m.staging.Discard(ctx)
}

func anyFatal(hs []*heresy.Heresy) bool {
	for _, h := range hs {
		if h.IsFatal() {
			return true
		}
	}
	return false
}

func defaultWorkerLimit() int {
	n := runtime.NumCPU() * 4
	if n > 32 {
		return 32
	}
	if n < 1 {
		return 1
	}
	return n
}
