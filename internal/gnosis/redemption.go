// Package gnosis binds a %% post-run block's failure to its immediately
// following %% on-heresy block and records whether the redemption rite
// fired, feeding Manifest.Heresies.
package gnosis

import (
	"fmt"

	"github.com/novalym/velm-sub003/internal/heresy"
	"github.com/novalym/velm-sub003/internal/types"
)

// Executor runs a %% on-heresy block's raw Symphony body (edict text) and
// reports its combined output; internal/symphony supplies the concrete
// implementation so this package stays free of shell execution itself.
type Executor func(edictBody string) (output string, err error)

// Outcome records what happened when a post-run failure's bound
// redemption rite (if any) was attempted.
type Outcome struct {
	Cause       *heresy.Heresy
	Bound       bool   // an on-heresy block was found at the same indent
	Fired       bool   // the bound block was actually attempted
	Healed      bool   // the redemption rite itself exited clean
	Output      string
	RedemptionErr string
}

// Summary renders the outcome the way Manifest.Heresies entries are
// recorded: one line naming the original heresy and the redemption
// result, or its absence.
func (o Outcome) Summary() string {
	if o.Cause == nil {
		return ""
	}
	switch {
	case !o.Bound:
		return fmt.Sprintf("%s (no redemption rite bound)", o.Cause.Error())
	case !o.Fired:
		return fmt.Sprintf("%s (redemption rite bound but not run)", o.Cause.Error())
	case !o.Healed:
		return fmt.Sprintf("%s (redemption attempted, still failing: %s)", o.Cause.Error(), o.RedemptionErr)
	default:
		return fmt.Sprintf("%s (healed by on-heresy redemption)", o.Cause.Error())
	}
}

// FindBound locates the %% on-heresy item immediately following the
// post-run item at plan.Items[postRunIdx], at the same OriginalIndent, per
// spec.md's "%% on-heresy: immediately after a post-run block" rule. It
// returns false if no such item exists (an orphaned failure: the parser
// already warned about the reverse case, an on-heresy with no preceding
// post-run, via heresy.KindOrphanedRedemption).
func FindBound(plan *types.OrderedPlan, postRunIdx int) (*types.BlueprintItem, bool) {
	if postRunIdx < 0 || postRunIdx >= len(plan.Items) {
		return nil, false
	}
	postRun := plan.Items[postRunIdx]
	if postRun.Kind != types.KindPostRun {
		return nil, false
	}
	for i := postRunIdx + 1; i < len(plan.Items); i++ {
		next := plan.Items[i]
		if next.OriginalIndent < postRun.OriginalIndent {
			return nil, false
		}
		if next.OriginalIndent > postRun.OriginalIndent {
			continue // nested content belonging to the post-run block itself
		}
		if next.Kind == types.KindOnHeresy {
			return next, true
		}
		return nil, false
	}
	return nil, false
}

// Attempt runs the bound on-heresy block (if any) via exec and reports the
// redemption outcome for cause, the heresy that the preceding post-run
// block's edict raised.
func Attempt(plan *types.OrderedPlan, postRunIdx int, cause *heresy.Heresy, exec Executor) Outcome {
	bound, ok := FindBound(plan, postRunIdx)
	if !ok {
		return Outcome{Cause: cause, Bound: false}
	}
	if exec == nil {
		return Outcome{Cause: cause, Bound: true, Fired: false}
	}
	output, err := exec(bound.Content)
	if err != nil {
		return Outcome{Cause: cause, Bound: true, Fired: true, Healed: false, Output: output, RedemptionErr: err.Error()}
	}
	return Outcome{Cause: cause, Bound: true, Fired: true, Healed: true, Output: output}
}
