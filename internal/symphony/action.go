package symphony

import (
	"context"
	"time"

	"github.com/novalym/velm-sub003/internal/heresy"
)

// runAction executes a's command, retrying per a.Retry until it exits
// zero or attempts are exhausted, then records the final result as the
// Conductor's last action for subsequent vows and captures its stdout
// into CaptureVar, if set.
func (c *Conductor) runAction(ctx context.Context, a ActionEdict) (CommandResult, *heresy.Heresy) {
	attempts := a.Retry.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var last CommandResult
	for attempt := 0; attempt < attempts; attempt++ {
		last = c.runner()(ctx, c.Dir, c.envSlice(), c.substitute(a.Command), a.Timeout)
		if last.Err == nil && last.ExitCode == 0 {
			break
		}
		if attempt+1 < attempts {
			if err := sleepOrCancel(ctx, backoffDelay(a.Retry, attempt)); err != nil {
				return last, heresy.Wrap(err, "interrupted during retry backoff for "+a.Command)
			}
		}
	}

	c.lastOutput = last.Stdout
	c.lastExit = last.ExitCode
	c.lastSucceeded = last.Err == nil && last.ExitCode == 0
	if a.CaptureVar != "" {
		c.Vars[a.CaptureVar] = last.Stdout
	}

	if !c.lastSucceeded {
		return last, heresy.New(heresy.KindShellStrikeFracture, "", 0, 0,
			"action %q exited %d after %d attempt(s)", a.Command, last.ExitCode, attempts)
	}
	return last, nil
}

// backoffDelay computes the wait before retry attempt index+1.
// Exponential doubles the interval each attempt; linear (the default)
// scales it by the attempt count.
func backoffDelay(p RetryPolicy, attempt int) time.Duration {
	if p.Backoff == "exponential" {
		d := p.Interval
		for i := 0; i < attempt; i++ {
			d *= 2
		}
		return d
	}
	return p.Interval * time.Duration(attempt+1)
}

func sleepOrCancel(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
