package symphony

import (
	"context"
	"strings"

	"github.com/novalym/velm-sub003/internal/gnosis"
)

// NewExecutor adapts a Conductor into a gnosis.Executor, so a bound
// %% on-heresy redemption rite or a Ledger ExecShell inverse's %% on-undo
// block can run through the same Symphony runtime as a regular %%
// post-run block. Successive calls share c's state (Vars/Env/Dir), the
// same way a single rite's post-run, on-heresy, and on-undo blocks would
// in one conductor lifetime.
func NewExecutor(c *Conductor) gnosis.Executor {
	return func(edictBody string) (string, error) {
		result, h := c.Run(context.Background(), edictBody)
		output := combinedOutput(result)
		if h != nil {
			return output, h
		}
		return output, nil
	}
}

func combinedOutput(result Result) string {
	var parts []string
	for _, a := range result.Actions {
		if a.Stdout != "" {
			parts = append(parts, a.Stdout)
		}
		if a.Stderr != "" {
			parts = append(parts, a.Stderr)
		}
	}
	parts = append(parts, result.Proclaimed...)
	return strings.Join(parts, "\n")
}
