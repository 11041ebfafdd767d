// Package symphony implements the runtime for the Symphony sub-language
// embedded in %% post-run/on-heresy/on-undo blocks (and standalone
// .symphony/.arch files): ">> command" action edicts, "?? vow" assertions
// against the environment or a prior action's output, and "%% key: value"
// changes to the conductor's own state. internal/gnosis's Executor type
// and the Ledger Reverser's ExecShell inverse both run through a
// Conductor via NewExecutor.
package symphony

import (
	"context"
	"strings"
	"time"

	"github.com/novalym/velm-sub003/internal/heresy"
	"github.com/novalym/velm-sub003/internal/types"
)

// Plea mirrors the core's Prompter contract: ask(plea) -> value, where a
// non-interactive Prompter fails unless a default exists.
type Plea struct {
	Name    string
	Kind    string // text, number, bool, choice, secret
	Message string
	Default string
	Choices []string
}

// Prompter resolves a %% ask / %% choose plea to a value.
type Prompter interface {
	Ask(ctx context.Context, plea Plea) (string, error)
}

// CommandResult is what one >> action produced.
type CommandResult struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// CommandRunner executes one shell command line within dir/env and returns
// its result. run.go's realRunner is the production implementation; tests
// substitute a stub via Conductor.Runner.
type CommandRunner func(ctx context.Context, dir string, env []string, command string, timeout time.Duration) CommandResult

// Conductor holds the mutable state a Symphony body runs against.
type Conductor struct {
	Dir      string
	Env      map[string]string
	Vars     map[string]string
	Sanctum  types.Sanctum         // for %% hoard's cache writes and ?? file_exists
	Prompter Prompter              // nil disables %% ask / %% choose
	Runner   CommandRunner         // nil -> realRunner
	Proclaim func(message string) // nil -> discarded

	lastOutput    string
	lastExit      int
	lastSucceeded bool
	failed        string // set by %% fail; aborts remaining edicts in this Run
	proclaimed    []string
	hoarded       map[string]string
}

// NewConductor returns a Conductor rooted at dir, seeded with vars.
func NewConductor(dir string, vars map[string]string) *Conductor {
	if vars == nil {
		vars = make(map[string]string)
	}
	return &Conductor{
		Dir:  dir,
		Env:  make(map[string]string),
		Vars: vars,
	}
}

// Result is everything one Run call produced.
type Result struct {
	Actions    []CommandResult
	Proclaimed []string
	Failed     bool
	FailReason string
}

func (c *Conductor) runner() CommandRunner {
	if c.Runner != nil {
		return c.Runner
	}
	return realRunner
}

// Run parses and executes body — the raw, newline-joined Content of a
// %% post-run/on-heresy/on-undo block, or a standalone Symphony file —
// line by line against c. Execution stops at the first fatal heresy (a
// vow failure, an action whose retries are exhausted, or a %% fail
// state), and the heresy returned names it; everything already executed
// is still reported in Result.
func (c *Conductor) Run(ctx context.Context, body string) (Result, *heresy.Heresy) {
	result := Result{}
	c.failed = ""

	for _, raw := range splitEdictLines(body) {
		switch {
		case strings.HasPrefix(raw, ">>"):
			action := parseAction(raw)
			cmdResult, h := c.runAction(ctx, action)
			result.Actions = append(result.Actions, cmdResult)
			if h != nil {
				return result, h
			}

		case strings.HasPrefix(raw, "??"):
			vow := parseVow(raw)
			if h := c.evaluateVow(ctx, vow); h != nil {
				return result, h
			}

		case strings.HasPrefix(raw, "%%"):
			key, value := parseState(raw)
			h := c.applyState(ctx, key, value)
			result.Proclaimed = c.proclaimed
			if h != nil {
				return result, h
			}
			if c.failed != "" {
				result.Failed = true
				result.FailReason = c.failed
				return result, heresy.New(heresy.KindShellStrikeFracture, "", 0, 0, "%%%% fail: %s", c.failed)
			}

		default:
			return result, heresy.New(heresy.KindParse, "", 0, 0, "unrecognized Symphony line: %q", raw)
		}
	}
	result.Proclaimed = c.proclaimed
	return result, nil
}

// splitEdictLines splits body into trimmed, non-blank, non-comment lines.
func splitEdictLines(body string) []string {
	var lines []string
	for _, raw := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines = append(lines, trimmed)
	}
	return lines
}

// substitute replaces "${name}" tokens in text with c.Vars[name],
// falling back to c.Env[name]; an unresolved token is left verbatim so a
// typo surfaces in the command's own output rather than silently
// vanishing.
func (c *Conductor) substitute(text string) string {
	if !strings.Contains(text, "${") {
		return text
	}
	var b strings.Builder
	for {
		start := strings.Index(text, "${")
		if start < 0 {
			b.WriteString(text)
			break
		}
		end := strings.Index(text[start:], "}")
		if end < 0 {
			b.WriteString(text)
			break
		}
		end += start
		b.WriteString(text[:start])
		name := text[start+2 : end]
		if v, ok := c.Vars[name]; ok {
			b.WriteString(v)
		} else if v, ok := c.Env[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(text[start : end+1])
		}
		text = text[end+1:]
	}
	return b.String()
}

func (c *Conductor) envSlice() []string {
	env := make([]string, 0, len(c.Env))
	for k, v := range c.Env {
		env = append(env, k+"="+v)
	}
	return env
}
