package symphony

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/novalym/velm-sub003/internal/heresy"
)

// applyState dispatches one "%% key: value" line to its handler. key must
// be one of the closed set spec.md names; anything else is a fatal
// UnknownStateHeresy.
func (c *Conductor) applyState(ctx context.Context, key, value string) *heresy.Heresy {
	switch key {
	case "sanctum":
		c.Dir = filepath.Join(c.Dir, c.substitute(value))
		return nil

	case "let", "set", "var":
		name, expr, ok := strings.Cut(value, "=")
		if !ok {
			return heresy.New(heresy.KindParse, "", 0, 0, "%%%% %s requires 'name = value'", key)
		}
		c.Vars[strings.TrimSpace(name)] = c.substitute(strings.TrimSpace(expr))
		return nil

	case "env":
		name, v, ok := strings.Cut(value, "=")
		if !ok {
			return heresy.New(heresy.KindParse, "", 0, 0, "%%%% env requires 'NAME=value'")
		}
		c.Env[strings.TrimSpace(name)] = c.substitute(strings.TrimSpace(v))
		return nil

	case "sleep":
		secs, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return heresy.New(heresy.KindParse, "", 0, 0, "%%%% sleep requires a numeric seconds value, got %q", value)
		}
		if err := sleepOrCancel(ctx, time.Duration(secs*float64(time.Second))); err != nil {
			return heresy.Wrap(err, "interrupted during %%%% sleep")
		}
		return nil

	case "kill":
		// Accepted and ignored: this conductor never backgrounds a process,
		// so there is nothing of its own to kill, and nothing is recorded. A
		// missing target is not an error.
		return nil

	case "proclaim":
		msg := c.substitute(value)
		c.proclaimed = append(c.proclaimed, msg)
		if c.Proclaim != nil {
			c.Proclaim(msg)
		}
		return nil

	case "fail":
		c.failed = c.substitute(value)
		return nil

	case "tunnel":
		// Out of scope: no example repo in the corpus wraps a port-forward
		// or SSH-tunnel primitive, and spec.md names the key without
		// defining its wire semantics. Recorded as a proclamation so a rite
		// log shows it was requested, rather than silently dropped.
		c.proclaimed = append(c.proclaimed, "tunnel (unimplemented): "+value)
		return nil

	case "hoard":
		return c.hoard(ctx, value)

	case "config":
		name, v, ok := strings.Cut(value, "=")
		if !ok {
			return heresy.New(heresy.KindParse, "", 0, 0, "%%%% config requires 'name = value'")
		}
		c.Vars[strings.TrimSpace(name)] = c.substitute(strings.TrimSpace(v))
		return nil

	case "ask":
		return c.ask(ctx, value, "text", nil)

	case "choose":
		name, choicesStr, ok := strings.Cut(value, "=")
		if !ok {
			return heresy.New(heresy.KindParse, "", 0, 0, "%%%% choose requires 'name = opt1,opt2,...'")
		}
		choices := strings.Split(choicesStr, ",")
		for i := range choices {
			choices[i] = strings.TrimSpace(choices[i])
		}
		return c.ask(ctx, strings.TrimSpace(name), "choice", choices)

	default:
		return heresy.New(heresy.KindUnknownState, "", 0, 0, "unknown Symphony state key %q", key)
	}
}

// hoard writes "name = value" into the project Sanctum's cache directory,
// the persisted-state counterpart to @include's remote-fetch cache
// (spec.md §6.2 ".scaffold/cache/").
func (c *Conductor) hoard(ctx context.Context, value string) *heresy.Heresy {
	name, v, ok := strings.Cut(value, "=")
	if !ok {
		return heresy.New(heresy.KindParse, "", 0, 0, "%%%% hoard requires 'name = value'")
	}
	name = strings.TrimSpace(name)
	if c.Sanctum == nil {
		return heresy.New(heresy.KindMeta, name, 0, 0, "%%%% hoard requires a Sanctum")
	}
	data := c.substitute(strings.TrimSpace(v))
	if err := c.Sanctum.WriteFile(ctx, ".scaffold/cache/"+name, []byte(data), ""); err != nil {
		return heresy.Wrap(err, "hoarding "+name)
	}
	if c.hoarded == nil {
		c.hoarded = make(map[string]string)
	}
	c.hoarded[name] = data
	return nil
}

func (c *Conductor) ask(ctx context.Context, value, kind string, choices []string) *heresy.Heresy {
	name := strings.TrimSpace(value)
	if c.Prompter == nil {
		return heresy.New(heresy.KindMeta, name, 0, 0, "%%%% ask/choose requires a Prompter in non-interactive mode")
	}
	answer, err := c.Prompter.Ask(ctx, Plea{Name: name, Kind: kind, Message: name, Choices: choices})
	if err != nil {
		return heresy.Wrap(err, "prompting for "+name)
	}
	c.Vars[name] = answer
	return nil
}
