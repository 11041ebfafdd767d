package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/novalym/velm-sub003/internal/alchemist"
	"github.com/novalym/velm-sub003/internal/config"
	"github.com/novalym/velm-sub003/internal/heresy"
	"github.com/novalym/velm-sub003/internal/jurisprudence"
	"github.com/novalym/velm-sub003/internal/parser"
	"github.com/novalym/velm-sub003/internal/sanctum"
	"github.com/novalym/velm-sub003/internal/types"
	"github.com/novalym/velm-sub003/internal/validators"
	"github.com/novalym/velm-sub003/internal/weaver"
)

// loadScripture reads a blueprint file from real disk, ahead of any
// Sanctum abstraction: the blueprint itself is an input to the rite, not
// a project-relative artifact the rite produces.
func loadScripture(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read blueprint %s: %w", path, err)
	}
	return string(data), nil
}

// parseAndWeave runs a scripture through the Parser and AST Weaver,
// seeding ctx with any --set overrides before Weave resolves the rest of
// the variable dossier against it. The returned Context is the same map
// Weave mutated in place, so it also carries every variable Weave merged
// in along the way - the ctx the Materializer must transmute plan items
// against.
func parseAndWeave(origin, text string, overrides alchemist.Context) (*types.OrderedPlan, alchemist.Context, []*heresy.Heresy) {
	p := parser.New(origin, nil)
	out := p.Parse(text)
	if anyFatalHeresy(out.Heresies) {
		return nil, nil, out.Heresies
	}

	ctx := alchemist.Context{}
	for k, v := range overrides {
		ctx[k] = v
	}

	var checker alchemist.ContractChecker
	if out.Contracts != nil {
		checker = jurisprudence.NewChecker(out.Contracts)
	}

	plan, weaveHeresies := weaver.Weave(out.Items, out.Dossier, ctx, checker)
	heresies := append(append([]*heresy.Heresy{}, out.Heresies...), weaveHeresies...)
	return plan, ctx, heresies
}

func anyFatalHeresy(hs []*heresy.Heresy) bool {
	for _, h := range hs {
		if h.IsFatal() {
			return true
		}
	}
	return false
}

// buildProjectSanctum resolves cfg.Sanctum into a real types.Sanctum rooted
// at workspace. "s3" and "ssh" are accepted by config validation but have
// no backend here yet (see DESIGN.md) - selecting one fails fast rather
// than silently falling back to local disk.
func buildProjectSanctum(cfg *config.Config, workspace string) (types.Sanctum, error) {
	switch cfg.Sanctum.Backend {
	case "", "local":
		return sanctum.NewLocalSanctum(workspace), nil
	case "memory":
		return sanctum.NewMemorySanctum(workspace), nil
	default:
		return nil, fmt.Errorf("sanctum backend %q has no implementation in this build", cfg.Sanctum.Backend)
	}
}

// newValidatorRegistry registers the built-in validators cfg enables.
func newValidatorRegistry(cfg *config.Config) *validators.Registry {
	reg := validators.NewRegistry()
	if cfg.Validators.IsEnabled(".py") {
		reg.Register(validators.NewPythonValidator())
	}
	if cfg.Validators.IsEnabled(".json") {
		reg.Register(validators.NewJSONValidator())
	}
	if cfg.Validators.IsEnabled(".yaml") || cfg.Validators.IsEnabled(".yml") {
		reg.Register(validators.NewYAMLValidator())
	}
	return reg
}

func newTxID() string {
	return uuid.NewString()
}

func printHeresies(hs []*heresy.Heresy) {
	for _, h := range hs {
		fmt.Fprintln(os.Stderr, h.Error())
	}
}

// parseSetFlags turns a list of "name=value" --set flags into an
// alchemist.Context seed.
func parseSetFlags(sets []string) (alchemist.Context, error) {
	ctx := alchemist.Context{}
	for _, raw := range sets {
		name, value, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q must be name=value", raw)
		}
		ctx[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return ctx, nil
}

// clockString is the chronicle Archiver's deterministic-under-test
// filename timestamp; the CLI's own clock source is the real wall clock.
func clockString() string {
	return time.Now().UTC().Format("20060102T150405Z")
}
