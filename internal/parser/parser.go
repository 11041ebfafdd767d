// Package parser tokenizes a blueprint scripture into a flat stream of
// types.BlueprintItem values plus a VariableDossier, ready for the AST
// Weaver to prune conditionals and splice traits into an OrderedPlan.
package parser

import (
	"strings"

	"github.com/novalym/velm-sub003/internal/alchemist"
	"github.com/novalym/velm-sub003/internal/heresy"
	"github.com/novalym/velm-sub003/internal/jurisprudence"
	"github.com/novalym/velm-sub003/internal/types"
)

// Include resolves the content of an @include target; the caller supplies
// an implementation (local disk, Sanctum-backed, or network fetch with the
// spec's 30s connect / 30s read timeout) so this package stays I/O-free.
type Include func(path string) (string, error)

// Parser holds the state accumulated across one Parse call,
// including the cross-scripture visited-set that guards @include cycles.
type Parser struct {
	origin    string
	include   Include
	visited   map[string]bool // @include cycle guard, shared across recursive parses
	traits    map[string]string
	errs      *heresy.Collector
	contracts *jurisprudence.Registry
}

// New returns a Parser for a scripture named origin (used for diagnostics
// and BlueprintOrigin tagging). include may be nil if the blueprint never
// uses @include.
func New(origin string, include Include) *Parser {
	return &Parser{
		origin:    origin,
		include:   include,
		visited:   make(map[string]bool),
		traits:    make(map[string]string),
		errs:      heresy.NewCollector(),
		contracts: jurisprudence.NewRegistry(),
	}
}

// Output is everything the Parser produces from one scripture.
type Output struct {
	Items     []*types.BlueprintItem
	Dossier   *types.VariableDossier
	Contracts *jurisprudence.Registry
	Heresies  []*heresy.Heresy
}

// Parse tokenizes text, classifying each line and dispatching to the
// appropriate handler. It returns as soon as a handler reports a fatal
// heresy; a line that mixes tabs and spaces in its indentation is recorded
// as an indentation heresy and skipped without stopping the parse. Warnings
// accumulate and are returned alongside a partial result.
func (p *Parser) Parse(text string) Output {
	dossier := types.NewVariableDossier()
	lines := splitLines(text)
	st := &state{
		lines:   lines,
		dossier: dossier,
		origin:  p.origin,
	}

	for st.i < len(lines) {
		raw := lines[st.i]
		trimmed := strings.TrimSpace(raw)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			st.i++
			continue
		}

		indent, mixErr := leadingIndent(raw)
		if mixErr != nil {
			p.errs.Add(heresy.New(heresy.KindIndentation, p.origin, st.i+1, 0, "%s", mixErr.Error()))
			st.i++
			continue
		}

		kind := classifyLine(trimmed)
		var h *heresy.Heresy

		switch kind {
		case lineVariable:
			h = p.conductVariable(st, indent)
		case lineLogic:
			h = p.conductLogic(st, indent)
		case lineInclude:
			h = p.conductInclude(st, indent)
		case lineDef:
			h = p.conductDef(st, indent)
		case lineDiagnostic:
			h = p.conductDiagnostic(st, indent)
		case lineStateTrait, lineStateUse, lineStateContract, lineStatePostRun, lineStateOnHeresy, lineStateOnUndo:
			h = p.conductState(st, indent, kind)
		case lineForm:
			h = p.conductForm(st, indent)
		case lineUnknown:
			h = p.conductUnknownDirective(st, trimmed)
		default:
			h = heresy.New(heresy.KindParse, p.origin, st.i+1, 0, "unrecognized line: %q", trimmed)
		}

		if h != nil {
			p.errs.Add(h)
			if h.IsFatal() {
				return Output{
					Items:     st.items,
					Dossier:   dossier,
					Contracts: p.contracts,
					Heresies:  p.errs.All(),
				}
			}
		}
	}

	p.checkOrphanedRedemptions(st)

	return Output{
		Items:     st.items,
		Dossier:   dossier,
		Contracts: p.contracts,
		Heresies:  p.errs.All(),
	}
}

// state is the mutable cursor threaded through every conduct* function.
type state struct {
	lines   []string
	i       int
	items   []*types.BlueprintItem
	dossier *types.VariableDossier
	origin  string
}

func (p *Parser) checkOrphanedRedemptions(st *state) {
	for idx, item := range st.items {
		if item.Kind != types.KindOnHeresy {
			continue
		}
		hasPrecedingPostRun := false
		for back := idx - 1; back >= 0; back-- {
			if st.items[back].Kind == types.KindPostRun && st.items[back].OriginalIndent == item.OriginalIndent {
				hasPrecedingPostRun = true
				break
			}
			if st.items[back].OriginalIndent < item.OriginalIndent {
				break
			}
		}
		if !hasPrecedingPostRun {
			p.errs.Add(heresy.New(heresy.KindOrphanedRedemption, p.origin, item.LineNum, 0,
				"on-heresy block has no preceding post-run block at the same indent"))
		}
	}
}

// splitLines splits on \n without losing a trailing blank line's position
// (spec is line-oriented; \r\n is normalized).
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// discoverInto runs the Alchemist's static pre-scan (DiscoverVariables) over
// one transmutable text and records what it finds into dossier.Required.
func discoverInto(dossier *types.VariableDossier, text string) {
	names, _ := alchemist.DiscoverVariables(text)
	for name := range names {
		dossier.AddRequired(name)
	}
}
