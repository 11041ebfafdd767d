package weaver

import (
	"strings"

	"github.com/novalym/velm-sub003/internal/alchemist"
	"github.com/novalym/velm-sub003/internal/heresy"
	"github.com/novalym/velm-sub003/internal/types"
)

// gate is one open @if/@elif/@else run at a given indent: the sequence of
// branches sharing that indent, of which at most one is taken.
type gate struct {
	indent   int
	lineNum  int // source line of the opening "@if", for flatten ordering
	branches []*branch
}

type branch struct {
	tag      string // "if", "elif", "else"
	cond     string
	children []*types.BlueprintItem
	gates    []*gate // nested gates opened inside this branch, in order
}

// Weave evaluates every Logic gate in items against ctx and flattens the
// surviving Form/Variable/Edict/Contract/PostRun/OnHeresy/OnUndo items into
// a types.OrderedPlan, preserving source order. ctx seeds the variable
// context (CLI overrides and builtins); each Variable item encountered in
// source order has its expression transmuted and, if not already present
// in ctx, merged in — so a later condition or form can see it, matching
// "as resolved so far by in-order Variable items". checker may be nil to
// skip contract validation. Items must already have trait splices expanded
// (internal/parser's conductTraitUse does this inline, ahead of the
// Weaver, rather than the Weaver re-parsing trait files itself — see
// DESIGN.md's Open Question entry on this).
func Weave(items []*types.BlueprintItem, dossier *types.VariableDossier, ctx alchemist.Context, checker alchemist.ContractChecker) (*types.OrderedPlan, []*heresy.Heresy) {
	var heresies []*heresy.Heresy
	root := &branch{tag: "root"}
	stack := []*gate{{indent: -1, branches: []*branch{root}}}

	for _, item := range items {
		for len(stack) > 1 && item.OriginalIndent <= stack[len(stack)-1].indent && item.Kind != types.KindLogic {
			stack = stack[:len(stack)-1]
		}
		current := stack[len(stack)-1].branches[len(stack[len(stack)-1].branches)-1]

		if item.Kind != types.KindLogic {
			current.children = append(current.children, item)
			continue
		}

		switch item.LogicTag {
		case "if":
			for len(stack) > 1 && item.OriginalIndent <= stack[len(stack)-1].indent {
				stack = stack[:len(stack)-1]
			}
			current = stack[len(stack)-1].branches[len(stack[len(stack)-1].branches)-1]
			g := &gate{indent: item.OriginalIndent, lineNum: item.LineNum, branches: []*branch{{tag: "if", cond: item.Content}}}
			current.gates = append(current.gates, g)
			stack = append(stack, g)
		case "elif", "else":
			for len(stack) > 1 && stack[len(stack)-1].indent != item.OriginalIndent {
				stack = stack[:len(stack)-1]
			}
			g := stack[len(stack)-1]
			if g.indent != item.OriginalIndent {
				heresies = append(heresies, heresy.New(heresy.KindParse, item.BlueprintOrigin, item.LineNum, 0,
					"@%s at indent %d has no matching @if at the same indent", item.LogicTag, item.OriginalIndent))
				continue
			}
			g.branches = append(g.branches, &branch{tag: item.LogicTag, cond: item.Content})
		case "endif":
			for len(stack) > 1 && stack[len(stack)-1].indent != item.OriginalIndent {
				stack = stack[:len(stack)-1]
			}
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var out []*types.BlueprintItem
	flattenBranch(root, ctx, dossier, checker, &out, &heresies)

	for name := range dossier.Required {
		if _, defined := dossier.Defined[name]; defined || types.IsBuiltin(name) {
			continue
		}
		if _, ok := ctx[name]; ok {
			continue
		}
		heresies = append(heresies, &heresy.Heresy{
			Kind: heresy.KindMissingGnosis, Severity: heresy.SeverityFatal,
			Message: "variable \"" + name + "\" is required but never defined or supplied",
		})
	}

	return &types.OrderedPlan{Items: out, Dossier: dossier}, heresies
}

// flattenBranch appends a branch's own items, resolving each Variable
// item's expression into ctx as it's reached, and recurses into whichever
// nested gate branch survives condition evaluation, in source order.
func flattenBranch(b *branch, ctx alchemist.Context, dossier *types.VariableDossier, checker alchemist.ContractChecker, out *[]*types.BlueprintItem, heresies *[]*heresy.Heresy) {
	childCursor := 0
	gateCursor := 0

	emitItem := func(item *types.BlueprintItem) {
		if item.Kind == types.KindVariable {
			resolveVariable(item, ctx, dossier, checker, heresies)
		}
		*out = append(*out, item)
	}

	for childCursor < len(b.children) || gateCursor < len(b.gates) {
		nextChildLine := maxInt
		if childCursor < len(b.children) {
			nextChildLine = b.children[childCursor].LineNum
		}
		nextGateLine := maxInt
		if gateCursor < len(b.gates) {
			nextGateLine = b.gates[gateCursor].lineNum
		}
		if nextChildLine <= nextGateLine {
			emitItem(b.children[childCursor])
			childCursor++
		} else {
			resolveGate(b.gates[gateCursor], ctx, dossier, checker, out, heresies)
			gateCursor++
		}
	}
}

// resolveVariable transmutes item.Content (its default expression, which
// may itself reference earlier variables) and merges the result into ctx
// unless a caller-supplied override already occupies that name — CLI
// overrides and @def/%% use TraitArgs values always win over a blueprint
// default.
func resolveVariable(item *types.BlueprintItem, ctx alchemist.Context, dossier *types.VariableDossier, checker alchemist.ContractChecker, heresies *[]*heresy.Heresy) {
	name := strings.TrimLeft(item.Path, "$")
	name = strings.TrimSpace(name)
	if ctx == nil {
		return
	}
	if _, already := ctx[name]; already {
		return
	}
	if item.TraitArgs != nil {
		if v, ok := item.TraitArgs[name]; ok {
			ctx[name] = v
			return
		}
	}
	if !strings.Contains(item.Content, "{{") {
		ctx[name] = unquoteDefault(item.Content)
		return
	}
	result, h := alchemist.Transmute(item.Content, ctx, dossier.Contracts, checker)
	if h != nil {
		*heresies = append(*heresies, h)
		return
	}
	ctx[name] = result.Text
}

// unquoteDefault strips one layer of matching quotes from a blueprint
// default expression that carries no {{ }} template, e.g. `"python"` -> the
// variable value python. A bare, unquoted default (e.g. a numeric literal
// or boolean keyword) passes through unchanged.
func unquoteDefault(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

const maxInt = int(^uint(0) >> 1)

// resolveGate evaluates each branch of a gate in order (if, elif..., else)
// and recurses into the first truthy one, applying the lexical scoping
// rule: a branch's own variable resolutions only affect ctx for the
// duration of its own flatten, never the sibling branches or the outer
// scope beyond what it legitimately defines going forward in source order.
func resolveGate(g *gate, ctx alchemist.Context, dossier *types.VariableDossier, checker alchemist.ContractChecker, out *[]*types.BlueprintItem, heresies *[]*heresy.Heresy) {
	for _, br := range g.branches {
		taken := br.tag == "else"
		if br.tag == "if" || br.tag == "elif" {
			v, err := evalCondition(br.cond, ctx)
			if err != nil {
				*heresies = append(*heresies, heresy.New(heresy.KindParse, "", 0, 0, "%s", err.Error()))
				continue
			}
			taken = v
		}
		if taken {
			flattenBranch(br, ctx, dossier, checker, out, heresies)
			return
		}
	}
}
