package parser

import (
	"strings"

	"github.com/novalym/velm-sub003/internal/heresy"
	"github.com/novalym/velm-sub003/internal/types"
)

// conductLogic parses @if/@elif/@else/@endif, including the inline form
// `@if expr -> path :: "content"` which emits both the gate and the form
// it guards on a single source line.
func (p *Parser) conductLogic(st *state, indent int) *heresy.Heresy {
	raw := strings.TrimSpace(st.lines[st.i])
	lineNum := st.i + 1

	tag, rest := splitFirstWord(strings.TrimPrefix(raw, "@"))
	condition := ""
	inlineForm := ""

	if tag == "if" || tag == "elif" {
		if arrow := strings.Index(rest, "->"); arrow >= 0 {
			condition = strings.TrimSpace(rest[:arrow])
			inlineForm = strings.TrimSpace(rest[arrow+2:])
		} else {
			condition = strings.TrimSpace(rest)
		}
		if condition == "" {
			return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "@%s requires a condition", tag)
		}
	}

	st.items = append(st.items, &types.BlueprintItem{
		Path:            "@" + tag,
		Kind:            types.KindLogic,
		LogicTag:        tag,
		Content:         condition,
		OriginalIndent:  indent,
		LineNum:         lineNum,
		BlueprintOrigin: p.origin,
	})
	discoverInto(st.dossier, condition)
	st.i++

	if inlineForm != "" {
		return p.conductFormText(st, indent+1, lineNum, inlineForm)
	}
	return nil
}

// conductInclude parses `@include "path"`, splicing the referenced
// scripture's items at the current indent. The visited-set guards cycles
// across the whole recursive parse.
func (p *Parser) conductInclude(st *state, indent int) *heresy.Heresy {
	raw := strings.TrimSpace(st.lines[st.i])
	lineNum := st.i + 1
	_, rest := splitFirstWord(strings.TrimPrefix(raw, "@"))
	target := unquote(strings.TrimSpace(rest))
	if target == "" {
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "@include requires a quoted path")
	}
	st.i++

	if p.visited[target] {
		return heresy.New(heresy.KindImportCycle, p.origin, lineNum, 0, "@include cycle at %q", target)
	}
	if p.include == nil {
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "@include %q: no include resolver configured", target)
	}

	content, err := p.include(target)
	if err != nil {
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "@include %q: %s", target, err.Error())
	}

	p.visited[target] = true
	sub := New(target, p.include)
	sub.visited = p.visited
	sub.traits = p.traits
	sub.contracts = p.contracts
	out := sub.Parse(content)
	delete(p.visited, target)

	for _, item := range out.Items {
		item.OriginalIndent += indent
		if item.BlueprintOrigin == "" {
			item.BlueprintOrigin = target
		}
		st.items = append(st.items, item)
	}
	for name := range out.Dossier.Required {
		st.dossier.AddRequired(name)
	}
	for name := range out.Dossier.Defined {
		st.dossier.AddDefined(name)
	}
	for k, v := range out.Dossier.Defaults {
		st.dossier.Defaults[k] = v
	}
	for k, v := range out.Dossier.Contracts {
		st.dossier.Contracts[k] = v
	}
	for _, h := range out.Heresies {
		p.errs.Add(h)
		if h.IsFatal() {
			return h
		}
	}
	return nil
}

// conductDef parses `@def name = expr`, a variable alias.
func (p *Parser) conductDef(st *state, indent int) *heresy.Heresy {
	raw := strings.TrimSpace(st.lines[st.i])
	lineNum := st.i + 1
	_, rest := splitFirstWord(strings.TrimPrefix(raw, "@"))

	eq := strings.Index(rest, "=")
	if eq < 0 {
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "@def requires 'name = expr'")
	}
	name := strings.TrimSpace(rest[:eq])
	expr := strings.TrimSpace(rest[eq+1:])
	if name == "" {
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "@def requires a name")
	}

	st.dossier.AddDefined(name)
	st.dossier.Defaults[name] = expr
	st.items = append(st.items, &types.BlueprintItem{
		Path:            "$$" + name,
		Kind:            types.KindVariable,
		Content:         expr,
		OriginalIndent:  indent,
		LineNum:         lineNum,
		BlueprintOrigin: p.origin,
	})
	discoverInto(st.dossier, expr)
	st.i++
	return nil
}

// conductDiagnostic parses @error/@warn/@print; these never emit a plan
// item, only a heresy (error/warn) or are dropped (print is informational
// and surfaced by the caller reading raw lines, not modeled as a heresy).
func (p *Parser) conductDiagnostic(st *state, indent int) *heresy.Heresy {
	raw := strings.TrimSpace(st.lines[st.i])
	lineNum := st.i + 1
	tag, rest := splitFirstWord(strings.TrimPrefix(raw, "@"))
	msg := unquote(strings.TrimSpace(rest))
	st.i++

	switch tag {
	case "error":
		return &heresy.Heresy{Kind: heresy.KindParse, Severity: heresy.SeverityFatal, Message: msg, Path: p.origin, Line: lineNum}
	case "warn":
		return &heresy.Heresy{Kind: heresy.KindParse, Severity: heresy.SeverityWarning, Message: msg, Path: p.origin, Line: lineNum}
	default: // print
		return nil
	}
}

// conductUnknownDirective handles a line classifyLine could not place in the
// closed @-directive or %%-state-keyword tables: an "@whatever" or "%%
// whatever" token outside both. It always returns a warning carrying the
// Levenshtein-nearest known token, never aborting the parse.
func (p *Parser) conductUnknownDirective(st *state, trimmed string) *heresy.Heresy {
	lineNum := st.i + 1
	st.i++

	switch {
	case strings.HasPrefix(trimmed, "%%"):
		tag, _ := splitFirstWord(strings.TrimSpace(strings.TrimPrefix(trimmed, "%%")))
		return &heresy.Heresy{
			Kind: heresy.KindUnknownState, Severity: heresy.SeverityWarning,
			Message: "unrecognized state keyword " + tag, Path: p.origin, Line: lineNum,
			Suggestion: heresy.NearestStateKey(tag),
		}
	default:
		tag, _ := splitFirstWord(strings.TrimPrefix(trimmed, "@"))
		return &heresy.Heresy{
			Kind: heresy.KindUnknownDirective, Severity: heresy.SeverityWarning,
			Message: "unrecognized directive @" + tag, Path: p.origin, Line: lineNum,
			Suggestion: heresy.NearestDirective(tag),
		}
	}
}

// splitFirstWord splits "tag rest..." on the first run of whitespace.
func splitFirstWord(s string) (tag, rest string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx:])
}

// unquote strips a single matching pair of surrounding quotes, if present.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
