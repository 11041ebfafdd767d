package parser

import (
	"strings"

	"github.com/novalym/velm-sub003/internal/heresy"
	"github.com/novalym/velm-sub003/internal/types"
)

// conductVariable parses `$$name[: type] = expr` or the block form
// `$$name[: type]:` followed by an indented expression block. Grounded on
// variable_scribe.py's _perceive_variable_scripture: a line's trailing,
// un-doubled ':' always opens a block, checked before any '=' splitting.
func (p *Parser) conductVariable(st *state, indent int) *heresy.Heresy {
	raw := strings.TrimSpace(st.lines[st.i])
	lineNum := st.i + 1
	body := strings.TrimPrefix(raw, "$$")

	name, typeName, exprOrRemainder, isBlock, ok := splitNameTypeRest(body)
	if !ok {
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "malformed variable declaration: %q", raw)
	}

	var expr string
	if isBlock {
		consumer := &blockConsumer{lines: st.lines}
		content, end := consumer.consumeIndentedBlock(st.i+1, indent)
		expr = content
		st.i = end
	} else {
		expr = exprOrRemainder
		st.i++
	}

	st.dossier.AddDefined(name)
	st.dossier.Defaults[name] = expr
	if typeName != "" {
		st.dossier.Contracts[name] = typeName
	}

	st.items = append(st.items, &types.BlueprintItem{
		Path:            "$$" + name,
		Kind:            types.KindVariable,
		Content:         expr,
		OriginalIndent:  indent,
		LineNum:         lineNum,
		BlueprintOrigin: p.origin,
	})
	discoverInto(st.dossier, expr)
	return nil
}

// splitNameTypeRest splits "name[: type] = expr" or "name[: type]:" into its
// name, optional type expression, and either the inline expression (isBlock
// false) or "" (isBlock true, the caller consumes an indented block). A
// trailing lone ':' (not '::') always means block form, decided before any
// '=' splitting so a type expression's internal "=" (e.g. "int(min=0)")
// never gets mistaken for the assignment.
func splitNameTypeRest(body string) (name, typeName, expr string, isBlock, ok bool) {
	body = strings.TrimSpace(body)

	isBlock = strings.HasSuffix(body, ":") && !strings.HasSuffix(body, "::")
	decl := body
	if isBlock {
		decl = strings.TrimSpace(strings.TrimSuffix(body, ":"))
	} else {
		eq := topLevelEquals(body)
		if eq < 0 {
			return "", "", "", false, false
		}
		decl = strings.TrimSpace(body[:eq])
		expr = strings.TrimSpace(body[eq+1:])
	}

	name, typeName = splitDeclNameType(decl)
	if name == "" {
		return "", "", "", false, false
	}
	return name, typeName, expr, isBlock, true
}

// splitDeclNameType splits "name" or "name: type" on the first top-level
// ':'.
func splitDeclNameType(decl string) (name, typeName string) {
	colon := strings.Index(decl, ":")
	if colon < 0 {
		return strings.TrimSpace(decl), ""
	}
	return strings.TrimSpace(decl[:colon]), strings.TrimSpace(decl[colon+1:])
}
