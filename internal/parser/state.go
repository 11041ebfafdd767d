package parser

import (
	"strconv"
	"strings"

	"github.com/novalym/velm-sub003/internal/heresy"
	"github.com/novalym/velm-sub003/internal/jurisprudence"
	"github.com/novalym/velm-sub003/internal/types"
)

// conductState dispatches the six "%%" state-block keywords: trait, use,
// contract, post-run, on-heresy, on-undo. Grounded on
// structural_scribe.py's _conduct_trait_definition/_conduct_trait_usage for
// the trait pair, and on the state-block grammar for the rest.
func (p *Parser) conductState(st *state, indent int, kind lineKind) *heresy.Heresy {
	switch kind {
	case lineStateTrait:
		return p.conductTraitDef(st, indent)
	case lineStateUse:
		return p.conductTraitUse(st, indent)
	case lineStateContract:
		return p.conductContract(st, indent)
	case lineStatePostRun:
		return p.conductSymphonyBlock(st, indent, types.KindPostRun, "post-run")
	case lineStateOnHeresy:
		return p.conductSymphonyBlock(st, indent, types.KindOnHeresy, "on-heresy")
	case lineStateOnUndo:
		return p.conductSymphonyBlock(st, indent, types.KindOnUndo, "on-undo")
	default:
		st.i++
		return heresy.New(heresy.KindParse, p.origin, st.i, 0, "unreachable state kind")
	}
}

// conductTraitDef parses `%% trait Name = "path/to/trait.bp"`, registering
// the trait's source path without emitting a plan item.
func (p *Parser) conductTraitDef(st *state, indent int) *heresy.Heresy {
	raw := strings.TrimSpace(st.lines[st.i])
	lineNum := st.i + 1
	st.i++

	body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(raw, "%%")), "trait"))
	eq := strings.Index(body, "=")
	if eq < 0 {
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "%%%% trait requires 'Name = \"path\"'")
	}
	name := strings.TrimSpace(body[:eq])
	path := unquote(strings.TrimSpace(body[eq+1:]))
	if name == "" || path == "" {
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "%%%% trait requires a name and a path")
	}
	p.traits[name] = path
	return nil
}

// conductTraitUse parses `%% use Name k=v k2="v2"`, recursively parsing the
// named trait's scripture (via the same Include resolver @include uses) and
// splicing its items at indent+1, tagged with the use-site's TraitName and
// TraitArgs so the Weaver can apply lexically-scoped variable overrides.
func (p *Parser) conductTraitUse(st *state, indent int) *heresy.Heresy {
	raw := strings.TrimSpace(st.lines[st.i])
	lineNum := st.i + 1
	st.i++

	body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(raw, "%%")), "use"))
	name, argsStr := splitFirstWord(body)
	if name == "" {
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "%%%% use requires a trait name")
	}

	path, ok := p.traits[name]
	if !ok {
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "unknown trait %q: no preceding %%%% trait %s = ... definition", name, name)
	}
	if p.include == nil {
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "%%%% use %q: no include resolver configured", name)
	}
	content, err := p.include(path)
	if err != nil {
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "trait %q at %q: %s", name, path, err.Error())
	}

	args := parseTraitArgs(argsStr)

	sub := New(path, p.include)
	sub.visited = p.visited
	sub.traits = p.traits
	sub.contracts = p.contracts
	out := sub.Parse(content)

	for _, item := range out.Items {
		item.OriginalIndent += indent + 1
		item.TraitName = name
		item.TraitArgs = args
		if item.BlueprintOrigin == "" {
			item.BlueprintOrigin = path
		}
		st.items = append(st.items, item)
	}
	for n := range out.Dossier.Required {
		if _, overridden := args[n]; !overridden {
			st.dossier.AddRequired(n)
		}
	}
	for n := range out.Dossier.Defined {
		st.dossier.AddDefined(n)
	}
	for k, v := range out.Dossier.Defaults {
		st.dossier.Defaults[k] = v
	}
	for _, h := range out.Heresies {
		p.errs.Add(h)
		if h.IsFatal() {
			return h
		}
	}
	return nil
}

// parseTraitArgs parses a space-separated "k=v k2=\"v 2\"" argument list,
// quote-aware so a value may itself contain spaces.
func parseTraitArgs(s string) map[string]string {
	args := make(map[string]string)
	for _, field := range fieldsRespectingQuotes(s) {
		eq := strings.Index(field, "=")
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(field[:eq])
		val := unquote(strings.TrimSpace(field[eq+1:]))
		if key != "" {
			args[key] = val
		}
	}
	return args
}

// conductContract parses `%% contract Name[(Parent)]` followed by an
// indented block of `field: type[(args)] [= default] [# doc]` lines,
// registering the assembled Contract in p.contracts.
func (p *Parser) conductContract(st *state, indent int) *heresy.Heresy {
	raw := strings.TrimSpace(st.lines[st.i])
	lineNum := st.i + 1

	header := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(raw, "%%")), "contract"))
	if !strings.HasSuffix(header, ":") {
		st.i++
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "%%%% contract header must end with ':'")
	}
	header = strings.TrimSuffix(header, ":")

	name := header
	parent := ""
	if open := strings.Index(header, "("); open >= 0 && strings.HasSuffix(header, ")") {
		name = strings.TrimSpace(header[:open])
		parent = strings.TrimSpace(header[open+1 : len(header)-1])
	}
	if name == "" {
		st.i++
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "%%%% contract requires a name")
	}

	consumer := &blockConsumer{lines: st.lines}
	body, end := consumer.consumeIndentedBlock(st.i+1, indent)
	st.i = end

	fields, ferr := parseContractFields(body)
	if ferr != nil {
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "%%%% contract %s: %s", name, ferr.Error())
	}

	p.contracts.Register(&jurisprudence.Contract{Name: name, Parent: parent, Fields: fields})
	return nil
}

// parseContractFields parses the dedented body of a %% contract block, one
// field per non-blank line.
func parseContractFields(body string) ([]jurisprudence.Field, error) {
	var fields []jurisprudence.Field
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		f, err := parseContractFieldLine(line)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// parseContractFieldLine parses one "name: type(args) = default # doc" line.
func parseContractFieldLine(line string) (jurisprudence.Field, error) {
	doc := ""
	if h := strings.Index(line, "#"); h >= 0 {
		doc = strings.TrimSpace(line[h+1:])
		line = strings.TrimSpace(line[:h])
	}

	colon := strings.Index(line, ":")
	if colon < 0 {
		return jurisprudence.Field{}, &literalError{"field line missing ':' : " + line}
	}
	name := strings.TrimSpace(line[:colon])
	rest := strings.TrimSpace(line[colon+1:])

	typeExpr := rest
	defaultRaw := ""
	hasDefault := false
	if eq := topLevelEquals(rest); eq >= 0 {
		typeExpr = strings.TrimSpace(rest[:eq])
		defaultRaw = strings.TrimSpace(rest[eq+1:])
		hasDefault = true
	}

	optional := false
	if strings.HasSuffix(typeExpr, "?") {
		optional = true
		typeExpr = strings.TrimSuffix(typeExpr, "?")
	}

	typeName, constraints, isList, err := jurisprudence.ParseFieldSignature(typeExpr)
	if err != nil {
		return jurisprudence.Field{}, err
	}

	var def interface{}
	if hasDefault {
		def = coerceDefaultLiteral(defaultRaw)
		optional = true
	}

	return jurisprudence.Field{
		Name:        name,
		TypeName:    typeName,
		Constraints: constraints,
		IsList:      isList,
		Optional:    optional,
		Default:     def,
		Doc:         doc,
	}, nil
}

// topLevelEquals finds a "=" not nested inside parens, or -1.
func topLevelEquals(s string) int {
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case '=':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func coerceDefaultLiteral(s string) interface{} {
	switch s {
	case "true", "True":
		return true
	case "false", "False":
		return false
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return unquote(s)
}

// conductSymphonyBlock consumes the indented block following a `%%
// post-run:` / `%% on-heresy:` / `%% on-undo:` header, storing the raw
// sub-language text verbatim; internal/symphony parses it later.
func (p *Parser) conductSymphonyBlock(st *state, indent int, kind types.Kind, label string) *heresy.Heresy {
	raw := strings.TrimSpace(st.lines[st.i])
	lineNum := st.i + 1

	header := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(raw, "%%")), label))
	if !strings.HasPrefix(header, ":") {
		st.i++
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "%%%% %s requires a ':' block header", label)
	}

	consumer := &blockConsumer{lines: st.lines}
	body, end := consumer.consumeIndentedBlock(st.i+1, indent)
	st.i = end

	st.items = append(st.items, &types.BlueprintItem{
		Path:            "%%" + label,
		Kind:            kind,
		Content:         body,
		OriginalIndent:  indent,
		LineNum:         lineNum,
		BlueprintOrigin: p.origin,
	})
	discoverInto(st.dossier, body)
	return nil
}
