package alchemist

import (
	"fmt"
	"strings"

	"github.com/novalym/velm-sub003/internal/heresy"
)

// Context is the accumulated variable gnosis available to Transmute:
// dotted identifiers like "config.port" resolve into nested maps.
type Context map[string]interface{}

// ContractChecker validates a resolved scalar value against a declared
// contract type name (as recorded in types.VariableDossier.Contracts);
// internal/jurisprudence supplies the concrete implementation. A nil
// checker skips contract validation entirely.
type ContractChecker interface {
	Check(contractType, value string) error
}

// Result is the outcome of transmuting one piece of text.
type Result struct {
	Text     string
	IsBinary bool // set when a base64 filter produced the final value
}

// Transmute replaces every {{ }} expression in text with its resolved
// value from ctx. An identifier with no value and no "default" filter in
// its chain fails with a MissingGnosisHeresy naming the variable and its
// source position. Filter chains apply left to right.
func Transmute(text string, ctx Context, contracts map[string]string, checker ContractChecker) (Result, *heresy.Heresy) {
	exprs, err := scanExpressions(text)
	if err != nil {
		return Result{}, heresy.New(heresy.KindParse, "", 0, 0, "%s", err.Error())
	}
	if len(exprs) == 0 {
		return Result{Text: text}, nil
	}

	var b strings.Builder
	last := 0
	sawBinary := false

	for _, re := range exprs {
		b.WriteString(text[last:re.start])

		value, hasDefault := lookup(ctx, re.expr.identifier)
		raw := ""
		if hasDefault {
			raw = fmt.Sprintf("%v", value)
		}

		chainHasDefault := false
		for _, f := range re.expr.filters {
			if f.name == "default" {
				chainHasDefault = true
				break
			}
		}

		if !hasDefault && !chainHasDefault {
			return Result{}, heresy.New(heresy.KindMissingGnosis, "", re.expr.line, re.expr.col,
				"variable %q is referenced but undefined", re.expr.identifier)
		}

		if contractType, ok := contracts[re.expr.identifier]; ok && checker != nil {
			if cerr := checker.Check(contractType, raw); cerr != nil {
				return Result{}, heresy.New(heresy.KindSchemaViolation, "", re.expr.line, re.expr.col,
					"variable %q fails contract %q: %s", re.expr.identifier, contractType, cerr.Error())
			}
		}

		resolved := raw
		for _, f := range re.expr.filters {
			filter, ok := LookupFilter(f.name)
			if !ok {
				return Result{}, heresy.New(heresy.KindParse, "", re.expr.line, re.expr.col,
					"unknown filter %q", f.name)
			}
			resolved, err = filter(resolved, f.args)
			if err != nil {
				return Result{}, heresy.New(heresy.KindParse, "", re.expr.line, re.expr.col,
					"filter %q on %q: %s", f.name, re.expr.identifier, err.Error())
			}
		}

		if strings.HasSuffix(resolved, binarySentinel) {
			sawBinary = true
			resolved = strings.TrimSuffix(resolved, binarySentinel)
		}

		b.WriteString(resolved)
		last = re.end
	}
	b.WriteString(text[last:])

	return Result{Text: b.String(), IsBinary: sawBinary}, nil
}

// DiscoverVariables statically pre-scans text for every referenced
// identifier, without evaluating filters or requiring ctx. Malformed
// expressions are reported the same way Transmute reports them.
func DiscoverVariables(text string) (map[string]struct{}, *heresy.Heresy) {
	exprs, err := scanExpressions(text)
	if err != nil {
		return nil, heresy.New(heresy.KindParse, "", 0, 0, "%s", err.Error())
	}
	names := make(map[string]struct{}, len(exprs))
	for _, re := range exprs {
		names[re.expr.identifier] = struct{}{}
	}
	return names, nil
}

// lookup resolves a dotted identifier against ctx, returning ok=false if
// any segment of the path is missing.
func lookup(ctx Context, identifier string) (interface{}, bool) {
	segments := strings.Split(identifier, ".")
	var cur interface{} = map[string]interface{}(ctx)
	for _, seg := range segments {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}
