package jurisprudence

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var typeSigRegex = regexp.MustCompile(`^(\w+)(?:\((.*)\))?$`)

// ParseFieldSignature deconstructs a type expression like `enum("a","b")`,
// `str(min=5)`, or `List[int]` into a type name, its keyword/positional
// constraints, and whether it is list-wrapped.
func ParseFieldSignature(raw string) (typeName string, constraints map[string]interface{}, isList bool, err error) {
	clean := strings.TrimSpace(raw)

	lower := strings.ToLower(clean)
	if strings.HasPrefix(lower, "list[") && strings.HasSuffix(clean, "]") {
		isList = true
		clean = strings.TrimSpace(clean[5 : len(clean)-1])
	}

	m := typeSigRegex.FindStringSubmatch(clean)
	if m == nil {
		return "any", map[string]interface{}{}, isList, nil
	}
	typeName = strings.ToLower(m[1])
	constraints = map[string]interface{}{}

	argsStr := strings.TrimSpace(m[2])
	if argsStr == "" {
		return typeName, constraints, isList, nil
	}

	if kv, ok := parseKeywordArgs(argsStr); ok {
		return typeName, kv, isList, nil
	}

	options, ok := parsePositionalArgs(argsStr)
	if !ok {
		return "", nil, false, fmt.Errorf("malformed type arguments %q", argsStr)
	}
	constraints["options"] = options
	return typeName, constraints, isList, nil
}

// parseKeywordArgs parses "min=1, max=10, pattern=\"^a\"" into a map. It
// returns ok=false if any comma-separated segment is not a key=value pair,
// so the caller falls back to positional parsing (for enum's bare list).
func parseKeywordArgs(s string) (map[string]interface{}, bool) {
	parts := splitTopLevel(s)
	out := make(map[string]interface{}, len(parts))
	for _, part := range parts {
		eq := strings.Index(part, "=")
		if eq < 0 {
			return nil, false
		}
		key := strings.TrimSpace(part[:eq])
		valStr := strings.TrimSpace(part[eq+1:])
		if key == "" {
			return nil, false
		}
		out[key] = parseScalarLiteral(valStr)
	}
	return out, true
}

// parsePositionalArgs parses `"a", "b", "c"` into a string slice, used by
// enum's bare-option-list form.
func parsePositionalArgs(s string) ([]string, bool) {
	parts := splitTopLevel(s)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, stripQuotes(part))
	}
	return out, true
}

// splitTopLevel splits s on commas that are not inside a quoted string.
func splitTopLevel(s string) []string {
	var out []string
	var cur strings.Builder
	inQuote := rune(0)
	for _, r := range s {
		switch {
		case inQuote != 0:
			cur.WriteRune(r)
			if r == inQuote {
				inQuote = 0
			}
		case r == '"' || r == '\'':
			inQuote = r
			cur.WriteRune(r)
		case r == ',':
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// parseScalarLiteral interprets a constraint value as a bool, int, float,
// quoted string, or bareword string, in that preference order.
func parseScalarLiteral(s string) interface{} {
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
	return stripQuotes(s)
}
