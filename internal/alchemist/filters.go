package alchemist

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Filter transforms a scalar expression value into another scalar. Filters
// are pure; base64 is the one exception that also flags the surrounding
// Form as binary, handled by the caller inspecting binarySentinel.
type Filter func(value string, args []string) (string, error)

// binarySentinel is the marker Transmute recognizes in a filter chain's
// final output to mean "decode this as base64 at materialization time"
// rather than literal text.
const binarySentinel = "\x00ALCHEMIST-BASE64\x00"

var registry = map[string]Filter{
	"upper":       filterUpper,
	"lower":       filterLower,
	"snake_case":  filterSnakeCase,
	"kebab_case":  filterKebabCase,
	"pascal_case": filterPascalCase,
	"slug":        filterSlug,
	"default":     filterDefault,
	"replace":     filterReplace,
	"base64":      filterBase64,
	"sha256":      filterSHA256,
	"quote":       filterQuote,
	"trim":        filterTrim,
	"title_case":  filterTitleCase,
	"pluralize":   filterPluralize,
}

// LookupFilter returns the named filter and whether it is registered.
func LookupFilter(name string) (Filter, bool) {
	f, ok := registry[name]
	return f, ok
}

func filterUpper(v string, _ []string) (string, error) { return strings.ToUpper(v), nil }
func filterLower(v string, _ []string) (string, error) { return strings.ToLower(v), nil }

func filterSnakeCase(v string, _ []string) (string, error) {
	return delimitCase(v, '_'), nil
}

func filterKebabCase(v string, _ []string) (string, error) {
	return delimitCase(v, '-'), nil
}

func filterPascalCase(v string, _ []string) (string, error) {
	words := splitWords(v)
	var b strings.Builder
	for _, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		b.WriteRune(unicode.ToUpper(r[0]))
		b.WriteString(strings.ToLower(string(r[1:])))
	}
	return b.String(), nil
}

func filterTitleCase(v string, _ []string) (string, error) {
	words := strings.Fields(v)
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		words[i] = string(unicode.ToUpper(r[0])) + strings.ToLower(string(r[1:]))
	}
	return strings.Join(words, " "), nil
}

func filterSlug(v string, _ []string) (string, error) {
	lowered := strings.ToLower(v)
	var b strings.Builder
	lastDash := false
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-"), nil
}

func filterDefault(v string, args []string) (string, error) {
	if v != "" {
		return v, nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("default filter requires one argument")
	}
	return args[0], nil
}

func filterReplace(v string, args []string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("replace filter requires two arguments")
	}
	return strings.ReplaceAll(v, args[0], args[1]), nil
}

func filterBase64(v string, _ []string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(v)) + binarySentinel, nil
}

func filterSHA256(v string, _ []string) (string, error) {
	sum := sha256.Sum256([]byte(v))
	return fmt.Sprintf("%x", sum), nil
}

func filterQuote(v string, _ []string) (string, error) {
	return strconv.Quote(v), nil
}

func filterTrim(v string, _ []string) (string, error) {
	return strings.TrimSpace(v), nil
}

// filterPluralize applies a small set of English pluralization rules
// sufficient for generated identifiers (project names, directory names);
// it is not a linguistic pluralizer.
func filterPluralize(v string, _ []string) (string, error) {
	if v == "" {
		return v, nil
	}
	lower := strings.ToLower(v)
	switch {
	case strings.HasSuffix(lower, "y") && len(v) > 1 && !isVowel(rune(lower[len(lower)-2])):
		return v[:len(v)-1] + "ies", nil
	case strings.HasSuffix(lower, "s"), strings.HasSuffix(lower, "x"),
		strings.HasSuffix(lower, "ch"), strings.HasSuffix(lower, "sh"):
		return v + "es", nil
	default:
		return v + "s", nil
	}
}

func isVowel(r rune) bool {
	switch unicode.ToLower(r) {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// delimitCase lowercases v and inserts sep at word boundaries (camelCase
// humps, existing separators, and a digit that follows a letter).
func delimitCase(v string, sep rune) string {
	words := splitWords(v)
	lowered := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			lowered = append(lowered, strings.ToLower(w))
		}
	}
	return strings.Join(lowered, string(sep))
}

// splitWords breaks an identifier into words on camelCase humps, before a
// digit that follows a letter, and on any run of non-alphanumeric
// separators. A letter that follows a digit does not start a new word.
func splitWords(v string) []string {
	var words []string
	var cur strings.Builder
	runes := []rune(v)
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for i, r := range runes {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]):
			flush()
			cur.WriteRune(r)
		case i > 0 && unicode.IsDigit(r) && unicode.IsLetter(runes[i-1]):
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}
