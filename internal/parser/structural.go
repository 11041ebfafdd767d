package parser

import (
	"strings"

	"github.com/novalym/velm-sub003/internal/heresy"
	"github.com/novalym/velm-sub003/internal/types"
)

// namedPermissions maps the semantic permission suffixes to octal modes.
var namedPermissions = map[string]string{
	"executable": "755",
	"readonly":   "444",
	"secret":     "600",
	"public":     "644",
}

// suspiciousVerbs catches a shell command that leaked past block
// consumption (e.g. an unindented post-run line) before it is
// misinterpreted as a file path.
var suspiciousVerbs = map[string]bool{
	"echo": true, "rm": true, "git": true, "npm": true, "pip": true,
	"docker": true, "python": true, "node": true, "cd": true, "ls": true,
}

// conductForm parses a path token and its structural suffix from the
// current raw line, consuming a following indented or explicit block when
// the suffix calls for one.
func (p *Parser) conductForm(st *state, indent int) *heresy.Heresy {
	raw := strings.TrimRight(st.lines[st.i], " \t")
	trimmed := strings.TrimSpace(raw)
	lineNum := st.i + 1

	// A line ending in a lone ':' (not '::', the explicit-block/inline-
	// literal sigil) opens an indented content block; the colon is not
	// part of the path.
	isBlockOpen := strings.HasSuffix(trimmed, ":") && !strings.HasSuffix(trimmed, "::")
	body := trimmed
	if isBlockOpen {
		body = strings.TrimSuffix(trimmed, ":")
	}

	path, rest := splitFirstWord(body)
	if h := checkParserLeak(p.origin, lineNum, path, rest); h != nil {
		st.i++
		return h
	}

	if strings.HasSuffix(path, "/") && rest == "" {
		st.items = append(st.items, &types.BlueprintItem{
			Path:            strings.TrimSuffix(path, "/"),
			Kind:            types.KindForm,
			IsDir:           true,
			OriginalIndent:  indent,
			LineNum:         lineNum,
			BlueprintOrigin: p.origin,
		})
		st.i++
		return nil
	}

	anchorHash, rest := extractPrefixedAnnotation(rest, "@hash:")
	permission, rest := extractPermissionAnnotation(rest)
	if named, ok := namedPermissions[permission]; ok {
		permission = named
	}

	item := &types.BlueprintItem{
		Path:            path,
		Kind:            types.KindForm,
		AnchorHash:      strings.TrimPrefix(anchorHash, "@hash:"),
		Permissions:     permission,
		OriginalIndent:  indent,
		LineNum:         lineNum,
		BlueprintOrigin: p.origin,
	}

	rest = strings.TrimSpace(rest)
	switch {
	case isBlockOpen && rest == "":
		consumer := &blockConsumer{lines: st.lines}
		content, end := consumer.consumeIndentedBlock(st.i+1, indent)
		item.Content = content
		st.i = end

	case rest == "":
		// bare path: an empty file.
		st.i++

	case strings.HasPrefix(rest, "::"):
		body := strings.TrimSpace(strings.TrimPrefix(rest, "::"))
		if body == `"""` || body == `'''` {
			consumer := &blockConsumer{lines: st.lines}
			content, end := consumer.consumeExplicitBlock(st.i+1, body)
			item.Content = content
			st.i = end
		} else {
			lit, err := unquoteLiteral(body)
			if err != nil {
				st.i++
				return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "%s", err.Error())
			}
			item.Content = lit
			st.i++
		}

	case strings.HasPrefix(rest, "<<"):
		item.SeedPath = strings.TrimSpace(strings.TrimPrefix(rest, "<<"))
		st.i++

	case strings.HasPrefix(rest, "->"):
		item.IsSymlink = true
		item.SymlinkTarget = strings.TrimSpace(strings.TrimPrefix(rest, "->"))
		st.i++

	case hasMutationPrefix(rest):
		token, content := splitFirstWord(rest)
		op, err := types.ParseMutationOp(token)
		if err != nil {
			st.i++
			return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "%s", err.Error())
		}
		item.MutationOp = op
		item.Content = content
		st.i++

	default:
		st.i++
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "unrecognized form suffix %q for path %q", rest, path)
	}

	st.items = append(st.items, item)
	discoverInto(st.dossier, item.Path)
	discoverInto(st.dossier, item.Content)
	return nil
}

// conductFormText parses the inline `path :: "content"` token that follows
// `@if expr ->` on a single source line; it never spans multiple lines.
func (p *Parser) conductFormText(st *state, indent, lineNum int, text string) *heresy.Heresy {
	path, rest := splitFirstWord(strings.TrimSpace(text))
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "::") {
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "inline @if form requires ' :: \"content\"'")
	}
	lit, err := unquoteLiteral(strings.TrimSpace(strings.TrimPrefix(rest, "::")))
	if err != nil {
		return heresy.New(heresy.KindParse, p.origin, lineNum, 0, "%s", err.Error())
	}
	st.items = append(st.items, &types.BlueprintItem{
		Path:            path,
		Kind:            types.KindForm,
		Content:         lit,
		OriginalIndent:  indent,
		LineNum:         lineNum,
		BlueprintOrigin: p.origin,
	})
	discoverInto(st.dossier, lit)
	return nil
}

func hasMutationPrefix(s string) bool {
	for _, op := range []string{"+=", "^=", "-=", "~="} {
		if strings.HasPrefix(s, op) {
			return true
		}
	}
	return false
}

// extractPrefixedAnnotation removes the first whitespace-delimited token
// starting with marker (e.g. "@hash:abcd1234", one token, colon attached)
// and returns it alongside the remainder of s. Quoted spans are treated as
// a single field so annotations are never mistaken for literal content.
func extractPrefixedAnnotation(s, marker string) (value, remainder string) {
	fields := fieldsRespectingQuotes(s)
	var kept []string
	for _, f := range fields {
		if value == "" && strings.HasPrefix(f, marker) {
			value = f
			continue
		}
		kept = append(kept, f)
	}
	return value, strings.Join(kept, " ")
}

// extractPermissionAnnotation removes a two-token "%% perm" suffix (the
// literal "%%" token followed by an octal mode or semantic name) and
// returns the permission token alongside the remainder of s.
func extractPermissionAnnotation(s string) (value, remainder string) {
	fields := fieldsRespectingQuotes(s)
	var kept []string
	for i := 0; i < len(fields); i++ {
		if value == "" && fields[i] == "%%" && i+1 < len(fields) {
			value = fields[i+1]
			i++
			continue
		}
		kept = append(kept, fields[i])
	}
	return value, strings.Join(kept, " ")
}

// fieldsRespectingQuotes splits s on whitespace, keeping a "..."/'...' span
// as one field even if it contains spaces.
func fieldsRespectingQuotes(s string) []string {
	var out []string
	var cur strings.Builder
	inQuote := rune(0)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
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
		case r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// unquoteLiteral strips a single matching pair of double or single quotes,
// erroring if the literal is unterminated.
func unquoteLiteral(s string) (string, error) {
	if len(s) < 2 {
		return "", errUnterminatedLiteral(s)
	}
	q := s[0]
	if q != '"' && q != '\'' {
		return "", errUnterminatedLiteral(s)
	}
	if s[len(s)-1] != q {
		return "", errUnterminatedLiteral(s)
	}
	return s[1 : len(s)-1], nil
}

func errUnterminatedLiteral(s string) error {
	return &literalError{s}
}

type literalError struct{ raw string }

func (e *literalError) Error() string {
	return "unterminated or malformed string literal: " + e.raw
}

// checkParserLeak catches a shell-command-looking line that fell through
// to form parsing, almost always a sign an indented block was not
// correctly consumed upstream.
func checkParserLeak(origin string, lineNum int, path, rest string) *heresy.Heresy {
	if path == "" {
		return nil
	}
	verb, _ := splitFirstWord(path)
	if suspiciousVerbs[verb] && rest != "" {
		return heresy.New(heresy.KindParse, origin, lineNum, 0,
			"%q looks like a shell command misread as a file path; check a preceding block's indentation", path+" "+rest)
	}
	return nil
}
