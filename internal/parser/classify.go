package parser

import "strings"

// lineKind is the coarse classification of a trimmed, non-blank,
// non-comment line, decided purely from its leading token.
type lineKind int

const (
	lineUnknown lineKind = iota
	lineVariable
	lineLogic
	lineInclude
	lineDef
	lineDiagnostic
	lineStateTrait
	lineStateUse
	lineStateContract
	lineStatePostRun
	lineStateOnHeresy
	lineStateOnUndo
	lineForm
)

// classifyLine inspects trimmed's leading token and routes it to a kind.
// trimmed must already have leading/trailing whitespace removed and must
// not be blank or a comment.
func classifyLine(trimmed string) lineKind {
	switch {
	case strings.HasPrefix(trimmed, "$$"):
		return lineVariable

	case strings.HasPrefix(trimmed, "@if"), strings.HasPrefix(trimmed, "@elif"),
		strings.HasPrefix(trimmed, "@else"), strings.HasPrefix(trimmed, "@endif"):
		return lineLogic

	case strings.HasPrefix(trimmed, "@include"):
		return lineInclude

	case strings.HasPrefix(trimmed, "@def"):
		return lineDef

	case strings.HasPrefix(trimmed, "@error"), strings.HasPrefix(trimmed, "@warn"),
		strings.HasPrefix(trimmed, "@print"):
		return lineDiagnostic

	case strings.HasPrefix(trimmed, "%%"):
		return classifyStateLine(trimmed)

	case strings.HasPrefix(trimmed, "@"):
		return lineUnknown // an @-directive not in the table; UnknownDirectiveHeresy

	default:
		return lineForm
	}
}

func classifyStateLine(trimmed string) lineKind {
	body := strings.TrimSpace(strings.TrimPrefix(trimmed, "%%"))
	switch {
	case strings.HasPrefix(body, "trait "):
		return lineStateTrait
	case strings.HasPrefix(body, "use "):
		return lineStateUse
	case strings.HasPrefix(body, "contract"):
		return lineStateContract
	case strings.HasPrefix(body, "post-run"):
		return lineStatePostRun
	case strings.HasPrefix(body, "on-heresy"):
		return lineStateOnHeresy
	case strings.HasPrefix(body, "on-undo"):
		return lineStateOnUndo
	default:
		return lineUnknown
	}
}

// isGnosticBarrier reports whether trimmed starts a new directive, variable,
// or state block -- the one rule that ends an indented content block
// regardless of the line's indentation, preventing shell commands in a
// post-run block from being misread as file paths.
func isGnosticBarrier(trimmed string) bool {
	return strings.HasPrefix(trimmed, "@") ||
		strings.HasPrefix(trimmed, "$$") ||
		strings.HasPrefix(trimmed, "%%")
}
