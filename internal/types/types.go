// Package types holds the shared data model produced and consumed across
// the blueprint pipeline (parser, weaver, alchemist, materializer, ledger,
// chronicle). Centralizing these shapes here keeps those packages from
// importing one another just to pass a BlueprintItem or a WriteResult
// around.
package types

import "fmt"

// Kind classifies a single BlueprintItem.
type Kind string

const (
	KindForm       Kind = "form"       // a file or directory to materialize
	KindVariable   Kind = "variable"   // $$name = expr
	KindLogic      Kind = "logic"      // @if/@elif/@else/@endif gate
	KindTrait      Kind = "trait"      // %% trait: block
	KindEdict      Kind = "edict"      // Symphony action (>>)
	KindVoid       Kind = "void"       // blank/comment line, carries no plan content
	KindPostRun    Kind = "post_run"   // %% post-run: block
	KindOnHeresy   Kind = "on_heresy"  // %% on-heresy: block
	KindOnUndo     Kind = "on_undo"    // %% on-undo: block
	KindContract   Kind = "contract"   // a type contract declaration
	KindBlockStart Kind = "block_start"
)

// MutationOp describes how a Form item's content combines with an existing
// target file. Define is the zero value and the default when a blueprint
// line carries no explicit operator.
type MutationOp int

const (
	Define MutationOp = iota
	Append
	Prepend
	Subtract
	Transfigure
)

// String renders the mutation operator's blueprint token.
func (m MutationOp) String() string {
	switch m {
	case Append:
		return "+="
	case Prepend:
		return "^="
	case Subtract:
		return "-="
	case Transfigure:
		return "~="
	default:
		return "::"
	}
}

// ParseMutationOp maps a blueprint token to its MutationOp, defaulting to
// Define for an empty token or "::".
func ParseMutationOp(token string) (MutationOp, error) {
	switch token {
	case "", "::":
		return Define, nil
	case "+=":
		return Append, nil
	case "^=":
		return Prepend, nil
	case "-=":
		return Subtract, nil
	case "~=":
		return Transfigure, nil
	default:
		return Define, fmt.Errorf("unknown mutation operator %q", token)
	}
}

// BlueprintItem is a single unit of structural intent parsed from a
// scripture (blueprint file). The AST Weaver consumes a tree of these and
// emits a flat OrderedPlan; everything downstream operates on BlueprintItem
// values rather than raw source lines.
type BlueprintItem struct {
	// Path is the relative path (semantic, not yet transmuted) or a
	// sentinel name such as "$$var", "@if", "EDICT:...".
	Path  string
	Kind  Kind
	IsDir bool

	// Content is optional text; may contain {{ }} template expressions.
	Content string

	// SeedPath, if set, names an external file whose bytes are copied
	// verbatim instead of using Content.
	SeedPath string

	// Permissions is an optional octal string ("755") or semantic name
	// ("executable" -> 755, "secret" -> 600); empty means the platform
	// default applies.
	Permissions string

	MutationOp MutationOp

	// AnchorHash, if set, is an 8-hex prefix that the target file's
	// current content hash must match before this mutation applies.
	AnchorHash string

	// OriginalIndent is the column the item was parsed at; structural
	// parent/child relationships are inferred from indentation depth.
	OriginalIndent int

	// LineNum is 1-based, for diagnostics.
	LineNum int

	// BlueprintOrigin names the scripture (file) that contributed this
	// item, preserved through @include and trait splicing for
	// inheritance-chain diagnostics.
	BlueprintOrigin string

	IsSymlink     bool
	SymlinkTarget string
	IsBinary      bool

	// LogicTag distinguishes a KindLogic item's role: "if", "elif", "else",
	// or "endif". Content holds the gate's condition expression (empty for
	// "else" and "endif").
	LogicTag string

	// TraitName/TraitArgs record a `%% use Name k=v` splice before the
	// Weaver expands it; empty on every other Kind.
	TraitName string
	TraitArgs map[string]string

	// Children holds nested items for directory/logic/trait nodes before
	// the AST Weaver flattens the tree into an OrderedPlan. Leaf Form
	// items have no children.
	Children []*BlueprintItem
}

// IsEmpty reports whether a Form item would materialize as an empty file:
// no Content, no SeedPath, and not a directory.
func (b *BlueprintItem) IsEmpty() bool {
	return !b.IsDir && b.Content == "" && b.SeedPath == ""
}

// VariableDossier tracks the required, defined, and defaulted variable
// names discovered while parsing a blueprint, plus any declared type
// contracts. The Alchemist's discover_variables feeds Required; $$name
// assignments and @def feed Defined and Defaults.
type VariableDossier struct {
	Required  map[string]struct{}
	Defined   map[string]struct{}
	Defaults  map[string]string // name -> literal or expression to evaluate
	Contracts map[string]string // name -> type expression, e.g. str(min=3)
}

// NewVariableDossier returns an initialized, empty dossier.
func NewVariableDossier() *VariableDossier {
	return &VariableDossier{
		Required:  make(map[string]struct{}),
		Defined:   make(map[string]struct{}),
		Defaults:  make(map[string]string),
		Contracts: make(map[string]string),
	}
}

// builtinWhitelist names variables that are always resolvable without a
// $$ definition anywhere in the blueprint (cwd, now, year, and friends).
var builtinWhitelist = map[string]struct{}{
	"cwd":  {},
	"now":  {},
	"year": {},
	"user": {},
	"host": {},
}

// IsBuiltin reports whether name is satisfied implicitly by the Alchemist's
// runtime context rather than requiring a $$ definition.
func IsBuiltin(name string) bool {
	_, ok := builtinWhitelist[name]
	return ok
}

// Missing returns the variables in Required that are neither Defined nor
// built in -- the set a rite must be supplied before it can run.
func (d *VariableDossier) Missing() []string {
	var missing []string
	for name := range d.Required {
		if _, defined := d.Defined[name]; defined {
			continue
		}
		if IsBuiltin(name) {
			continue
		}
		missing = append(missing, name)
	}
	return missing
}

// AddRequired records a variable reference found during a transmute or
// discover_variables pass.
func (d *VariableDossier) AddRequired(name string) {
	d.Required[name] = struct{}{}
}

// AddDefined records a $$name definition or @def.
func (d *VariableDossier) AddDefined(name string) {
	d.Defined[name] = struct{}{}
}
