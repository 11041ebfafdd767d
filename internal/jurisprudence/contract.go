// Package jurisprudence adjudicates variable values against the type
// contracts declared by a blueprint: the scalar signatures attached
// directly to a variable (str(min=3), enum("a","b"), int(min=0),
// List[int]) and the named %% contract record definitions those
// signatures may reference as a nested field type.
package jurisprudence

// Field is one member of a %% contract record, or the signature attached
// directly to a $$variable.
type Field struct {
	Name        string
	TypeName    string                 // lowercased: "str", "int", "enum", a contract name, ...
	Constraints map[string]interface{} // "min", "max", "pattern", "options", ...
	IsList      bool
	Optional    bool
	Default     interface{}
	Doc         string
}

// Contract is a named record definition introduced by `%% contract Name[(Parent)]`.
type Contract struct {
	Name   string
	Parent string // empty if none
	Fields []Field
}

// FieldByName returns the contract's own field named n, ignoring Parent
// (callers resolve inheritance via Registry.ResolvedFields).
func (c *Contract) FieldByName(n string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == n {
			return f, true
		}
	}
	return Field{}, false
}

// Registry holds every %% contract parsed for one rite, keyed by name.
type Registry struct {
	contracts map[string]*Contract
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{contracts: make(map[string]*Contract)}
}

// Register adds c, overwriting any prior contract of the same name.
func (r *Registry) Register(c *Contract) {
	r.contracts[c.Name] = c
}

// Get returns the contract named name, if registered.
func (r *Registry) Get(name string) (*Contract, bool) {
	c, ok := r.contracts[name]
	return c, ok
}

// Has reports whether name is a registered contract, used by the
// adjudicator to distinguish a nested-contract type from an unknown one.
func (r *Registry) Has(name string) bool {
	_, ok := r.contracts[name]
	return ok
}

// ResolvedFields returns name's own fields plus every ancestor's fields
// (ancestor fields first, so a child field of the same name shadows it),
// walking Parent chains up to a depth of 20 to guard against a cycle.
func (r *Registry) ResolvedFields(name string) ([]Field, error) {
	return r.resolvedFields(name, 0)
}

func (r *Registry) resolvedFields(name string, depth int) ([]Field, error) {
	if depth > 20 {
		return nil, errRecursionExceeded(name)
	}
	c, ok := r.contracts[name]
	if !ok {
		return nil, errUnknownContract(name)
	}
	var out []Field
	if c.Parent != "" {
		parentFields, err := r.resolvedFields(c.Parent, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, parentFields...)
	}
	seen := make(map[string]int, len(out))
	for i, f := range out {
		seen[f.Name] = i
	}
	for _, f := range c.Fields {
		if i, dup := seen[f.Name]; dup {
			out[i] = f
			continue
		}
		out = append(out, f)
	}
	return out, nil
}
