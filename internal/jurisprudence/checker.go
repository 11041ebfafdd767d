package jurisprudence

// Checker adapts an Adjudicator to alchemist.ContractChecker: the
// Alchemist only ever hands it the already-stringified resolved value, so
// Check parses the field signature fresh and coerces raw into the
// signature's primitive type before adjudicating.
type Checker struct {
	adj *Adjudicator
}

// NewChecker returns a Checker backed by reg for nested contract lookups.
func NewChecker(reg *Registry) *Checker {
	return &Checker{adj: NewAdjudicator(reg)}
}

// Check implements alchemist.ContractChecker.
func (c *Checker) Check(signature, raw string) error {
	typeName, constraints, isList, err := ParseFieldSignature(signature)
	if err != nil {
		return err
	}
	field := Field{Name: "value", TypeName: typeName, Constraints: constraints, IsList: isList}
	return c.adj.AdjudicateValue(coerce(field, raw), field)
}

// coerce converts a raw substitution string into the Go value its field
// signature expects, best-effort; adjudicateScalar still re-validates it
// against constraints afterward.
func coerce(field Field, raw string) interface{} {
	switch field.TypeName {
	case "int", "integer":
		if n, ok := asInt(raw); ok {
			return n
		}
		return raw
	case "float", "number":
		if f, ok := asFloat(raw); ok {
			return f
		}
		return raw
	case "bool", "boolean":
		switch raw {
		case "true", "True":
			return true
		case "false", "False":
			return false
		}
		return raw
	default:
		return raw
	}
}
