// Package validators implements the built-in staging validators: the
// Validate phase of a transaction runs each validator whose registered
// suffix matches a staged path, and any failure becomes a SyntaxHeresy
// naming the path (and, where the grammar reports one, the line).
package validators

import (
	"context"
	"strings"

	"github.com/novalym/velm-sub003/internal/heresy"
	"github.com/novalym/velm-sub003/internal/types"
)

// Registry dispatches a staged path to the Validator registered for its
// suffix, if any.
type Registry struct {
	bySuffix map[string]types.Validator
}

// NewRegistry returns a Registry pre-populated with the built-in
// validators: .py (tree-sitter grammar), .json, and .yaml/.yml.
func NewRegistry() *Registry {
	r := &Registry{bySuffix: make(map[string]types.Validator)}
	r.Register(NewPythonValidator())
	r.Register(NewJSONValidator())
	r.Register(NewYAMLValidator())
	return r
}

// Register adds v under every extension it declares, overwriting any
// validator already registered for that extension.
func (r *Registry) Register(v types.Validator) {
	for _, ext := range v.Extensions() {
		r.bySuffix[strings.ToLower(ext)] = v
	}
}

// Lookup returns the validator registered for path's extension, if any.
func (r *Registry) Lookup(path string) (types.Validator, bool) {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return nil, false
	}
	v, ok := r.bySuffix[strings.ToLower(path[idx:])]
	return v, ok
}

// Validate runs path's registered validator against content, if one is
// registered; paths with no registered validator always pass. A failure
// is wrapped as a KindSyntax heresy naming path.
func (r *Registry) Validate(ctx context.Context, path string, content []byte) *heresy.Heresy {
	v, ok := r.Lookup(path)
	if !ok {
		return nil
	}
	if err := v.Validate(ctx, path, content); err != nil {
		if h, ok := err.(*heresy.Heresy); ok {
			return h
		}
		return heresy.New(heresy.KindSyntax, path, 0, 0, "%s", err.Error())
	}
	return nil
}
