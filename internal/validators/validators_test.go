package validators

import (
	"context"
	"testing"
)

func TestPythonValidatorAcceptsValidSource(t *testing.T) {
	v := NewPythonValidator()
	err := v.Validate(context.Background(), "a.py", []byte("def f(x):\n    return x + 1\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPythonValidatorRejectsBrokenSource(t *testing.T) {
	v := NewPythonValidator()
	err := v.Validate(context.Background(), "a.py", []byte("def f(x:\n    return x +\n"))
	if err == nil {
		t.Fatal("expected a syntax error for malformed python")
	}
}

func TestPythonValidatorAllowsEmpty(t *testing.T) {
	v := NewPythonValidator()
	if err := v.Validate(context.Background(), "a.py", []byte("   \n")); err != nil {
		t.Fatalf("unexpected error for blank file: %v", err)
	}
}

func TestJSONValidatorAcceptsValid(t *testing.T) {
	v := NewJSONValidator()
	if err := v.Validate(context.Background(), "a.json", []byte(`{"a": 1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJSONValidatorAllowsEmpty(t *testing.T) {
	v := NewJSONValidator()
	if err := v.Validate(context.Background(), "a.json", []byte("")); err != nil {
		t.Fatalf("unexpected error for empty file: %v", err)
	}
}

func TestJSONValidatorRejectsBroken(t *testing.T) {
	v := NewJSONValidator()
	err := v.Validate(context.Background(), "a.json", []byte(`{"a": }`))
	if err == nil {
		t.Fatal("expected an error for malformed json")
	}
}

func TestYAMLValidatorAcceptsValid(t *testing.T) {
	v := NewYAMLValidator()
	if err := v.Validate(context.Background(), "a.yaml", []byte("a: 1\nb:\n  - x\n  - y\n")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestYAMLValidatorRejectsBroken(t *testing.T) {
	v := NewYAMLValidator()
	err := v.Validate(context.Background(), "a.yaml", []byte("a: [1, 2\n"))
	if err == nil {
		t.Fatal("expected an error for malformed yaml")
	}
}

func TestRegistryDispatchesBySuffix(t *testing.T) {
	r := NewRegistry()
	if h := r.Validate(context.Background(), "pkg.json", []byte(`{}`)); h != nil {
		t.Fatalf("unexpected heresy: %v", h)
	}
	if h := r.Validate(context.Background(), "pkg.json", []byte(`{`)); h == nil {
		t.Fatal("expected a heresy for malformed json")
	}
	if h := r.Validate(context.Background(), "README.md", []byte("anything at all")); h != nil {
		t.Fatalf("unexpected heresy for an unregistered extension: %v", h)
	}
}
