package parser

import "testing"

func TestClassifyLineVariants(t *testing.T) {
	cases := map[string]lineKind{
		"$$name = 1":          lineVariable,
		"@if x":                lineLogic,
		"@elif y":              lineLogic,
		"@else":                lineLogic,
		"@endif":               lineLogic,
		"@include \"a.bp\"":    lineInclude,
		"@def x = 1":           lineDef,
		"@error \"boom\"":      lineDiagnostic,
		"@warn \"careful\"":    lineDiagnostic,
		"@print \"hi\"":        lineDiagnostic,
		"%% trait T = \"t\"":   lineStateTrait,
		"%% use T":             lineStateUse,
		"%% contract C:":       lineStateContract,
		"%% post-run:":         lineStatePostRun,
		"%% on-heresy:":        lineStateOnHeresy,
		"%% on-undo:":          lineStateOnUndo,
		"@bogus":                lineUnknown,
		"src/main.go":           lineForm,
	}
	for line, want := range cases {
		if got := classifyLine(line); got != want {
			t.Errorf("classifyLine(%q) = %v, want %v", line, got, want)
		}
	}
}

func TestIsGnosticBarrier(t *testing.T) {
	for _, s := range []string{"@if x", "$$name = 1", "%% trait T = \"t\""} {
		if !isGnosticBarrier(s) {
			t.Errorf("isGnosticBarrier(%q) = false, want true", s)
		}
	}
	if isGnosticBarrier("plain/path.txt") {
		t.Error("isGnosticBarrier(plain path) = true, want false")
	}
}
