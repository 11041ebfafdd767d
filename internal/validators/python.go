package validators

import (
	"bytes"
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/novalym/velm-sub003/internal/heresy"
)

// PythonValidator parses staged .py/.pyw content under the Python grammar
// and rejects it if the resulting tree contains any ERROR node, the same
// technique the teacher's internal/world.PythonCodeParser uses to build a
// CodeElement tree -- here used only for its pass/fail signal.
type PythonValidator struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewPythonValidator returns a validator with its own sitter.Parser
// instance; sitter.Parser is not safe for concurrent use, and the bounded
// worker pool that runs Validate across staged files shares one Registry,
// so Validate holds mu while it parses.
func NewPythonValidator() *PythonValidator {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &PythonValidator{parser: p}
}

func (v *PythonValidator) Extensions() []string { return []string{".py", ".pyw"} }

func (v *PythonValidator) Validate(ctx context.Context, path string, content []byte) error {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil
	}
	v.mu.Lock()
	tree, err := v.parser.ParseCtx(ctx, nil, content)
	v.mu.Unlock()
	if err != nil {
		return heresy.New(heresy.KindSyntax, path, 0, 0, "python parse failed: %s", err.Error())
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return heresy.New(heresy.KindSyntax, path, int(root.StartPoint().Row)+1, 0,
			"python source does not parse under the target grammar")
	}
	return nil
}
