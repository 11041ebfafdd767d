package validators

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/novalym/velm-sub003/internal/heresy"
)

// JSONValidator parses staged .json content with the standard library's
// canonical decoder; an empty file is explicitly allowed.
type JSONValidator struct{}

func NewJSONValidator() *JSONValidator { return &JSONValidator{} }

func (v *JSONValidator) Extensions() []string { return []string{".json"} }

func (v *JSONValidator) Validate(ctx context.Context, path string, content []byte) error {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil
	}
	var dec json.RawMessage
	if err := json.Unmarshal(content, &dec); err != nil {
		syntaxErr, ok := asSyntaxError(err)
		if !ok {
			return heresy.New(heresy.KindSyntax, path, 0, 0, "json: %s", err.Error())
		}
		line, col := offsetToLineCol(content, int(syntaxErr.Offset))
		return heresy.New(heresy.KindSyntax, path, line, col, "json: %s", syntaxErr.Error())
	}
	return nil
}

func asSyntaxError(err error) (*json.SyntaxError, bool) {
	se, ok := err.(*json.SyntaxError)
	return se, ok
}

// offsetToLineCol converts a byte offset into content to a 1-based
// line/column pair, for naming precisely where a staging validator's
// grammar rejected a generated file.
func offsetToLineCol(content []byte, offset int) (line, col int) {
	line, col = 1, 1
	if offset > len(content) {
		offset = len(content)
	}
	for _, b := range content[:offset] {
		if b == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
