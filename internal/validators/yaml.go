package validators

import (
	"bytes"
	"context"

	"gopkg.in/yaml.v3"

	"github.com/novalym/velm-sub003/internal/heresy"
)

// YAMLValidator parses staged .yaml/.yml content with gopkg.in/yaml.v3.
type YAMLValidator struct{}

func NewYAMLValidator() *YAMLValidator { return &YAMLValidator{} }

func (v *YAMLValidator) Extensions() []string { return []string{".yaml", ".yml"} }

func (v *YAMLValidator) Validate(ctx context.Context, path string, content []byte) error {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal(content, &node); err != nil {
		if te, ok := err.(*yaml.TypeError); ok {
			return heresy.New(heresy.KindSyntax, path, 0, 0, "yaml: %s", te.Error())
		}
		return heresy.New(heresy.KindSyntax, path, 0, 0, "yaml: %s", err.Error())
	}
	return nil
}
