package steps

import (
	"github.com/robotdad/recipe-tool/internal/registry"
	"github.com/robotdad/recipe-tool/internal/step"
)

// RegisterAll wires every primitive step type into reg.
func RegisterAll(reg *registry.Registry) error {
	entries := []struct {
		name string
		ctor step.Constructor
	}{
		{"read_files", NewReadFiles},
		{"write_files", NewWriteFiles},
		{"set_context", NewSetContext},
		{"conditional", NewConditional},
		{"loop", NewLoop},
		{"parallel", NewParallel},
		{"execute_recipe", NewExecuteRecipe},
		{"llm_generate", NewLLMGenerate},
		{"mcp", NewMCP},
	}
	for _, entry := range entries {
		if err := reg.Register(entry.name, entry.ctor); err != nil {
			return err
		}
	}
	return nil
}
