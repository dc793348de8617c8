package steps

import (
	"context"

	"github.com/robotdad/recipe-tool/internal/rcontext"
	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/step"
)

type executeRecipeStep struct {
	deps             step.Deps
	recipePath       interface{}
	contextOverrides interface{}
}

// NewExecuteRecipe builds the execute_recipe step.
func NewExecuteRecipe(deps step.Deps, cfg map[string]interface{}) (step.Step, error) {
	recipePath, ok := cfg["recipe_path"]
	if !ok {
		return nil, rerrors.ConfigError("execute_recipe", "missing required field \"recipe_path\"")
	}
	return &executeRecipeStep{
		deps:             deps,
		recipePath:       recipePath,
		contextOverrides: cfg["context_overrides"],
	}, nil
}

// Execute renders the recipe reference and any context overrides, applies
// the overrides directly to the caller's Context (shared, not cloned),
// then dispatches through the Engine. Sub-recipe errors propagate
// unwrapped so the caller sees the real failure.
func (s *executeRecipeStep) Execute(ctx context.Context, rc *rcontext.Context) error {
	// Only a string reference (a path or inline JSON text) is template
	// material; an already-parsed recipe value is passed through as-is so
	// its own step configs render later, against the sub-recipe's Context
	// state, not the caller's.
	ref := s.recipePath
	if path, ok := s.recipePath.(string); ok {
		rendered, err := renderString(s.deps, rc, path)
		if err != nil {
			return err
		}
		ref = rendered
	}

	if s.contextOverrides != nil {
		overrides, err := renderAny(s.deps, rc, s.contextOverrides)
		if err != nil {
			return err
		}
		m, ok := overrides.(map[string]interface{})
		if !ok {
			return rerrors.ConfigError("execute_recipe", "context_overrides must be a mapping, got %T", overrides)
		}
		for k, v := range m {
			rc.Set(k, v)
		}
	}

	if s.deps.Logger != nil {
		s.deps.Logger.Info("entering sub-recipe", "recipe", ref)
	}
	err := s.deps.Engine.RunRecipe(ctx, rc, ref)
	if s.deps.Logger != nil {
		s.deps.Logger.Info("exiting sub-recipe", "recipe", ref, "error", err)
	}
	return err
}
