package steps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotdad/recipe-tool/internal/rcontext"
	"github.com/robotdad/recipe-tool/internal/registry"
	"github.com/robotdad/recipe-tool/internal/step"
)

func executeRecipeRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register("set_context", NewSetContext))
	require.NoError(t, reg.Register("execute_recipe", NewExecuteRecipe))
	return reg
}

func TestExecuteRecipeSharesParentContext(t *testing.T) {
	reg := executeRecipeRegistry(t)
	eng := newTestEngine(reg)
	rc := rcontext.New(nil)

	subRecipe := map[string]interface{}{
		"steps": []interface{}{
			map[string]interface{}{"type": "set_context", "config": map[string]interface{}{"key": "from_sub", "value": "hi"}},
		},
	}

	deps := step.Deps{Renderer: testDeps().Renderer, Engine: eng}
	s, err := NewExecuteRecipe(deps, map[string]interface{}{"recipe_path": subRecipe})
	require.NoError(t, err)
	require.NoError(t, s.Execute(context.Background(), rc))
	assert.Equal(t, "hi", rc.Get("from_sub", nil))
}

func TestExecuteRecipeAppliesContextOverrides(t *testing.T) {
	reg := executeRecipeRegistry(t)
	eng := newTestEngine(reg)
	rc := rcontext.New(nil)
	rc.Set("name", "original")

	subRecipe := map[string]interface{}{
		"steps": []interface{}{
			map[string]interface{}{"type": "set_context", "config": map[string]interface{}{"key": "echoed", "value": "{{name}}"}},
		},
	}

	deps := step.Deps{Renderer: testDeps().Renderer, Engine: eng}
	s, err := NewExecuteRecipe(deps, map[string]interface{}{
		"recipe_path":       subRecipe,
		"context_overrides": map[string]interface{}{"name": "overridden"},
	})
	require.NoError(t, err)
	require.NoError(t, s.Execute(context.Background(), rc))
	assert.Equal(t, "overridden", rc.Get("name", nil))
	assert.Equal(t, "overridden", rc.Get("echoed", nil))
}

func TestExecuteRecipePropagatesSubRecipeErrors(t *testing.T) {
	reg := executeRecipeRegistry(t)
	eng := newTestEngine(reg)
	rc := rcontext.New(nil)

	subRecipe := map[string]interface{}{
		"steps": []interface{}{
			map[string]interface{}{"type": "set_context", "config": map[string]interface{}{"value": "missing-key"}},
		},
	}

	deps := step.Deps{Renderer: testDeps().Renderer, Engine: eng}
	s, err := NewExecuteRecipe(deps, map[string]interface{}{"recipe_path": subRecipe})
	require.NoError(t, err)
	assert.Error(t, s.Execute(context.Background(), rc))
}

func TestExecuteRecipeRejectsNonMappingOverrides(t *testing.T) {
	reg := executeRecipeRegistry(t)
	eng := newTestEngine(reg)
	rc := rcontext.New(nil)

	subRecipe := map[string]interface{}{"steps": []interface{}{}}

	deps := step.Deps{Renderer: testDeps().Renderer, Engine: eng}
	s, err := NewExecuteRecipe(deps, map[string]interface{}{
		"recipe_path":       subRecipe,
		"context_overrides": "not-a-mapping",
	})
	require.NoError(t, err)
	assert.Error(t, s.Execute(context.Background(), rc))
}
