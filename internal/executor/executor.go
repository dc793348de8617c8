// Package executor implements the concrete step.Engine that drives recipe
// execution: resolving each step descriptor through a
// registry.Registry, rendering its config, and running it against a
// Context. execute_recipe, loop, and parallel all recurse back through
// this same Engine, so it must be re-entrant.
package executor

import (
	"context"
	"encoding/json"
	"os"

	"github.com/robotdad/recipe-tool/internal/logging"
	"github.com/robotdad/recipe-tool/internal/rcontext"
	"github.com/robotdad/recipe-tool/internal/recipe"
	"github.com/robotdad/recipe-tool/internal/registry"
	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/step"
)

// Executor resolves and runs step descriptors against a Context. It
// implements step.Engine so steps that recurse (loop, parallel,
// conditional, execute_recipe) can dispatch back through the same object
// without importing this package.
type Executor struct {
	registry *registry.Registry
	depsFn   func() step.Deps
	log      *logging.Logger
}

// New builds an Executor over reg. depsFn is called once per step built
// to produce the Deps handed to that step's constructor; it must
// return a Deps whose Engine field is this same Executor (callers
// typically build the Executor first, then close depsFn over it).
func New(reg *registry.Registry, log *logging.Logger, depsFn func() step.Deps) *Executor {
	return &Executor{registry: reg, depsFn: depsFn, log: log}
}

// Run executes descs in order against rc, aborting at the first error
func (e *Executor) Run(ctx context.Context, rc *rcontext.Context, descs []step.Descriptor) error {
	for _, desc := range descs {
		s, err := e.registry.Build(e.depsFn(), desc)
		if err != nil {
			return err
		}
		if err := s.Execute(ctx, rc); err != nil {
			return rerrors.Wrap(desc.Type, err)
		}
	}
	return nil
}

// RunRecipe loads recipeRef, a filesystem path, a JSON string, an
// already-parsed value, or a step.Recipe, and runs it against rc.
func (e *Executor) RunRecipe(ctx context.Context, rc *rcontext.Context, recipeRef interface{}) error {
	r, err := Load(recipeRef)
	if err != nil {
		return err
	}
	return e.Run(ctx, rc, r.Steps)
}

// Load resolves recipeRef into a parsed Recipe without running it.
func Load(recipeRef interface{}) (step.Recipe, error) {
	switch v := recipeRef.(type) {
	case step.Recipe:
		return v, nil
	case string:
		return loadFromString(v)
	case []byte:
		return recipe.Parse(v)
	case map[string]interface{}, []interface{}:
		return recipe.FromValue(v)
	default:
		return step.Recipe{}, rerrors.InvalidRecipe("unsupported recipe reference type %T", recipeRef)
	}
}

// loadFromString treats s as a filesystem path if it names an existing
// file, otherwise as inline JSON text.
func loadFromString(s string) (step.Recipe, error) {
	if info, statErr := os.Stat(s); statErr == nil && !info.IsDir() {
		data, err := os.ReadFile(s)
		if err != nil {
			return step.Recipe{}, rerrors.IOError(s, err)
		}
		return recipe.Parse(data)
	}

	var probe interface{}
	if err := json.Unmarshal([]byte(s), &probe); err != nil {
		return step.Recipe{}, rerrors.FileNotFound(s, err)
	}
	return recipe.FromValue(probe)
}
