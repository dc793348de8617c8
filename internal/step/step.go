// Package step defines the unit-of-work abstraction the registry
// constructs and the Executor drives: a Step is parameterized by a typed,
// already-validated configuration and runs against a Context.
package step

import (
	"context"

	"github.com/robotdad/recipe-tool/internal/llm"
	"github.com/robotdad/recipe-tool/internal/logging"
	"github.com/robotdad/recipe-tool/internal/mcpclient"
	"github.com/robotdad/recipe-tool/internal/rcontext"
	"github.com/robotdad/recipe-tool/internal/template"
)

// Step is a unit of work. Execute may suspend on I/O, LLM calls, or nested
// recipes, but must not spawn background work that outlives the call.
type Step interface {
	Execute(ctx context.Context, rc *rcontext.Context) error
}

// Descriptor is the {type, config} pair read from a recipe document.
// Config is the raw, not-yet-validated mapping; each step type's
// Constructor parses it through its own schema.
type Descriptor struct {
	Type   string
	Config map[string]interface{}
}

// Recipe is an ordered, possibly-empty sequence of descriptors.
type Recipe struct {
	Steps []Descriptor
}

// Engine is the recursive-execution surface steps depend on without
// importing the executor package directly (loop, parallel, execute_recipe
// all need to run a nested step sequence against some Context). The
// concrete implementation lives in package executor; steps receive it as
// a constructor argument so there is no import cycle.
type Engine interface {
	// Run executes the given descriptors in order against rc, stopping at
	// the first error.
	Run(ctx context.Context, rc *rcontext.Context, steps []Descriptor) error
	// RunRecipe loads and executes a recipe referenced by path, inline JSON
	// text, or an already-parsed value, against rc.
	RunRecipe(ctx context.Context, rc *rcontext.Context, recipeRef interface{}) error
}

// Constructor builds a Step from its raw config and logger/engine
// dependencies. Returning an error here is a config-validation failure.
type Constructor func(deps Deps, config map[string]interface{}) (Step, error)

// Deps bundles what every step constructor may need. Not every step uses
// every field (read_files needs none of Engine/LLM/MCP, for instance).
type Deps struct {
	Logger   *logging.Logger
	Engine   Engine
	LLM      llm.Facade
	MCP      mcpclient.Dialer
	Renderer *template.Renderer
}
