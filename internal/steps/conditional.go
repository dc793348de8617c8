package steps

import (
	"context"
	"strconv"
	"strings"

	"github.com/robotdad/recipe-tool/internal/rcontext"
	"github.com/robotdad/recipe-tool/internal/recipe"
	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/step"
)

type conditionalStep struct {
	deps      step.Deps
	condition interface{}
	ifTrue    interface{}
	ifFalse   interface{}
}

// NewConditional builds the conditional step.
func NewConditional(deps step.Deps, cfg map[string]interface{}) (step.Step, error) {
	condition, ok := cfg["condition"]
	if !ok {
		return nil, rerrors.ConfigError("conditional", "missing required field \"condition\"")
	}
	return &conditionalStep{
		deps:      deps,
		condition: condition,
		ifTrue:    cfg["if_true"],
		ifFalse:   cfg["if_false"],
	}, nil
}

func (s *conditionalStep) Execute(ctx context.Context, rc *rcontext.Context) error {
	rendered, err := renderString(s.deps, rc, s.condition)
	if err != nil {
		return err
	}

	result, err := evalCondition(rendered)
	if err != nil {
		return err
	}

	branch := s.ifFalse
	if result {
		branch = s.ifTrue
	}
	if branch == nil {
		return nil
	}

	fragment, err := recipe.FragmentSteps(branch)
	if err != nil {
		return rerrors.ConfigError("conditional", "invalid branch recipe fragment: %s", err)
	}
	return s.deps.Engine.Run(ctx, rc, fragment)
}

// isTruthy coerces a rendered condition string to a boolean, treating the
// empty string, "false", and "0" as false.
func isTruthy(s string) bool {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "", "false", "0":
		return false
	}
	if b, err := strconv.ParseBool(trimmed); err == nil {
		return b
	}
	return true
}
