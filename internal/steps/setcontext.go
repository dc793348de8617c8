package steps

import (
	"context"

	"github.com/robotdad/recipe-tool/internal/rcontext"
	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/step"
)

const maxNestedRenderPasses = 10

type setContextStep struct {
	deps       step.Deps
	key        interface{}
	value      interface{}
	nested     bool
	ifExists   string
}

// NewSetContext builds the set_context step.
func NewSetContext(deps step.Deps, cfg map[string]interface{}) (step.Step, error) {
	key, ok := cfg["key"]
	if !ok {
		return nil, rerrors.ConfigError("set_context", "missing required field \"key\"")
	}
	ifExists, _ := configString(cfg, "if_exists")
	if ifExists == "" {
		ifExists = "overwrite"
	}
	if ifExists != "overwrite" && ifExists != "merge" {
		return nil, rerrors.ConfigError("set_context", "if_exists must be \"overwrite\" or \"merge\", got %q", ifExists)
	}
	return &setContextStep{
		deps:     deps,
		key:      key,
		value:    cfg["value"],
		nested:   configBool(cfg, "nested_render", false),
		ifExists: ifExists,
	}, nil
}

func (s *setContextStep) Execute(ctx context.Context, rc *rcontext.Context) error {
	key, err := renderString(s.deps, rc, s.key)
	if err != nil {
		return err
	}

	rendered, err := renderAny(s.deps, rc, s.value)
	if err != nil {
		return err
	}

	if s.nested {
		rendered, err = s.renderToFixedPoint(rc, rendered)
		if err != nil {
			return err
		}
	}

	if s.ifExists == "merge" && rc.Has(key) {
		rendered = mergeValue(rc.Get(key, nil), rendered)
	}

	rc.Set(key, rendered)
	return nil
}

// renderToFixedPoint re-renders a string result until it stops changing or
// a bounded iteration cap is hit.
func (s *setContextStep) renderToFixedPoint(rc *rcontext.Context, v interface{}) (interface{}, error) {
	str, ok := v.(string)
	if !ok {
		return v, nil
	}
	for i := 0; i < maxNestedRenderPasses; i++ {
		next, err := s.deps.Renderer.Render(str, bindings(rc))
		if err != nil {
			return nil, err
		}
		if next == str {
			return next, nil
		}
		str = next
	}
	return str, nil
}

// mergeValue combines an existing artifact with an incoming one for
// if_exists = merge: strings concatenate, sequences append, mappings
// shallow-merge with the new side winning, and any type mismatch wraps
// both values in a two-element sequence.
func mergeValue(existing, incoming interface{}) interface{} {
	switch e := existing.(type) {
	case string:
		if n, ok := incoming.(string); ok {
			return e + n
		}
	case []interface{}:
		if n, ok := incoming.([]interface{}); ok {
			return append(append([]interface{}{}, e...), n...)
		}
		return append(append([]interface{}{}, e...), incoming)
	case map[string]interface{}:
		if n, ok := incoming.(map[string]interface{}); ok {
			out := make(map[string]interface{}, len(e)+len(n))
			for k, v := range e {
				out[k] = v
			}
			for k, v := range n {
				out[k] = v
			}
			return out
		}
	}
	return []interface{}{existing, incoming}
}
