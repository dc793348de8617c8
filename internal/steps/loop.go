package steps

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robotdad/recipe-tool/internal/concurrency"
	"github.com/robotdad/recipe-tool/internal/rcontext"
	"github.com/robotdad/recipe-tool/internal/recipe"
	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/step"
)

type loopStep struct {
	deps           step.Deps
	items          interface{}
	itemKey        interface{}
	maxConcurrency int
	delay          time.Duration
	substeps       []step.Descriptor
	resultKey      interface{}
	failFast       bool
}

// NewLoop builds the loop step.
func NewLoop(deps step.Deps, cfg map[string]interface{}) (step.Step, error) {
	items, ok := cfg["items"]
	if !ok {
		return nil, rerrors.ConfigError("loop", "missing required field \"items\"")
	}
	itemKey, ok := cfg["item_key"]
	if !ok {
		return nil, rerrors.ConfigError("loop", "missing required field \"item_key\"")
	}
	resultKey, ok := cfg["result_key"]
	if !ok {
		return nil, rerrors.ConfigError("loop", "missing required field \"result_key\"")
	}
	rawSubsteps, ok := cfg["substeps"]
	if !ok {
		return nil, rerrors.ConfigError("loop", "missing required field \"substeps\"")
	}
	substeps, err := recipe.FragmentSteps(rawSubsteps)
	if err != nil {
		return nil, rerrors.ConfigError("loop", "invalid substeps: %s", err)
	}
	if len(substeps) == 0 {
		return nil, rerrors.ConfigError("loop", "substeps must be non-empty")
	}

	delaySeconds := configFloat(cfg, "delay", 0)

	return &loopStep{
		deps:           deps,
		items:          items,
		itemKey:        itemKey,
		maxConcurrency: configInt(cfg, "max_concurrency", 1),
		delay:          time.Duration(delaySeconds * float64(time.Second)),
		substeps:       substeps,
		resultKey:      resultKey,
		failFast:       configBool(cfg, "fail_fast", true),
	}, nil
}

type loopItemError struct {
	Key     interface{} `json:"index_or_key"`
	Message string      `json:"message"`
}

func (s *loopStep) Execute(ctx context.Context, rc *rcontext.Context) error {
	itemKey, err := renderString(s.deps, rc, s.itemKey)
	if err != nil {
		return err
	}
	resultKey, err := renderString(s.deps, rc, s.resultKey)
	if err != nil {
		return err
	}

	source, err := resolveItems(s.deps, rc, s.items)
	if err != nil {
		return err
	}

	switch src := source.(type) {
	case []interface{}:
		return s.runSequence(ctx, rc, itemKey, resultKey, src)
	case map[string]interface{}:
		return s.runMapping(ctx, rc, itemKey, resultKey, src)
	default:
		return rerrors.ConfigError("loop", "items must resolve to a sequence or mapping, got %T", source)
	}
}

func (s *loopStep) runSequence(ctx context.Context, rc *rcontext.Context, itemKey, resultKey string, items []interface{}) error {
	results := make([]interface{}, len(items))
	errs := make([]*loopItemError, len(items))

	outcomes := concurrency.Run(ctx, len(items), concurrency.Launcher{
		MaxConcurrency: s.maxConcurrency,
		Delay:          s.delay,
		FailFast:       s.failFast,
	}, func(ctx context.Context, i int) error {
		clone := rc.Clone()
		clone.Set(itemKey, items[i])
		clone.Set("__index", i)
		if err := s.deps.Engine.Run(ctx, clone, s.substeps); err != nil {
			errs[i] = &loopItemError{Key: i, Message: err.Error()}
			return err
		}
		results[i] = clone.Get(itemKey, items[i])
		return nil
	})

	return s.finish(rc, resultKey, results, errs, outcomes)
}

func (s *loopStep) runMapping(ctx context.Context, rc *rcontext.Context, itemKey, resultKey string, items map[string]interface{}) error {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}

	results := make(map[string]interface{}, len(keys))
	var mu sync.Mutex
	errs := make([]*loopItemError, len(keys))

	outcomes := concurrency.Run(ctx, len(keys), concurrency.Launcher{
		MaxConcurrency: s.maxConcurrency,
		Delay:          s.delay,
		FailFast:       s.failFast,
	}, func(ctx context.Context, i int) error {
		k := keys[i]
		clone := rc.Clone()
		clone.Set(itemKey, items[k])
		clone.Set("__key", k)
		if err := s.deps.Engine.Run(ctx, clone, s.substeps); err != nil {
			errs[i] = &loopItemError{Key: k, Message: err.Error()}
			return err
		}
		mu.Lock()
		results[k] = clone.Get(itemKey, items[k])
		mu.Unlock()
		return nil
	})

	if err := s.checkFailFast(outcomes); err != nil {
		return err
	}
	rc.Set(resultKey, results)
	if !s.failFast {
		if collected := collectErrors(errs); collected != nil {
			rc.Set(resultKey+"__errors", collected)
		}
	}
	return nil
}

func (s *loopStep) finish(rc *rcontext.Context, resultKey string, results []interface{}, errs []*loopItemError, outcomes []concurrency.Result) error {
	if err := s.checkFailFast(outcomes); err != nil {
		return err
	}
	rc.Set(resultKey, results)
	if !s.failFast {
		if collected := collectErrors(errs); collected != nil {
			rc.Set(resultKey+"__errors", collected)
		}
	}
	return nil
}

func (s *loopStep) checkFailFast(outcomes []concurrency.Result) error {
	if !s.failFast {
		return nil
	}
	for _, o := range outcomes {
		if o.Err != nil {
			return fmt.Errorf("loop iteration %d failed: %w", o.Index, o.Err)
		}
	}
	return nil
}

func collectErrors(errs []*loopItemError) []interface{} {
	var out []interface{}
	for _, e := range errs {
		if e != nil {
			out = append(out, map[string]interface{}{"index_or_key": e.Key, "message": e.Message})
		}
	}
	return out
}

// resolveItems renders the items expression, then resolves it as a
// dotted path into the Context's artifacts.
func resolveItems(deps step.Deps, rc *rcontext.Context, raw interface{}) (interface{}, error) {
	path, ok := raw.(string)
	if !ok {
		return renderAny(deps, rc, raw)
	}

	rendered, err := deps.Renderer.Render(path, bindings(rc))
	if err != nil {
		return nil, err
	}

	var cur interface{} = bindings(rc)
	for _, segment := range strings.Split(rendered, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, rerrors.ConfigError("loop", "items path %q does not resolve to a value", rendered)
		}
		cur, ok = m[segment]
		if !ok {
			return nil, rerrors.ConfigError("loop", "items path %q does not resolve to a value", rendered)
		}
	}
	return cur, nil
}
