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

func parallelRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register("set_context", NewSetContext))
	require.NoError(t, reg.Register("parallel", NewParallel))
	return reg
}

func TestParallelBranchesDoNotLeakIntoParent(t *testing.T) {
	reg := parallelRegistry(t)
	eng := newTestEngine(reg)
	rc := rcontext.New(nil)

	deps := step.Deps{Renderer: testDeps().Renderer, Engine: eng}
	s, err := NewParallel(deps, map[string]interface{}{
		"substeps": []interface{}{
			map[string]interface{}{
				"name": "a",
				"steps": []interface{}{
					map[string]interface{}{"type": "set_context", "config": map[string]interface{}{"key": "branch_only", "value": "a"}},
				},
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.Execute(context.Background(), rc))
	assert.False(t, rc.Has("branch_only"))
}

func TestParallelEmptySubstepsIsNoOp(t *testing.T) {
	reg := parallelRegistry(t)
	eng := newTestEngine(reg)
	rc := rcontext.New(nil)

	deps := step.Deps{Renderer: testDeps().Renderer, Engine: eng}
	s, err := NewParallel(deps, map[string]interface{}{"substeps": []interface{}{}})
	require.NoError(t, err)
	require.NoError(t, s.Execute(context.Background(), rc))
}

func TestParallelFailFastReturnsError(t *testing.T) {
	reg := parallelRegistry(t)
	eng := newTestEngine(reg)
	rc := rcontext.New(nil)

	deps := step.Deps{Renderer: testDeps().Renderer, Engine: eng}
	s, err := NewParallel(deps, map[string]interface{}{
		"substeps": []interface{}{
			map[string]interface{}{
				"name":  "bad",
				"steps": []interface{}{map[string]interface{}{"type": "set_context", "config": map[string]interface{}{"value": "missing-key"}}},
			},
		},
	})
	require.NoError(t, err)
	assert.Error(t, s.Execute(context.Background(), rc))
}

func TestParallelDependsOnOrdersBranches(t *testing.T) {
	reg := parallelRegistry(t)
	eng := newTestEngine(reg)
	rc := rcontext.New(nil)

	deps := step.Deps{Renderer: testDeps().Renderer, Engine: eng}
	s, err := NewParallel(deps, map[string]interface{}{
		"substeps": []interface{}{
			map[string]interface{}{
				"name":  "first",
				"steps": []interface{}{map[string]interface{}{"type": "set_context", "config": map[string]interface{}{"key": "unused", "value": "x"}}},
			},
			map[string]interface{}{
				"name":       "second",
				"depends_on": []interface{}{"first"},
				"steps":      []interface{}{map[string]interface{}{"type": "set_context", "config": map[string]interface{}{"key": "unused2", "value": "y"}}},
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.Execute(context.Background(), rc))
}

func TestParallelDependsOnUnknownNameFails(t *testing.T) {
	reg := parallelRegistry(t)
	eng := newTestEngine(reg)
	rc := rcontext.New(nil)

	deps := step.Deps{Renderer: testDeps().Renderer, Engine: eng}
	s, err := NewParallel(deps, map[string]interface{}{
		"substeps": []interface{}{
			map[string]interface{}{
				"name":       "second",
				"depends_on": []interface{}{"ghost"},
				"steps":      []interface{}{map[string]interface{}{"type": "set_context", "config": map[string]interface{}{"key": "k", "value": "v"}}},
			},
		},
	})
	require.NoError(t, err)
	assert.Error(t, s.Execute(context.Background(), rc))
}
