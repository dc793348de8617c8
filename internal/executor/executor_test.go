package executor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotdad/recipe-tool/internal/executor"
	"github.com/robotdad/recipe-tool/internal/rcontext"
	"github.com/robotdad/recipe-tool/internal/registry"
	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/step"
	"github.com/robotdad/recipe-tool/internal/steps"
	"github.com/robotdad/recipe-tool/internal/template"
)

func newExecutor(t *testing.T) *executor.Executor {
	t.Helper()
	reg := registry.New()
	require.NoError(t, steps.RegisterAll(reg))
	renderer := template.New()

	var exec *executor.Executor
	exec = executor.New(reg, nil, func() step.Deps {
		return step.Deps{Engine: exec, Renderer: renderer}
	})
	return exec
}

func TestSetThenRead(t *testing.T) {
	exec := newExecutor(t)
	rc := rcontext.New(nil)

	recipe := `[ { "type": "set_context", "config": { "key": "greeting", "value": "hello" } } ]`
	require.NoError(t, exec.RunRecipe(context.Background(), rc, recipe))
	assert.Equal(t, "hello", rc.Get("greeting", nil))
}

func TestTemplateSubstitution(t *testing.T) {
	exec := newExecutor(t)
	rc := rcontext.New(nil)
	rc.Set("name", "Ada")

	recipe := `[ { "type": "set_context", "config": { "key": "msg", "value": "hi {{name}}" } } ]`
	require.NoError(t, exec.RunRecipe(context.Background(), rc, recipe))
	assert.Equal(t, "hi Ada", rc.Get("msg", nil))
}

func TestLoopOverSequenceSequential(t *testing.T) {
	exec := newExecutor(t)
	rc := rcontext.New(nil)
	rc.Set("nums", []interface{}{"a", "b", "c"})

	recipe := `[ { "type": "loop",
	    "config": {
	      "items": "nums", "item_key": "n", "max_concurrency": 1,
	      "substeps": [
	        { "type": "set_context", "config": { "key": "n", "value": "{{n}}!" } }
	      ],
	      "result_key": "out"
	    } } ]`
	require.NoError(t, exec.RunRecipe(context.Background(), rc, recipe))
	assert.Equal(t, []interface{}{"a!", "b!", "c!"}, rc.Get("out", nil))
}

func TestConditionalPicksBranch(t *testing.T) {
	recipe := `[ { "type": "conditional",
	    "config": {
	      "condition": "{{flag}}",
	      "if_true":  { "steps": [ { "type": "set_context", "config": { "key": "taken", "value": "T" } } ] },
	      "if_false": { "steps": [ { "type": "set_context", "config": { "key": "taken", "value": "F" } } ] }
	    } } ]`

	exec := newExecutor(t)
	rc := rcontext.New(nil)
	rc.Set("flag", true)
	require.NoError(t, exec.RunRecipe(context.Background(), rc, recipe))
	assert.Equal(t, "T", rc.Get("taken", nil))

	rc = rcontext.New(nil)
	rc.Set("flag", false)
	require.NoError(t, exec.RunRecipe(context.Background(), rc, recipe))
	assert.Equal(t, "F", rc.Get("taken", nil))
}

func TestExecuteSubRecipeSharesContext(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub.json")
	require.NoError(t, os.WriteFile(sub,
		[]byte(`[ { "type": "set_context", "config": { "key": "child", "value": "done" } } ]`), 0o644))

	exec := newExecutor(t)
	rc := rcontext.New(nil)
	rc.Set("sub_path", sub)

	recipe := `[ { "type": "execute_recipe", "config": { "recipe_path": "{{sub_path}}" } } ]`
	require.NoError(t, exec.RunRecipe(context.Background(), rc, recipe))
	assert.Equal(t, "done", rc.Get("child", nil))
}

func TestParallelBranchWritesDoNotLeak(t *testing.T) {
	exec := newExecutor(t)
	rc := rcontext.New(nil)

	recipe := `[ { "type": "parallel",
	    "config": {
	      "substeps": [
	        { "steps": [ { "type": "set_context", "config": { "key": "work", "value": "A" } } ] },
	        { "steps": [ { "type": "set_context", "config": { "key": "work", "value": "B" } } ] }
	      ]
	    } } ]`
	require.NoError(t, exec.RunRecipe(context.Background(), rc, recipe))
	assert.False(t, rc.Has("work"))
}

func TestLoopFailFastVariants(t *testing.T) {
	// The second item trips a branch whose step fails config validation.
	recipe := func(failFast bool) interface{} {
		ff := "true"
		if !failFast {
			ff = "false"
		}
		return `[ { "type": "loop",
		    "config": {
		      "items": "nums", "item_key": "n", "max_concurrency": 1,
		      "fail_fast": ` + ff + `,
		      "substeps": [
		        { "type": "conditional", "config": {
		            "condition": "{{n}} == 'boom'",
		            "if_true": [ { "type": "set_context", "config": { "value": "missing key" } } ],
		            "if_false": [ { "type": "set_context", "config": { "key": "n", "value": "{{n}}!" } } ]
		        } }
		      ],
		      "result_key": "out"
		    } } ]`
	}

	exec := newExecutor(t)
	rc := rcontext.New(nil)
	rc.Set("nums", []interface{}{"a", "boom", "c"})
	err := exec.RunRecipe(context.Background(), rc, recipe(true))
	assert.Error(t, err)
	assert.False(t, rc.Has("out"), "fail-fast failure must not write the aggregate")

	rc = rcontext.New(nil)
	rc.Set("nums", []interface{}{"a", "boom", "c"})
	require.NoError(t, exec.RunRecipe(context.Background(), rc, recipe(false)))

	out, ok := rc.Get("out", nil).([]interface{})
	require.True(t, ok)
	require.Len(t, out, 3)
	assert.Equal(t, "a!", out[0])
	assert.Nil(t, out[1], "failed item contributes a placeholder")
	assert.Equal(t, "c!", out[2])

	errs, ok := rc.Get("out__errors", nil).([]interface{})
	require.True(t, ok)
	require.Len(t, errs, 1)
	rec := errs[0].(map[string]interface{})
	assert.Equal(t, 1, rec["index_or_key"])
}

func TestRunRecipeRejectsMalformedJSON(t *testing.T) {
	exec := newExecutor(t)
	err := exec.RunRecipe(context.Background(), rcontext.New(nil), `{ not json`)
	assert.Error(t, err)
}

func TestRunRecipeUnknownStepType(t *testing.T) {
	exec := newExecutor(t)
	err := exec.RunRecipe(context.Background(), rcontext.New(nil),
		`[ { "type": "no_such_step", "config": {} } ]`)
	require.Error(t, err)
	assert.True(t, rerrors.Is(err, rerrors.KindUnknownStepType))
}

func TestRunRecipeEmptyStepListIsNoOp(t *testing.T) {
	exec := newExecutor(t)
	require.NoError(t, exec.RunRecipe(context.Background(), rcontext.New(nil), `[]`))
}

func TestRunRecipeAcceptsParsedValue(t *testing.T) {
	exec := newExecutor(t)
	rc := rcontext.New(nil)
	parsed := map[string]interface{}{
		"steps": []interface{}{
			map[string]interface{}{"type": "set_context", "config": map[string]interface{}{"key": "k", "value": "v"}},
		},
	}
	require.NoError(t, exec.RunRecipe(context.Background(), rc, parsed))
	assert.Equal(t, "v", rc.Get("k", nil))
}

func TestLegacyTopLevelConfigFields(t *testing.T) {
	exec := newExecutor(t)
	rc := rcontext.New(nil)
	require.NoError(t, exec.RunRecipe(context.Background(), rc,
		`[ { "type": "set_context", "key": "k", "value": "v" } ]`))
	assert.Equal(t, "v", rc.Get("k", nil))
}
