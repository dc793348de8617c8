// Package template renders the Liquid-style strings embedded in a recipe's
// step configuration, using github.com/osteele/liquid as the template
// engine.
package template

import (
	"os"
	"path/filepath"

	"github.com/osteele/liquid"

	"github.com/robotdad/recipe-tool/internal/rerrors"
)

// Renderer renders a single template string against a set of bindings
type Renderer struct {
	engine *liquid.Engine
}

// New builds a Renderer with the default Liquid tag/filter set plus two
// filesystem predicates, file_exists and all_files_exist, so templates can
// branch on outputs already written to disk.
func New() *Renderer {
	engine := liquid.NewEngine()
	engine.RegisterFilter("file_exists", func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	})
	engine.RegisterFilter("all_files_exist", func(glob string) bool {
		matches, err := filepath.Glob(glob)
		return err == nil && len(matches) > 0
	})
	return &Renderer{engine: engine}
}

// Render expands src against bindings. A parse or evaluation failure is
// wrapped as a TemplateError naming the offending fragment.
func (r *Renderer) Render(src string, bindings map[string]interface{}) (string, error) {
	tpl, err := r.engine.ParseString(src)
	if err != nil {
		return "", rerrors.TemplateError(src, err)
	}
	out, err := tpl.Render(bindings)
	if err != nil {
		return "", rerrors.TemplateError(src, err)
	}
	return string(out), nil
}

// RenderValue walks an arbitrary config value (string, map, slice) and
// renders every string found, leaving other scalar types untouched. Steps
// call it at execution time on nested config values, so a whole value
// (map or list) can carry templated fields.
func (r *Renderer) RenderValue(v interface{}, bindings map[string]interface{}) (interface{}, error) {
	switch val := v.(type) {
	case string:
		return r.Render(val, bindings)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, sub := range val {
			rendered, err := r.RenderValue(sub, bindings)
			if err != nil {
				return nil, err
			}
			out[k] = rendered
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, sub := range val {
			rendered, err := r.RenderValue(sub, bindings)
			if err != nil {
				return nil, err
			}
			out[i] = rendered
		}
		return out, nil
	default:
		return v, nil
	}
}
