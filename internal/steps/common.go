// Package steps implements the nine primitive step types, each registered
// with the process-wide registry at wiring time (see RegisterAll).
package steps

import (
	"strings"

	"github.com/robotdad/recipe-tool/internal/rcontext"
	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/step"
)

// bindings builds the Liquid binding set for a Context: its artifacts at
// the top level, plus a nested "config" mapping.
func bindings(rc *rcontext.Context) map[string]interface{} {
	b := rc.Dump()
	b["config"] = rc.Config()
	return b
}

// renderString renders a single templated config field; a value that isn't
// a string is a ConfigError.
func renderString(deps step.Deps, rc *rcontext.Context, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", rerrors.ConfigError("", "expected a string field, got %T", v)
	}
	return deps.Renderer.Render(s, bindings(rc))
}

// renderOptionalString renders v if it is a non-empty string; returns def
// unchanged for anything else (missing config keys, non-string values).
func renderOptionalString(deps step.Deps, rc *rcontext.Context, v interface{}, def string) (string, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return def, nil
	}
	return deps.Renderer.Render(s, bindings(rc))
}

// renderAny walks and renders every string found anywhere inside v.
func renderAny(deps step.Deps, rc *rcontext.Context, v interface{}) (interface{}, error) {
	return deps.Renderer.RenderValue(v, bindings(rc))
}

func configString(cfg map[string]interface{}, key string) (string, bool) {
	v, ok := cfg[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func configBool(cfg map[string]interface{}, key string, def bool) bool {
	v, ok := cfg[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func configInt(cfg map[string]interface{}, key string, def int) int {
	v, ok := cfg[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

func configFloat(cfg map[string]interface{}, key string, def float64) float64 {
	v, ok := cfg[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return def
}

// splitPaths flattens a path field that may be a single path, a
// comma-separated string, or a list of strings.
func splitPaths(v interface{}) ([]string, error) {
	switch val := v.(type) {
	case string:
		var out []string
		for _, part := range strings.Split(val, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, rerrors.ConfigError("read_files", "path list must contain only strings")
			}
			out = append(out, strings.TrimSpace(s))
		}
		return out, nil
	default:
		return nil, rerrors.ConfigError("read_files", "path must be a string or a list of strings")
	}
}
