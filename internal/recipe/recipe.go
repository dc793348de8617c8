// Package recipe parses JSON recipe documents into the ordered list of
// step.Descriptor values the Executor drives.
package recipe

import (
	"encoding/json"

	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/step"
)

// Parse turns raw JSON bytes into a Recipe. The root may be a mapping with
// a "steps" key, or a bare sequence of step descriptors.
func Parse(data []byte) (step.Recipe, error) {
	var root interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return step.Recipe{}, rerrors.InvalidRecipe("malformed JSON: %s", err)
	}
	return FromValue(root)
}

// FromValue builds a Recipe from an already-decoded JSON value (used by
// execute_recipe when handed an inline recipe object instead of a path).
func FromValue(root interface{}) (step.Recipe, error) {
	switch v := root.(type) {
	case map[string]interface{}:
		rawSteps, ok := v["steps"]
		if !ok {
			return step.Recipe{}, rerrors.InvalidRecipe("recipe mapping is missing a \"steps\" key")
		}
		list, ok := rawSteps.([]interface{})
		if !ok {
			return step.Recipe{}, rerrors.InvalidRecipe("\"steps\" must be a sequence")
		}
		return parseSteps(list)
	case []interface{}:
		return parseSteps(v)
	default:
		return step.Recipe{}, rerrors.InvalidRecipe("recipe root must be a mapping or a sequence")
	}
}

func parseSteps(list []interface{}) (step.Recipe, error) {
	descriptors := make([]step.Descriptor, 0, len(list))
	for i, raw := range list {
		desc, err := parseDescriptor(raw)
		if err != nil {
			return step.Recipe{}, rerrors.InvalidRecipe("step %d: %s", i, err)
		}
		descriptors = append(descriptors, desc)
	}
	return step.Recipe{Steps: descriptors}, nil
}

// parseDescriptor handles both the canonical {type, config} shape and the
// legacy shape where config fields sit directly alongside "type": every
// non-"type" sibling is merged into config.
func parseDescriptor(raw interface{}) (step.Descriptor, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return step.Descriptor{}, rerrors.InvalidRecipe("step descriptor must be a mapping")
	}

	typ, ok := m["type"].(string)
	if !ok || typ == "" {
		return step.Descriptor{}, rerrors.InvalidRecipe("step descriptor missing a \"type\" string")
	}

	var config map[string]interface{}
	if rawConfig, ok := m["config"]; ok {
		config, ok = rawConfig.(map[string]interface{})
		if !ok {
			return step.Descriptor{}, rerrors.InvalidRecipe("step %q: \"config\" must be a mapping", typ)
		}
	} else {
		config = make(map[string]interface{}, len(m))
		for k, v := range m {
			if k == "type" {
				continue
			}
			config[k] = v
		}
	}

	return step.Descriptor{Type: typ, Config: config}, nil
}

// FragmentSteps parses a recipe fragment used by conditional branches and
// loop/parallel substeps: a bare sequence of descriptors, a {"steps": [...]}
// mapping, or a single step descriptor carrying "type" directly.
func FragmentSteps(raw interface{}) ([]step.Descriptor, error) {
	if m, ok := raw.(map[string]interface{}); ok {
		if _, hasSteps := m["steps"]; !hasSteps {
			desc, err := parseDescriptor(m)
			if err != nil {
				return nil, err
			}
			return []step.Descriptor{desc}, nil
		}
	}
	r, err := FromValue(raw)
	if err != nil {
		return nil, err
	}
	return r.Steps, nil
}
