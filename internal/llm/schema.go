package llm

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonschema"

	"github.com/robotdad/recipe-tool/internal/rerrors"
)

func marshalSchema(schema map[string]interface{}) (string, error) {
	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", rerrors.ConfigError("llm_generate", "schema is not serializable: %s", err)
	}
	return string(b), nil
}

// compileOutputSchema compiles the JSON Schema for structured output shapes
// so an invalid schema fails as a ConfigError before any remote call is
// made. Text and files shapes need no schema and return nil.
func compileOutputSchema(out OutputSpec) (*jsonschema.Schema, error) {
	if out.Kind != OutputObject && out.Kind != OutputArray {
		return nil, nil
	}
	if out.Schema == nil {
		return nil, rerrors.ConfigError("llm_generate", "structured output_format requires a schema")
	}
	b, err := json.Marshal(out.Schema)
	if err != nil {
		return nil, rerrors.ConfigError("llm_generate", "schema is not serializable: %s", err)
	}
	compiled, err := jsonschema.NewCompiler().Compile(b)
	if err != nil {
		return nil, rerrors.ConfigError("llm_generate", "invalid JSON Schema: %s", err)
	}
	return compiled, nil
}

// extractResult pulls the provider's raw text apart according to the
// requested output shape. Object/array shapes are validated against the
// caller's compiled JSON Schema; a violation is a
// LLMError, not a silent pass-through, since the step promised its caller
// a typed value.
func extractResult(text string, out OutputSpec, compiled *jsonschema.Schema) (Result, error) {
	switch out.Kind {
	case OutputText:
		return Result{Text: text}, nil

	case OutputFiles:
		files, err := parseFiles(text)
		if err != nil {
			return Result{}, err
		}
		return Result{Files: files}, nil

	case OutputObject:
		raw, err := extractJSON(text)
		if err != nil {
			return Result{}, err
		}
		if err := validate(compiled, raw); err != nil {
			return Result{}, err
		}
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return Result{}, rerrors.LLMError("output_format", nil, "model did not return a JSON object")
		}
		return Result{Object: obj}, nil

	case OutputArray:
		raw, err := extractJSON(text)
		if err != nil {
			return Result{}, err
		}
		if err := validate(compiled, raw); err != nil {
			return Result{}, err
		}
		items, ok := raw.([]interface{})
		if !ok {
			return Result{}, rerrors.LLMError("output_format", nil, "model did not return a JSON array")
		}
		return Result{Items: items}, nil

	default:
		return Result{}, rerrors.ConfigError("llm_generate", "unknown output_format kind %q", out.Kind)
	}
}

// extractJSON tolerates a model wrapping its JSON in a fenced code block,
// which every provider does often enough in practice to be worth stripping
// rather than failing on.
func extractJSON(text string) (interface{}, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var v interface{}
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil, rerrors.LLMError("output_format", err, "model response was not valid JSON")
	}
	return v, nil
}

func validate(compiled *jsonschema.Schema, value interface{}) error {
	if compiled == nil {
		return nil
	}
	result := compiled.Validate(value)
	if !result.IsValid() {
		var msgs []string
		for field, detail := range result.Errors {
			msgs = append(msgs, field+": "+detail.Error())
		}
		return rerrors.LLMError("output_format", nil, "response failed schema validation: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// parseFiles decodes the "files" output_format contract: a JSON array of
// {"path": ..., "content": ...} objects.
func parseFiles(text string) ([]FileSpec, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	arr, ok := raw.([]interface{})
	if !ok {
		return nil, rerrors.LLMError("output_format", nil, "files output_format expects a JSON array")
	}

	files := make([]FileSpec, 0, len(arr))
	for _, item := range arr {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, rerrors.LLMError("output_format", nil, "each file entry must be a JSON object")
		}
		path, _ := obj["path"].(string)
		content, _ := obj["content"].(string)
		if path == "" {
			return nil, rerrors.LLMError("output_format", nil, "file entry missing \"path\"")
		}
		files = append(files, FileSpec{Path: path, Content: content})
	}
	return files, nil
}
