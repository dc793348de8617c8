package steps

import (
	"context"
	"strconv"
	"strings"

	"github.com/robotdad/recipe-tool/internal/llm"
	"github.com/robotdad/recipe-tool/internal/logging"
	"github.com/robotdad/recipe-tool/internal/mcpclient"
	"github.com/robotdad/recipe-tool/internal/rcontext"
	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/step"
)

// defaultModel is used when a recipe names no model and the Context config
// carries no default_model either.
const defaultModel = "openai/gpt-4o"

type llmGenerateStep struct {
	deps       step.Deps
	prompt     interface{}
	model      interface{}
	outputKey  interface{}
	format     string
	schema     map[string]interface{}
	mcpServers []interface{}
	maxTokens  interface{}
}

// NewLLMGenerate builds the llm_generate step.
func NewLLMGenerate(deps step.Deps, cfg map[string]interface{}) (step.Step, error) {
	prompt, ok := cfg["prompt"]
	if !ok {
		return nil, rerrors.ConfigError("llm_generate", "missing required field \"prompt\"")
	}
	outputKey, ok := cfg["output_key"]
	if !ok {
		return nil, rerrors.ConfigError("llm_generate", "missing required field \"output_key\"")
	}

	format, schema, err := parseOutputFormat(cfg)
	if err != nil {
		return nil, err
	}

	var servers []interface{}
	if raw, ok := cfg["mcp_servers"]; ok {
		list, ok := raw.([]interface{})
		if !ok {
			return nil, rerrors.ConfigError("llm_generate", "\"mcp_servers\" must be a list")
		}
		servers = list
	}

	return &llmGenerateStep{
		deps:       deps,
		prompt:     prompt,
		model:      cfg["model"],
		outputKey:  outputKey,
		format:     format,
		schema:     schema,
		mcpServers: servers,
		maxTokens:  cfg["max_tokens"],
	}, nil
}

// parseOutputFormat resolves output_format into a shape tag and, for
// structured shapes, its JSON Schema. The canonical form embeds the schema
// directly as the output_format value; the schema's own "type" selects
// object vs array. The explicit "object"/"array" string plus a
// sibling "output_schema" mapping is accepted as an equivalent spelling.
func parseOutputFormat(cfg map[string]interface{}) (string, map[string]interface{}, error) {
	switch v := cfg["output_format"].(type) {
	case nil:
		return "text", nil, nil
	case map[string]interface{}:
		if t, _ := v["type"].(string); t == "array" {
			return "array", v, nil
		}
		return "object", v, nil
	case string:
		switch v {
		case "text", "files":
			return v, nil, nil
		case "object", "array":
			raw, ok := cfg["output_schema"]
			if !ok {
				return "", nil, rerrors.ConfigError("llm_generate", "output_format %q requires \"output_schema\"", v)
			}
			schema, ok := raw.(map[string]interface{})
			if !ok {
				return "", nil, rerrors.ConfigError("llm_generate", "\"output_schema\" must be a mapping")
			}
			return v, schema, nil
		default:
			return "", nil, rerrors.ConfigError("llm_generate", "unknown output_format %q", v)
		}
	default:
		return "", nil, rerrors.ConfigError("llm_generate", "output_format must be \"text\", \"files\", or a JSON Schema mapping")
	}
}

func (s *llmGenerateStep) Execute(ctx context.Context, rc *rcontext.Context) error {
	prompt, err := renderString(s.deps, rc, s.prompt)
	if err != nil {
		return err
	}
	model, err := renderOptionalString(s.deps, rc, s.model, "")
	if err != nil {
		return err
	}
	if model == "" {
		model = rc.ConfigGetString("default_model")
	}
	if model == "" {
		model = defaultModel
	}
	outputKey, err := renderString(s.deps, rc, s.outputKey)
	if err != nil {
		return err
	}
	maxTokens, err := s.resolveMaxTokens(rc)
	if err != nil {
		return err
	}

	handles, err := s.resolveServers(rc)
	if err != nil {
		return err
	}

	if s.deps.Logger != nil {
		s.deps.Logger.Debug("rendered llm_generate prompt",
			"model", model,
			"output_key", outputKey,
			"prompt", logging.MaskSecrets(prompt, rc.Config()),
		)
	}

	req := llm.Request{
		Prompt:     prompt,
		Model:      model,
		MaxTokens:  maxTokens,
		MCPServers: handles,
		Output:     llm.OutputSpec{Kind: llm.OutputKind(s.format), Schema: s.schema},
	}

	if s.deps.LLM == nil {
		return rerrors.ConfigError("llm_generate", "no LLM facade configured")
	}
	result, err := s.deps.LLM.Generate(ctx, rc.Config(), req)
	if err != nil {
		return err
	}

	rc.Set(outputKey, unwrapResult(s.format, result))
	return nil
}

// unwrapResult discards the internal Result wrapper so output_key holds the
// plain value the recipe author asked for: a string for text, a mapping for
// object, a list of items for array, and a list of {path, content} mappings
// for files, the same shape write_files already accepts via files_key.
func unwrapResult(format string, result llm.Result) interface{} {
	switch format {
	case "text":
		return result.Text
	case "object":
		return result.Object
	case "array":
		return result.Items
	case "files":
		files := make([]interface{}, 0, len(result.Files))
		for _, f := range result.Files {
			files = append(files, map[string]interface{}{"path": f.Path, "content": f.Content})
		}
		return files
	default:
		return result.Text
	}
}

// resolveMaxTokens accepts max_tokens as a number or as a templated string
// that must parse to an integer after rendering.
func (s *llmGenerateStep) resolveMaxTokens(rc *rcontext.Context) (int, error) {
	switch v := s.maxTokens.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		rendered, err := s.deps.Renderer.Render(v, bindings(rc))
		if err != nil {
			return 0, err
		}
		if rendered == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(rendered))
		if err != nil {
			return 0, rerrors.ConfigError("llm_generate", "max_tokens %q is not an integer", rendered)
		}
		return n, nil
	default:
		return 0, rerrors.ConfigError("llm_generate", "max_tokens must be an integer or a templated string")
	}
}

func (s *llmGenerateStep) resolveServers(rc *rcontext.Context) ([]mcpclient.Handle, error) {
	handles := make([]mcpclient.Handle, 0, len(s.mcpServers))
	for i, raw := range s.mcpServers {
		rendered, err := renderAny(s.deps, rc, raw)
		if err != nil {
			return nil, err
		}
		m, ok := rendered.(map[string]interface{})
		if !ok {
			return nil, rerrors.ConfigError("llm_generate", "mcp_servers[%d] must be a mapping", i)
		}
		handle, err := parseMCPHandle(m)
		if err != nil {
			return nil, rerrors.ConfigError("llm_generate", "mcp_servers[%d]: %s", i, err)
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

// parseMCPHandle resolves a server descriptor into its tagged Handle
// variant. An explicit "transport" wins; without one the presence of
// "command" selects stdio and "url" selects http_sse.
func parseMCPHandle(m map[string]interface{}) (mcpclient.Handle, error) {
	transport, _ := configString(m, "transport")
	if transport == "" {
		if cmd, _ := configString(m, "command"); cmd != "" {
			transport = "stdio"
		} else {
			transport = "http_sse"
		}
	}
	switch transport {
	case "http_sse":
		url, _ := configString(m, "url")
		headers := stringMap(m["headers"])
		return mcpclient.Handle{Transport: mcpclient.TransportHTTPSSE, URL: url, Headers: headers}, nil
	case "stdio":
		command, _ := configString(m, "command")
		return mcpclient.Handle{
			Transport: mcpclient.TransportStdio,
			Command:   command,
			Args:      stringList(m["args"]),
			Env:       stringMap(m["env"]),
			Dir:       configDefaultString(m, "dir"),
		}, nil
	default:
		return mcpclient.Handle{}, rerrors.ConfigError("llm_generate", "unknown mcp transport %q", transport)
	}
}

func configDefaultString(m map[string]interface{}, key string) string {
	s, _ := configString(m, key)
	return s
}

func stringMap(v interface{}) map[string]string {
	m, _ := v.(map[string]interface{})
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}

func stringList(v interface{}) []string {
	list, _ := v.([]interface{})
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
