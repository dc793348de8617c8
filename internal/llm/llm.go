// Package llm implements the provider-agnostic LLM façade: a single call
// that accepts a prompt, a target output shape, optional MCP tool servers,
// and returns typed output. It does not hard-code any one SDK; concrete
// providers (package llm/providers) register themselves with a Facade at
// wiring time.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/robotdad/recipe-tool/internal/logging"
	"github.com/robotdad/recipe-tool/internal/mcpclient"
	"github.com/robotdad/recipe-tool/internal/rerrors"
)

// FileSpec is the value type shared by read_files/write_files and
// llm_generate's "files" output_format.
type FileSpec struct {
	Path    string
	Content string
	Binary  []byte
}

// Clone implements rcontext.Cloner.
func (f FileSpec) Clone() interface{} {
	out := FileSpec{Path: f.Path, Content: f.Content}
	if f.Binary != nil {
		out.Binary = append([]byte(nil), f.Binary...)
	}
	return out
}

// OutputKind is the shape llm_generate asked for.
type OutputKind string

const (
	OutputText   OutputKind = "text"
	OutputFiles  OutputKind = "files"
	OutputObject OutputKind = "object" // JSON-schema object
	OutputArray  OutputKind = "array"  // JSON-schema array of an item schema
)

// OutputSpec describes the expected result shape for one llm_generate call.
type OutputSpec struct {
	Kind   OutputKind
	Schema map[string]interface{} // required for OutputObject/OutputArray
}

// Request is the rendered, ready-to-send input to a single LLM call.
type Request struct {
	Prompt     string
	Model      string // "provider/name" or "provider/name/deployment"
	MaxTokens  int
	MCPServers []mcpclient.Handle
	Output     OutputSpec
}

// Result is the polymorphic outcome of one LLM call; exactly one field is
// populated, selected by the request's OutputKind.
type Result struct {
	Text   string
	Files  []FileSpec
	Object map[string]interface{}
	Items  []interface{}
}

// Provider is one backing LLM SDK (OpenAI, Azure, Anthropic, Ollama,
// Gemini, ...). Complete returns raw text; structured-output extraction
// and validation is handled once, centrally, by Facade so every provider
// shares the same schema-enforcement behavior.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req ProviderRequest) (string, error)
}

// ProviderRequest is what Facade hands to a Provider after resolving the
// model identifier and folding output-format instructions into the prompt.
type ProviderRequest struct {
	ModelName  string // the "name" component of the model id
	Deployment string // azure only; defaults to ModelName
	Prompt     string
	MaxTokens  int
	Tools      []mcpclient.ToolDef
}

// ModelID is the parsed form of a model identifier:
//
//	model_id := provider "/" name [ "/" deployment ]
type ModelID struct {
	Provider   string
	Name       string
	Deployment string
}

func ParseModelID(raw string) (ModelID, error) {
	parts := strings.SplitN(raw, "/", 3)
	if len(parts) < 2 {
		return ModelID{}, rerrors.ConfigError("llm_generate", "invalid model identifier %q: expected provider/name", raw)
	}
	id := ModelID{Provider: parts[0], Name: parts[1]}
	if len(parts) == 3 {
		id.Deployment = parts[2]
	}
	if id.Provider == "azure" && id.Deployment == "" {
		id.Deployment = id.Name
	}
	return id, nil
}

// Facade dispatches Generate calls to the configured Provider for the
// requested model, folding in MCP tool servers and validating structured
// output.
type Facade interface {
	Generate(ctx context.Context, cfg map[string]interface{}, req Request) (Result, error)
}

// facade is the default Facade implementation.
type facade struct {
	providers map[string]Provider
	dialer    mcpclient.Dialer
	log       *logging.Logger
}

// New builds a Facade backed by the given providers (keyed by the grammar's
// provider name: "openai", "azure", "anthropic", "ollama", "gemini",
// "openai_responses", "azure_responses"), an MCP Dialer, and a Logger for
// debug-level call payloads (nil disables them).
func New(providers map[string]Provider, dialer mcpclient.Dialer, log *logging.Logger) Facade {
	return &facade{providers: providers, dialer: dialer, log: log}
}

func (f *facade) Generate(ctx context.Context, cfg map[string]interface{}, req Request) (Result, error) {
	id, err := ParseModelID(req.Model)
	if err != nil {
		return Result{}, err
	}

	provider, ok := f.providers[id.Provider]
	if !ok {
		return Result{}, rerrors.ConfigError("llm_generate", "no provider configured for %q", id.Provider)
	}

	prompt, err := buildPrompt(req.Prompt, req.Output)
	if err != nil {
		return Result{}, err
	}

	// An invalid schema must fail before any remote work.
	compiled, err := compileOutputSchema(req.Output)
	if err != nil {
		return Result{}, err
	}

	// MCP servers are scoped resources: acquired before the call, released
	// on every exit path.
	var tools []mcpclient.ToolDef
	sessions := make([]mcpclient.Session, 0, len(req.MCPServers))
	defer func() {
		for _, s := range sessions {
			_ = s.Close()
		}
	}()
	for _, handle := range req.MCPServers {
		sess, err := f.dialer.Dial(ctx, handle)
		if err != nil {
			return Result{}, err
		}
		sessions = append(sessions, sess)
		t, err := sess.ListTools(ctx)
		if err != nil {
			return Result{}, err
		}
		tools = append(tools, t...)
	}

	if f.log != nil {
		f.log.Debug("dispatching llm call",
			"model", req.Model,
			"provider", id.Provider,
			"tools", len(tools),
			"config", logging.Redact(cfg),
		)
	}

	text, err := provider.Complete(ctx, ProviderRequest{
		ModelName:  id.Name,
		Deployment: id.Deployment,
		Prompt:     prompt,
		MaxTokens:  req.MaxTokens,
		Tools:      tools,
	})
	if err != nil {
		return Result{}, rerrors.LLMError(req.Model, err, "LLM call failed")
	}

	if f.log != nil {
		f.log.Debug("llm response", "model", req.Model, "response", logging.MaskSecrets(text, cfg))
	}

	return extractResult(text, req.Output, compiled)
}

// buildPrompt folds output-shape instructions into the prompt for
// schema-constrained calls; text/files outputs pass the prompt through
// unchanged.
func buildPrompt(prompt string, out OutputSpec) (string, error) {
	switch out.Kind {
	case OutputText, OutputFiles:
		return prompt, nil
	case OutputObject, OutputArray:
		if out.Schema == nil {
			return "", rerrors.ConfigError("llm_generate", "structured output_format requires a schema")
		}
		schemaText, err := marshalSchema(out.Schema)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(
			"%s\n\nRespond with a single JSON value matching this JSON Schema exactly, "+
				"and no other text:\n%s", prompt, schemaText), nil
	default:
		return "", rerrors.ConfigError("llm_generate", "unknown output_format kind %q", out.Kind)
	}
}
