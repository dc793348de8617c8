// Package providers holds the per-vendor llm.Provider implementations
// backing the façade.
package providers

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/robotdad/recipe-tool/internal/llm"
	"github.com/robotdad/recipe-tool/internal/logging"
	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/retry"
)

// OpenAIConfig configures the OpenAI and OpenAI-compatible providers
// (also reused by the Responses-API variant).
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string // override for OpenAI-compatible endpoints; empty uses the public API
	MaxTokens int
	Retry     retry.Config
}

// OpenAIProvider sends chat completions through the OpenAI Chat Completions
// API, or any OpenAI-compatible server when BaseURL is set.
type OpenAIProvider struct {
	name   string
	client *openai.Client
	cfg    OpenAIConfig
	log    *logging.Logger
}

// NewOpenAI builds the provider registered under the "openai" model-id
// prefix.
func NewOpenAI(cfg OpenAIConfig, log *logging.Logger) (*OpenAIProvider, error) {
	return newOpenAICompatible("openai", cfg, log)
}

// NewOpenAIResponses builds the provider registered under the
// "openai_responses" prefix. It shares the Chat Completions transport;
// the Responses API's additional capabilities (built-in tools, stateful
// threads) are out of scope for this engine.
func NewOpenAIResponses(cfg OpenAIConfig, log *logging.Logger) (*OpenAIProvider, error) {
	return newOpenAICompatible("openai_responses", cfg, log)
}

func newOpenAICompatible(name string, cfg OpenAIConfig, log *logging.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, rerrors.ConfigError(name, "missing API key")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.Factor == 0 {
		cfg.Retry = retry.Default
	}
	return &OpenAIProvider{
		name:   name,
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		log:    log,
	}, nil
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Complete(ctx context.Context, req llm.ProviderRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}

	result, err := retry.WithRetry(ctx, p.log, func() (interface{}, error) {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     req.ModelName,
			MaxTokens: maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
			},
		})
		if err != nil {
			return "", fmt.Errorf("%s chat completion failed: %w", p.name, err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("%s returned no choices", p.name)
		}
		return resp.Choices[0].Message.Content, nil
	}, retry.Is429Error, p.cfg.Retry)

	if err != nil {
		return "", err
	}
	return result.(string), nil
}
