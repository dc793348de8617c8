package providers

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/robotdad/recipe-tool/internal/llm"
	"github.com/robotdad/recipe-tool/internal/logging"
	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/retry"
)

// AnthropicConfig configures the "anthropic" model-id provider.
type AnthropicConfig struct {
	APIKey    string
	MaxTokens int64
	Retry     retry.Config
}

// AnthropicProvider sends messages through the Anthropic Messages API via
// the official SDK.
type AnthropicProvider struct {
	client anthropic.Client
	cfg    AnthropicConfig
	log    *logging.Logger
}

func NewAnthropic(cfg AnthropicConfig, log *logging.Logger) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, rerrors.ConfigError("anthropic", "missing API key")
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.Factor == 0 {
		cfg.Retry = retry.Default
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &AnthropicProvider{client: client, cfg: cfg, log: log}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Complete(ctx context.Context, req llm.ProviderRequest) (string, error) {
	maxTokens := p.cfg.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	result, err := retry.WithRetry(ctx, p.log, func() (interface{}, error) {
		msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(req.ModelName),
			MaxTokens: maxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
			},
		})
		if err != nil {
			return "", fmt.Errorf("anthropic messages.create failed: %w", err)
		}
		if len(msg.Content) == 0 {
			return "", fmt.Errorf("anthropic returned no content blocks")
		}
		var text string
		for _, block := range msg.Content {
			if block.Type == "text" {
				text += block.Text
			}
		}
		if text == "" {
			return "", fmt.Errorf("anthropic returned no text content")
		}
		return text, nil
	}, retry.Is429Error, p.cfg.Retry)

	if err != nil {
		return "", err
	}
	return result.(string), nil
}
