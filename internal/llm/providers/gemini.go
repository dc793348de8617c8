package providers

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/robotdad/recipe-tool/internal/llm"
	"github.com/robotdad/recipe-tool/internal/logging"
	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/retry"
)

// GeminiConfig configures the "gemini" model-id provider.
type GeminiConfig struct {
	APIKey    string
	MaxTokens int32
	Retry     retry.Config
}

type GeminiProvider struct {
	client *genai.Client
	cfg    GeminiConfig
	log    *logging.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig, log *logging.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, rerrors.ConfigError("gemini", "missing API key")
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.Factor == 0 {
		cfg.Retry = retry.Default
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, rerrors.ConfigError("gemini", "failed to create client: %s", err)
	}
	return &GeminiProvider{client: client, cfg: cfg, log: log}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Complete(ctx context.Context, req llm.ProviderRequest) (string, error) {
	model := p.client.GenerativeModel(req.ModelName)
	if maxTokens := req.MaxTokens; maxTokens > 0 {
		model.MaxOutputTokens = int32Ptr(int32(maxTokens))
	} else if p.cfg.MaxTokens > 0 {
		model.MaxOutputTokens = int32Ptr(p.cfg.MaxTokens)
	}

	result, err := retry.WithRetry(ctx, p.log, func() (interface{}, error) {
		resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
		if err != nil {
			return "", fmt.Errorf("gemini GenerateContent failed: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", fmt.Errorf("gemini returned no candidates")
		}

		var text string
		for _, part := range resp.Candidates[0].Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
		if text == "" {
			return "", fmt.Errorf("gemini returned no text content")
		}
		return text, nil
	}, retry.Is429Error, p.cfg.Retry)

	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func int32Ptr(v int32) *int32 { return &v }

// Close releases the underlying gRPC connection. Callers should defer this
// once during process wiring, not per-request.
func (p *GeminiProvider) Close() error { return p.client.Close() }
