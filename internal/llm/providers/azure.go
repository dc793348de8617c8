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

// AzureConfig configures the "azure" and "azure_responses" model-id
// providers.
type AzureConfig struct {
	APIKey     string
	Endpoint   string
	APIVersion string
	MaxTokens  int
	Retry      retry.Config
}

// AzureProvider sends chat completions to an Azure OpenAI deployment. The
// model id's "name" component selects the base model for logging purposes;
// the deployment name (third model_id segment) is what Azure actually
// routes on.
type AzureProvider struct {
	name string
	cfg  AzureConfig
	log  *logging.Logger
}

func NewAzure(cfg AzureConfig, log *logging.Logger) (*AzureProvider, error) {
	return newAzure("azure", cfg, log)
}

func NewAzureResponses(cfg AzureConfig, log *logging.Logger) (*AzureProvider, error) {
	return newAzure("azure_responses", cfg, log)
}

func newAzure(name string, cfg AzureConfig, log *logging.Logger) (*AzureProvider, error) {
	if cfg.APIKey == "" {
		return nil, rerrors.ConfigError(name, "missing API key")
	}
	if cfg.Endpoint == "" {
		return nil, rerrors.ConfigError(name, "missing endpoint")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-06-01"
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.Factor == 0 {
		cfg.Retry = retry.Default
	}
	return &AzureProvider{name: name, cfg: cfg, log: log}, nil
}

func (p *AzureProvider) Name() string { return p.name }

func (p *AzureProvider) Complete(ctx context.Context, req llm.ProviderRequest) (string, error) {
	deployment := req.Deployment
	if deployment == "" {
		deployment = req.ModelName
	}

	clientCfg := openai.DefaultAzureConfig(p.cfg.APIKey, p.cfg.Endpoint)
	clientCfg.APIVersion = p.cfg.APIVersion
	clientCfg.AzureModelMapperFunc = func(model string) string { return deployment }
	client := openai.NewClientWithConfig(clientCfg)

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}

	result, err := retry.WithRetry(ctx, p.log, func() (interface{}, error) {
		resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     req.ModelName,
			MaxTokens: maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
			},
		})
		if err != nil {
			return "", fmt.Errorf("azure deployment %q failed: %w", deployment, err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("azure deployment %q returned no choices", deployment)
		}
		return resp.Choices[0].Message.Content, nil
	}, retry.Is429Error, p.cfg.Retry)

	if err != nil {
		return "", err
	}
	return result.(string), nil
}
