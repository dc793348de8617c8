package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/robotdad/recipe-tool/internal/llm"
	"github.com/robotdad/recipe-tool/internal/logging"
	"github.com/robotdad/recipe-tool/internal/retry"
)

// OllamaConfig configures the "ollama" model-id provider, a local service
// with no API key.
type OllamaConfig struct {
	BaseURL string // defaults to http://localhost:11434
	Timeout time.Duration
	Retry   retry.Config
}

type OllamaProvider struct {
	httpClient *http.Client
	baseURL    string
	cfg        OllamaConfig
	log        *logging.Logger
}

func NewOllama(cfg OllamaConfig, log *logging.Logger) *OllamaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.Factor == 0 {
		cfg.Retry = retry.Default
	}
	return &OllamaProvider{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		cfg:        cfg,
		log:        log,
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (p *OllamaProvider) Complete(ctx context.Context, req llm.ProviderRequest) (string, error) {
	body, err := json.Marshal(ollamaRequest{Model: req.ModelName, Prompt: req.Prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	result, err := retry.WithRetry(ctx, p.log, func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("failed to build ollama request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := p.httpClient.Do(httpReq)
		if err != nil {
			return "", fmt.Errorf("error calling ollama API: %w (is ollama running?)", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			if resp.StatusCode == http.StatusTooManyRequests {
				return "", fmt.Errorf("ollama API request failed with status 429: %s", string(bodyBytes))
			}
			return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(bodyBytes))
		}

		var full strings.Builder
		decoder := json.NewDecoder(resp.Body)
		for {
			var chunk ollamaResponse
			if err := decoder.Decode(&chunk); err != nil {
				if err == io.EOF {
					break
				}
				return "", fmt.Errorf("error decoding ollama response: %w", err)
			}
			full.WriteString(chunk.Response)
			if chunk.Done {
				break
			}
		}
		return full.String(), nil
	}, retry.Is429Error, p.cfg.Retry)

	if err != nil {
		return "", err
	}
	return result.(string), nil
}
