// Command reciperunner is the thin run-one-recipe entrypoint: it wires a
// Logger, a Context, and an Executor together for a single recipe
// invocation.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robotdad/recipe-tool/internal/executor"
	"github.com/robotdad/recipe-tool/internal/llm"
	"github.com/robotdad/recipe-tool/internal/llm/providers"
	"github.com/robotdad/recipe-tool/internal/logging"
	"github.com/robotdad/recipe-tool/internal/mcpclient"
	"github.com/robotdad/recipe-tool/internal/rcontext"
	"github.com/robotdad/recipe-tool/internal/rconfig"
	"github.com/robotdad/recipe-tool/internal/registry"
	"github.com/robotdad/recipe-tool/internal/step"
	"github.com/robotdad/recipe-tool/internal/steps"
	"github.com/robotdad/recipe-tool/internal/template"
)

var (
	verbose    bool
	debug      bool
	configPath string
)

func main() {
	root := &cobra.Command{
		Use:   "reciperunner <recipe.json> [key=value ...]",
		Short: "Run a declarative JSON recipe",
		Long: `reciperunner loads a recipe (a JSON document describing an ordered
sequence of steps), seeds a Context from any key=value arguments and from
STDIN if one of the values is the literal token STDIN, and executes it.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          run,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose (info-level) logging")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "debug-level logging, including rendered prompts")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a recipe-tool config.yaml (default: ~/.recipe-tool/config.yaml)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	recipePath := args[0]
	seeds, err := parseSeeds(args[1:], readStdin)
	if err != nil {
		return err
	}

	level := "info"
	if debug {
		level = "debug"
	}
	log := logging.New(logging.Options{Level: level, Component: "reciperunner"})

	cfg, err := rconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	rc := rcontext.New(cfg)
	rconfig.ApplySeeds(rc, seeds)

	reg := registry.New()
	if err := steps.RegisterAll(reg); err != nil {
		return fmt.Errorf("registering step types: %w", err)
	}

	facade := llm.New(buildProviders(cfg, log), mcpclient.Default, log)
	renderer := template.New()

	var exec *executor.Executor
	exec = executor.New(reg, log, func() step.Deps {
		return step.Deps{
			Logger:   log,
			Engine:   exec,
			LLM:      facade,
			MCP:      mcpclient.Default,
			Renderer: renderer,
		}
	})

	log.Info("starting recipe", "path", recipePath)
	if err := exec.RunRecipe(context.Background(), rc, recipePath); err != nil {
		log.Error("recipe failed", "path", recipePath, "error", err)
		return err
	}
	log.Info("recipe completed", "path", recipePath)
	return nil
}

// parseSeeds turns "key=value" CLI arguments into a Context seed map. A
// value of the literal token STDIN is replaced by the process's standard
// input, read at most once regardless of how many seeds request it.
func parseSeeds(args []string, readStdin func() (string, error)) (map[string]string, error) {
	seeds := make(map[string]string, len(args))
	var stdin string
	var stdinLoaded bool
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid context seed %q: expected key=value", arg)
		}
		if value == "STDIN" {
			if !stdinLoaded {
				s, err := readStdin()
				if err != nil {
					return nil, fmt.Errorf("reading STDIN for seed %q: %w", key, err)
				}
				stdin = s
				stdinLoaded = true
			}
			value = stdin
		}
		seeds[key] = value
	}
	return seeds, nil
}

func readStdin() (string, error) {
	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return "", nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// buildProviders constructs every LLM Provider this Context's config has
// credentials for; a provider whose required config is absent is simply
// omitted, and a recipe naming it in "model" fails at call time with
// ConfigError, not at startup.
func buildProviders(cfg map[string]interface{}, log *logging.Logger) map[string]llm.Provider {
	out := make(map[string]llm.Provider)

	if key, _ := cfg["openai_api_key"].(string); key != "" {
		if p, err := providers.NewOpenAI(providers.OpenAIConfig{APIKey: key}, log); err == nil {
			out["openai"] = p
		}
		if p, err := providers.NewOpenAIResponses(providers.OpenAIConfig{APIKey: key}, log); err == nil {
			out["openai_responses"] = p
		}
	}
	if key, _ := cfg["anthropic_api_key"].(string); key != "" {
		if p, err := providers.NewAnthropic(providers.AnthropicConfig{APIKey: key}, log); err == nil {
			out["anthropic"] = p
		}
	}
	azureKey, _ := cfg["azure_openai_api_key"].(string)
	azureEndpoint, _ := cfg["azure_openai_base_url"].(string)
	if azureKey != "" && azureEndpoint != "" {
		azureVersion, _ := cfg["azure_openai_api_version"].(string)
		azureCfg := providers.AzureConfig{APIKey: azureKey, Endpoint: azureEndpoint, APIVersion: azureVersion}
		if p, err := providers.NewAzure(azureCfg, log); err == nil {
			out["azure"] = p
		}
		if p, err := providers.NewAzureResponses(azureCfg, log); err == nil {
			out["azure_responses"] = p
		}
	}
	if key, _ := cfg["gemini_api_key"].(string); key != "" {
		if p, err := providers.NewGemini(context.Background(), providers.GeminiConfig{APIKey: key}, log); err == nil {
			out["gemini"] = p
		}
	}
	// Ollama needs no API key; it is always wired, defaulting to localhost.
	baseURL, _ := cfg["ollama_base_url"].(string)
	out["ollama"] = providers.NewOllama(providers.OllamaConfig{BaseURL: baseURL}, log)

	return out
}
