// Package rconfig builds the read-only Context config map: the
// credential/endpoint keys the LLM Facade reads, plus a few engine-wide
// defaults. It is seeded from environment variables and
// then overlaid by an optional ~/.recipe-tool/config.yaml holding
// persisted defaults.
package rconfig

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/robotdad/recipe-tool/internal/rcontext"
)

// envKeys maps each Context config key to the environment variable that
// seeds it.
var envKeys = map[string]string{
	"openai_api_key":               "OPENAI_API_KEY",
	"anthropic_api_key":            "ANTHROPIC_API_KEY",
	"ollama_base_url":              "OLLAMA_BASE_URL",
	"azure_openai_api_key":         "AZURE_OPENAI_API_KEY",
	"azure_openai_base_url":        "AZURE_OPENAI_BASE_URL",
	"azure_openai_api_version":     "AZURE_OPENAI_API_VERSION",
	"azure_openai_deployment_name": "AZURE_OPENAI_DEPLOYMENT_NAME",
	"azure_use_managed_identity":   "AZURE_USE_MANAGED_IDENTITY",
	"azure_client_id":              "AZURE_CLIENT_ID",
	// gemini_api_key is not in the enumerated config-key list (which
	// predates the "gemini" entry in the model-id grammar); added so the
	// gemini provider is actually reachable from Context config.
	"gemini_api_key": "GEMINI_API_KEY",
}

// defaults covers the engine-wide settings not carried by any single
// environment variable.
var defaults = map[string]interface{}{
	"default_model":       "openai/gpt-4o",
	"default_concurrency": 1,
	"recipe_search_roots": []interface{}{"."},
}

// Load seeds a Context config map from environment variables, then
// overlays it with configPath (or ~/.recipe-tool/config.yaml if
// configPath is empty and that file exists). A missing file is not an
// error: the engine runs on env vars and defaults alone.
func Load(configPath string) (map[string]interface{}, error) {
	cfg := make(map[string]interface{}, len(defaults)+len(envKeys))
	for k, v := range defaults {
		cfg[k] = v
	}
	for key, envVar := range envKeys {
		if v := os.Getenv(envVar); v != "" {
			cfg[key] = v
		}
	}

	path := resolvePath(configPath)
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	var overlay map[string]interface{}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, err
	}
	for k, v := range overlay {
		cfg[k] = v
	}
	return cfg, nil
}

// resolvePath returns explicit if set, otherwise the default
// ~/.recipe-tool/config.yaml path if it exists, otherwise "".
func resolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".recipe-tool", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// ApplySeeds overlays key=value context seeds onto rc's artifacts. Seeds
// are plain strings; the Executor templates them like any other artifact.
func ApplySeeds(rc *rcontext.Context, seeds map[string]string) {
	for k, v := range seeds {
		rc.Set(k, v)
	}
}
