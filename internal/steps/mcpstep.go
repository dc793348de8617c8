package steps

import (
	"context"

	"github.com/robotdad/recipe-tool/internal/rcontext"
	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/step"
)

type mcpStep struct {
	deps      step.Deps
	server    interface{}
	toolName  interface{}
	arguments interface{}
	resultKey interface{}
}

// NewMCP builds the mcp step: a direct tool call against one MCP server,
// as opposed to llm_generate's indirect tool exposure.
func NewMCP(deps step.Deps, cfg map[string]interface{}) (step.Step, error) {
	server, ok := cfg["server"]
	if !ok {
		return nil, rerrors.ConfigError("mcp", "missing required field \"server\"")
	}
	toolName, ok := cfg["tool_name"]
	if !ok {
		return nil, rerrors.ConfigError("mcp", "missing required field \"tool_name\"")
	}
	resultKey, ok := cfg["result_key"]
	if !ok {
		return nil, rerrors.ConfigError("mcp", "missing required field \"result_key\"")
	}
	return &mcpStep{
		deps:      deps,
		server:    server,
		toolName:  toolName,
		arguments: cfg["arguments"],
		resultKey: resultKey,
	}, nil
}

func (s *mcpStep) Execute(ctx context.Context, rc *rcontext.Context) error {
	if s.deps.MCP == nil {
		return rerrors.ConfigError("mcp", "no MCP dialer configured")
	}

	serverCfg, err := renderAny(s.deps, rc, s.server)
	if err != nil {
		return err
	}
	m, ok := serverCfg.(map[string]interface{})
	if !ok {
		return rerrors.ConfigError("mcp", "\"server\" must be a mapping")
	}
	handle, err := parseMCPHandle(m)
	if err != nil {
		return err
	}

	toolName, err := renderString(s.deps, rc, s.toolName)
	if err != nil {
		return err
	}
	resultKey, err := renderString(s.deps, rc, s.resultKey)
	if err != nil {
		return err
	}

	var arguments map[string]interface{}
	if s.arguments != nil {
		rendered, err := renderAny(s.deps, rc, s.arguments)
		if err != nil {
			return err
		}
		arguments, ok = rendered.(map[string]interface{})
		if !ok {
			return rerrors.ConfigError("mcp", "\"arguments\" must be a mapping")
		}
	}

	sess, err := s.deps.MCP.Dial(ctx, handle)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	result, err := sess.CallTool(ctx, toolName, arguments)
	if err != nil {
		return err
	}

	rc.Set(resultKey, result)
	return nil
}
