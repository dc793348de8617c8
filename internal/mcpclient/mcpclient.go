// Package mcpclient implements the MCP Server Handle: a tagged descriptor
// for an external tool server (HTTP/SSE or stdio), dialed on demand and
// released on every exit path of an LLM call or the mcp step. Built on
// github.com/mark3labs/mcp-go.
package mcpclient

import (
	"context"
	"fmt"

	mcpgo "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/robotdad/recipe-tool/internal/rerrors"
)

// Transport identifies which wire transport a Handle uses.
type Transport string

const (
	TransportHTTPSSE Transport = "http_sse"
	TransportStdio   Transport = "stdio"
)

// Handle is a tagged variant: either an HTTP/SSE descriptor or a stdio
// descriptor.
type Handle struct {
	Transport Transport

	// HTTP/SSE fields.
	URL     string
	Headers map[string]string

	// stdio fields.
	Command string
	Args    []string
	Env     map[string]string
	Dir     string
}

// ToolDef describes one tool a server exposes, surfaced to the LLM Facade
// so a provider's tool-calling API can be told about it.
type ToolDef struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// Session is a live connection to one MCP server, scoped to a single
// caller (an llm_generate invocation or the mcp step).
type Session interface {
	ListTools(ctx context.Context) ([]ToolDef, error)
	CallTool(ctx context.Context, name string, arguments map[string]interface{}) (interface{}, error)
	Close() error
}

// Dialer acquires a Session for a Handle. Implementations must make
// acquisition and release symmetric across every exit path, including
// cancellation.
type Dialer interface {
	Dial(ctx context.Context, handle Handle) (Session, error)
}

// Default is the production Dialer, backed by mark3labs/mcp-go.
var Default Dialer = defaultDialer{}

type defaultDialer struct{}

func (defaultDialer) Dial(ctx context.Context, h Handle) (Session, error) {
	switch h.Transport {
	case TransportHTTPSSE:
		return dialHTTPSSE(ctx, h)
	case TransportStdio:
		return dialStdio(ctx, h)
	default:
		return nil, rerrors.MCPError("transport", nil, "unknown MCP transport %q", h.Transport)
	}
}

func dialHTTPSSE(ctx context.Context, h Handle) (Session, error) {
	if h.URL == "" {
		return nil, rerrors.MCPError("url", nil, "http_sse MCP handle requires a url")
	}

	opts := []transport.ClientOption{}
	if len(h.Headers) > 0 {
		opts = append(opts, transport.WithHeaders(h.Headers))
	}

	c, err := mcpgo.NewSSEMCPClient(h.URL, opts...)
	if err != nil {
		return nil, rerrors.MCPError(h.URL, err, "failed to create SSE MCP client")
	}
	if err := c.Start(ctx); err != nil {
		return nil, rerrors.MCPError(h.URL, err, "failed to start SSE MCP client")
	}
	if err := initialize(ctx, c); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &session{client: c}, nil
}

func dialStdio(ctx context.Context, h Handle) (Session, error) {
	if h.Command == "" {
		return nil, rerrors.MCPError("command", nil, "stdio MCP handle requires a command")
	}

	env := make([]string, 0, len(h.Env))
	for k, v := range h.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	c, err := mcpgo.NewStdioMCPClient(h.Command, env, h.Args...)
	if err != nil {
		return nil, rerrors.MCPError(h.Command, err, "failed to launch stdio MCP server")
	}
	if err := initialize(ctx, c); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &session{client: c}, nil
}

func initialize(ctx context.Context, c *mcpgo.Client) error {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "recipe-tool", Version: "1.0.0"}
	if _, err := c.Initialize(ctx, req); err != nil {
		return rerrors.MCPError("initialize", err, "failed to initialize MCP session")
	}
	return nil
}

type session struct {
	client *mcpgo.Client
}

func (s *session) ListTools(ctx context.Context) ([]ToolDef, error) {
	resp, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, rerrors.MCPError("list_tools", err, "failed to list MCP tools")
	}
	out := make([]ToolDef, 0, len(resp.Tools))
	for _, t := range resp.Tools {
		schema, _ := schemaToMap(t.InputSchema)
		out = append(out, ToolDef{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return out, nil
}

func (s *session) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (interface{}, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = arguments

	resp, err := s.client.CallTool(ctx, req)
	if err != nil {
		return nil, rerrors.MCPError(name, err, "MCP tool call failed")
	}
	if resp.IsError {
		return nil, rerrors.MCPError(name, nil, "MCP tool %q reported an error", name)
	}

	results := make([]interface{}, 0, len(resp.Content))
	for _, c := range resp.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			results = append(results, tc.Text)
		} else {
			results = append(results, c)
		}
	}
	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}

func (s *session) Close() error {
	return s.client.Close()
}

// schemaToMap best-effort converts the SDK's typed input-schema struct to a
// plain map so callers can feed it straight into the jsonschema validator
// that package llm uses for llm_generate's structured output.
func schemaToMap(schema mcp.ToolInputSchema) (map[string]interface{}, error) {
	out := map[string]interface{}{
		"type":       schema.Type,
		"properties": schema.Properties,
	}
	if len(schema.Required) > 0 {
		out["required"] = schema.Required
	}
	return out, nil
}
