package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotdad/recipe-tool/internal/mcpclient"
)

type stubProvider struct {
	name string
	resp string
	err  error
	got  ProviderRequest
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Complete(ctx context.Context, req ProviderRequest) (string, error) {
	s.got = req
	return s.resp, s.err
}

func TestParseModelID(t *testing.T) {
	id, err := ParseModelID("openai/gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, ModelID{Provider: "openai", Name: "gpt-4o"}, id)

	id, err = ParseModelID("azure/gpt-4o/my-deployment")
	require.NoError(t, err)
	assert.Equal(t, "my-deployment", id.Deployment)

	id, err = ParseModelID("azure/gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", id.Deployment, "azure defaults deployment to the model name")

	_, err = ParseModelID("gpt-4o")
	assert.Error(t, err)
}

func TestGenerateTextPassthrough(t *testing.T) {
	p := &stubProvider{name: "openai", resp: "hello there"}
	f := New(map[string]Provider{"openai": p}, mcpclient.Default, nil)

	res, err := f.Generate(context.Background(), nil, Request{
		Prompt: "say hi",
		Model:  "openai/gpt-4o",
		Output: OutputSpec{Kind: OutputText},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", res.Text)
	assert.Equal(t, "say hi", p.got.Prompt)
}

func TestGenerateUnknownProvider(t *testing.T) {
	f := New(map[string]Provider{}, mcpclient.Default, nil)
	_, err := f.Generate(context.Background(), nil, Request{Model: "openai/gpt-4o", Output: OutputSpec{Kind: OutputText}})
	assert.Error(t, err)
}

func TestGenerateObjectValidatesSchema(t *testing.T) {
	p := &stubProvider{name: "openai", resp: `{"name": "ada"}`}
	f := New(map[string]Provider{"openai": p}, mcpclient.Default, nil)

	schema := map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"name": map[string]interface{}{"type": "string"}},
		"required":   []interface{}{"name"},
	}

	res, err := f.Generate(context.Background(), nil, Request{
		Model:  "openai/gpt-4o",
		Output: OutputSpec{Kind: OutputObject, Schema: schema},
	})
	require.NoError(t, err)
	assert.Equal(t, "ada", res.Object["name"])
}

func TestGenerateObjectRejectsSchemaViolation(t *testing.T) {
	p := &stubProvider{name: "openai", resp: `{"wrong": "shape"}`}
	f := New(map[string]Provider{"openai": p}, mcpclient.Default, nil)

	schema := map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"name": map[string]interface{}{"type": "string"}},
		"required":   []interface{}{"name"},
	}

	_, err := f.Generate(context.Background(), nil, Request{
		Model:  "openai/gpt-4o",
		Output: OutputSpec{Kind: OutputObject, Schema: schema},
	})
	assert.Error(t, err)
}

func TestGenerateInvalidSchemaFailsBeforeProviderCall(t *testing.T) {
	p := &stubProvider{name: "openai", resp: "never used"}
	f := New(map[string]Provider{"openai": p}, mcpclient.Default, nil)

	_, err := f.Generate(context.Background(), nil, Request{
		Model:  "openai/gpt-4o",
		Output: OutputSpec{Kind: OutputObject, Schema: map[string]interface{}{"type": 42}},
	})
	assert.Error(t, err)
	assert.Empty(t, p.got.Prompt, "provider must not be called when the schema is invalid")
}

func TestGenerateMCPSessionsClosedOnSuccess(t *testing.T) {
	p := &stubProvider{name: "openai", resp: "done"}
	sess := &mcpclient.FakeSession{Tools: []mcpclient.ToolDef{{Name: "search"}}}
	dialer := &mcpclient.FakeDialer{Session: sess}
	f := New(map[string]Provider{"openai": p}, dialer, nil)

	_, err := f.Generate(context.Background(), nil, Request{
		Model:      "openai/gpt-4o",
		Output:     OutputSpec{Kind: OutputText},
		MCPServers: []mcpclient.Handle{{Transport: mcpclient.TransportStdio, Command: "tool"}},
	})
	require.NoError(t, err)
	assert.True(t, sess.Closed)
	assert.Len(t, p.got.Tools, 1)
}

func TestGenerateMCPSessionClosedOnProviderError(t *testing.T) {
	p := &stubProvider{name: "openai", err: assert.AnError}
	sess := &mcpclient.FakeSession{}
	dialer := &mcpclient.FakeDialer{Session: sess}
	f := New(map[string]Provider{"openai": p}, dialer, nil)

	_, err := f.Generate(context.Background(), nil, Request{
		Model:      "openai/gpt-4o",
		Output:     OutputSpec{Kind: OutputText},
		MCPServers: []mcpclient.Handle{{Transport: mcpclient.TransportStdio, Command: "tool"}},
	})
	assert.Error(t, err)
	assert.True(t, sess.Closed)
}
