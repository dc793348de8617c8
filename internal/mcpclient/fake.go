package mcpclient

import "context"

// FakeDialer and FakeSession give other packages' tests (llm, steps/mcpstep)
// a Dialer that never touches the network, while still exercising the
// acquire/call/release contract Session implementations must honor.
type FakeDialer struct {
	Session *FakeSession
	DialErr error
}

func (f *FakeDialer) Dial(ctx context.Context, h Handle) (Session, error) {
	if f.DialErr != nil {
		return nil, f.DialErr
	}
	return f.Session, nil
}

type FakeSession struct {
	Tools     []ToolDef
	Results   map[string]interface{}
	CallErr   error
	Closed    bool
	CallCount int
}

func (s *FakeSession) ListTools(ctx context.Context) ([]ToolDef, error) { return s.Tools, nil }

func (s *FakeSession) CallTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	s.CallCount++
	if s.CallErr != nil {
		return nil, s.CallErr
	}
	return s.Results[name], nil
}

func (s *FakeSession) Close() error {
	s.Closed = true
	return nil
}
