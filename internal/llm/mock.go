package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockModel is a deterministic BaseChatModel for tests and --offline runs.
// Scripted responses are consumed in order; when the script runs out the
// Default text (or a stable placeholder) is returned. Every prompt is
// recorded for assertions.
type MockModel struct {
	mu        sync.Mutex
	responses []string
	Default   string
	// Err, when set, fails every call. Used to exercise fallback paths.
	Err error

	prompts []string
	calls   int
}

// NewMockModel scripts a mock with the given responses.
func NewMockModel(responses []string) *MockModel {
	return &MockModel{responses: responses}
}

// compile-time interface check
var _ model.BaseChatModel = (*MockModel)(nil)

// Generate returns the next scripted response.
func (m *MockModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(input) > 0 {
		m.prompts = append(m.prompts, input[len(input)-1].Content)
	}
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}

	var text string
	switch {
	case len(m.responses) > 0:
		text = m.responses[0]
		m.responses = m.responses[1:]
	case m.Default != "":
		text = m.Default
	default:
		text = fmt.Sprintf("mock response %d", m.calls)
	}
	return schema.AssistantMessage(text, nil), nil
}

// Stream returns the Generate result as a single-chunk stream.
func (m *MockModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// Script replaces the remaining scripted responses.
func (m *MockModel) Script(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append([]string{}, responses...)
}

// Prompts returns every prompt seen so far.
func (m *MockModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.prompts...)
}

// Calls returns how many completions were requested.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
