package llm

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Content json.RawMessage
	// Chunks, when set, are emitted in order by GenerateStream. Content
	// defaults to their concatenation.
	Chunks    []string
	Citations []Citation
	Usage     Usage
	Err       error
	// ErrAfterChunks makes GenerateStream fail with Err only after the
	// chunks have been delivered.
	ErrAfterChunks bool
}

// MockProvider is a deterministic Provider for testing.
// It returns canned responses in FIFO order and records all requests.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// Generate returns the next canned response or ErrProviderUnavailable if
// the queue is empty.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	resp, ok := m.next(req)
	if !ok {
		return nil, &ErrProviderUnavailable{Err: nil}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return resp.response(), nil
}

// GenerateStream emits the next canned response's chunks through onDelta.
// A canceled context stops delivery between chunks.
func (m *MockProvider) GenerateStream(ctx context.Context, req Request, onDelta func(string)) (*Response, error) {
	resp, ok := m.next(req)
	if !ok {
		return nil, &ErrProviderUnavailable{Err: nil}
	}
	if resp.Err != nil && !resp.ErrAfterChunks {
		return nil, resp.Err
	}

	chunks := resp.Chunks
	if len(chunks) == 0 && len(resp.Content) > 0 {
		chunks = []string{string(resp.Content)}
	}
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if onDelta != nil {
			onDelta(c)
		}
	}

	if resp.Err != nil {
		return nil, resp.Err
	}
	return resp.response(), nil
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate and GenerateStream calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or false if none was made.
func (m *MockProvider) LastCall() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return Request{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}

func (m *MockProvider) next(req Request) (MockResponse, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	if len(m.responses) == 0 {
		return MockResponse{}, false
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, true
}

func (r MockResponse) response() *Response {
	content := r.Content
	if len(content) == 0 && len(r.Chunks) > 0 {
		content = json.RawMessage(strings.Join(r.Chunks, ""))
	}
	return &Response{
		Content:    content,
		Citations:  r.Citations,
		Usage:      r.Usage,
		Model:      "mock",
		StopReason: "end",
	}
}
