package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	MockClientName     = "mock"
	MockRecognizerName = "mock"
)

// SampleFormHTML is the table the mock recognizer returns by default: a
// small delivery note with header fields, three line items and a total.
const SampleFormHTML = `<html><body><table>` +
	`<tr><td>客户名称</td><td>华东贸易有限公司</td><td>日期</td><td>2024-03-18</td></tr>` +
	`<tr><td>品名</td><td>数量</td><td>单价</td><td>金额</td></tr>` +
	`<tr><td>螺丝</td><td>100</td><td>0.5</td><td>50</td></tr>` +
	`<tr><td>螺母</td><td>200</td><td>0.3</td><td>60</td></tr>` +
	`<tr><td>垫片</td><td>50</td><td>0.2</td><td>10</td></tr>` +
	`<tr><td>合计</td><td></td><td></td><td>120</td></tr>` +
	`</table></body></html>`

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	ResponseJSON json.RawMessage
	// Handler, when set, produces the response text for each request.
	Handler func(req *ChatRequest) (string, error)

	// State
	requestCount atomic.Int64
	mu           sync.Mutex
	lastRequest  *ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      time.Millisecond,
		ResponseText: `{"main": {}}`,
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.lastRequest = req
	c.mu.Unlock()

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
	}
	fail := func(kind string, err error) (*ChatResult, error) {
		result.ErrorType = kind
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	if c.ShouldFail {
		return fail("mock_failure", fmt.Errorf("mock client configured to fail"))
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		return fail("mock_failure", fmt.Errorf("mock client failed after %d requests", c.FailAfter))
	}

	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
		return fail("context_cancelled", ctx.Err())
	}

	content := c.ResponseText
	if len(c.ResponseJSON) > 0 {
		content = string(c.ResponseJSON)
	}
	if c.Handler != nil {
		text, err := c.Handler(req)
		if err != nil {
			return fail("mock_failure", err)
		}
		content = text
	}

	result.Success = true
	result.Content = content
	result.ExecutionTime = time.Since(start)

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4 // Rough estimate
	}
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(content) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens

	if req.ResponseFormat != nil {
		if parsed, err := ParseStructuredJSON(content); err == nil {
			result.ParsedJSON = parsed
		}
	}

	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// LastRequest returns the most recent request, or nil.
func (c *MockClient) LastRequest() *ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRequest
}

// Reset resets the request counter.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)

// MockTableRecognizer is a TableRecognizer for testing.
type MockTableRecognizer struct {
	ProviderName  string
	Latency       time.Duration
	ShouldFail    bool
	FailAfter     int
	Regions       []TableRegion
	Visualization []byte

	requestCount atomic.Int64
}

// NewMockTableRecognizer creates a mock recognizer returning SampleFormHTML.
func NewMockTableRecognizer() *MockTableRecognizer {
	return &MockTableRecognizer{
		ProviderName: MockRecognizerName,
		Latency:      time.Millisecond,
		Regions: []TableRegion{{
			Markup: SampleFormHTML,
			Format: FormatHTML,
			BBox:   &Box{10, 10, 410, 250},
		}},
	}
}

// Name returns the provider identifier.
func (p *MockTableRecognizer) Name() string {
	return p.ProviderName
}

// RecognizeTables returns the configured regions.
func (p *MockTableRecognizer) RecognizeTables(ctx context.Context, image []byte) (*TableResult, error) {
	start := time.Now()
	count := p.requestCount.Add(1)

	if p.ShouldFail {
		return nil, fmt.Errorf("mock recognizer configured to fail")
	}
	if p.FailAfter > 0 && int(count) > p.FailAfter {
		return nil, fmt.Errorf("mock recognizer failed after %d requests", p.FailAfter)
	}

	select {
	case <-time.After(p.Latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	regions := append([]TableRegion(nil), p.Regions...)
	raw, err := json.Marshal(map[string]any{
		"image_bytes": len(image),
		"regions":     regions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode mock result: %w", err)
	}

	return &TableResult{
		Regions:       regions,
		Visualization: p.Visualization,
		Raw:           raw,
		Provider:      p.ProviderName,
		ExecutionTime: time.Since(start),
	}, nil
}

// RequestCount returns the number of requests made.
func (p *MockTableRecognizer) RequestCount() int64 {
	return p.requestCount.Load()
}

// Verify interface
var _ TableRecognizer = (*MockTableRecognizer)(nil)
