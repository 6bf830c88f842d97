package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// LLMClient is the interface for chat/completion requests.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openrouter").
	Name() string
}

// TableRecognizer extracts table regions from a form image.
// Separate from LLM because engines return structured regions and an
// optional visualization rather than free text.
type TableRecognizer interface {
	// Name returns the engine identifier (e.g., "paddle", "mistral-ocr").
	Name() string

	// RecognizeTables detects every table region on the image, in reading order.
	RecognizeTables(ctx context.Context, image []byte) (*TableResult, error)
}

// Markup dialects returned by recognizers.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ResponseFormat specifies structured output format.
type ResponseFormat struct {
	Type       string          `json:"type"` // "json_schema" or "json_object"
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

// NewJSONSchemaFormat wraps a schema definition (the map form used by the
// prompt packages) as a ResponseFormat.
func NewJSONSchemaFormat(def map[string]any) (*ResponseFormat, error) {
	inner, ok := def["json_schema"]
	if !ok {
		return nil, fmt.Errorf("schema definition missing json_schema")
	}
	raw, err := json.Marshal(inner)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json schema: %w", err)
	}
	return &ResponseFormat{Type: "json_schema", JSONSchema: raw}, nil
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	// Required
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	// Generation parameters
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// Structured output
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// ChatResult is the complete response from an LLM call.
type ChatResult struct {
	// Response content
	Content    string          `json:"content"`
	ParsedJSON json.RawMessage `json:"parsed_json,omitempty"` // Parsed if ResponseFormat was set

	// Token counts
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Timing
	ExecutionTime time.Duration `json:"execution_time"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	// Request tracking
	RequestID string `json:"request_id"`

	// Success/error
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Box is an axis-aligned rectangle in image pixels: x1, y1, x2, y2.
type Box [4]float64

// TableRegion is one detected table.
type TableRegion struct {
	Markup string  `json:"markup"`
	Format string  `json:"format"`
	BBox   *Box    `json:"bbox,omitempty"`
	Cells  []Box   `json:"cells,omitempty"`
	Score  float64 `json:"score,omitempty"`
}

// TableResult is the response from a table recognizer.
type TableResult struct {
	Regions []TableRegion `json:"regions"`

	// Visualization is an engine-rendered annotated image (any decodable
	// format), nil when the engine returns none.
	Visualization []byte `json:"-"`

	// Raw is the engine's structured result, persisted as res.json.
	Raw json.RawMessage `json:"raw,omitempty"`

	Provider      string        `json:"provider"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// RateLimitError is returned when a provider answers 429.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
	StatusCode int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
	}
	return e.Message
}
