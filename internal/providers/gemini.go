package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const (
	GeminiName         = "gemini"
	geminiDefaultModel = "gemini-1.5-flash"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey       string
	DefaultModel string
	RPS          float64
}

// GeminiClient implements LLMClient using the Google generative AI SDK.
// The SDK client is created on first use and shared afterwards.
type GeminiClient struct {
	apiKey       string
	defaultModel string
	rps          float64
	limiter      *RateLimiter

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = geminiDefaultModel
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 2
	}
	return &GeminiClient{
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		rps:          cfg.RPS,
		limiter:      NewRateLimiter(cfg.RPS),
	}
}

// Name returns the client identifier.
func (c *GeminiClient) Name() string {
	return GeminiName
}

func (c *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini API key is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	c.client = cl
	return cl, nil
}

// Close releases the SDK client.
func (c *GeminiClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// Chat sends the conversation to Gemini. Structured output requests the
// JSON MIME type.
func (c *GeminiClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	modelName := strings.TrimSpace(req.Model)
	if modelName == "" {
		modelName = c.defaultModel
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  GeminiName,
		ModelUsed: modelName,
	}
	fail := func(kind string, err error) (*ChatResult, error) {
		result.ErrorType = kind
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	cl, err := c.sdk(ctx)
	if err != nil {
		return fail("client_error", err)
	}

	model := cl.GenerativeModel(modelName)
	parts, err := configureGeminiModel(model, req)
	if err != nil {
		return fail("invalid_request", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fail("context_cancelled", err)
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return fail("http_error", fmt.Errorf("gemini generate failed: %w", err))
	}
	if err := fillGeminiResult(result, resp, req.ResponseFormat != nil); err != nil {
		return fail("empty_response", err)
	}
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// configureGeminiModel applies the request's generation settings to model
// and returns the parts to send. System messages become the system
// instruction.
func configureGeminiModel(model *genai.GenerativeModel, req *ChatRequest) ([]genai.Part, error) {
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		n := int32(req.MaxTokens)
		model.GenerationConfig.MaxOutputTokens = &n
	}
	if req.ResponseFormat != nil {
		model.GenerationConfig.ResponseMIMEType = "application/json"
	}

	var system []genai.Part
	var parts []genai.Part
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = append(system, genai.Text(m.Content))
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: system}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no user content")
	}
	return parts, nil
}

// fillGeminiResult copies text and usage from resp into result. With
// structured set, a JSON parse failure is recorded on the result but the
// call still counts as a success.
func fillGeminiResult(result *ChatResult, resp *genai.GenerateContentResponse, structured bool) error {
	content := geminiText(resp)
	if content == "" {
		return fmt.Errorf("gemini returned no text")
	}

	result.Success = true
	result.Content = content
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	if structured {
		if parsed, err := ParseStructuredJSON(content); err == nil {
			result.ParsedJSON = parsed
		} else {
			result.ErrorType = "json_parse"
			result.ErrorMessage = fmt.Sprintf("failed to parse JSON response: %v", err)
		}
	}
	return nil
}

// geminiText concatenates the text parts of the first candidate that has any.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }

// Verify interface
var _ LLMClient = (*GeminiClient)(nil)
