package providers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMockClient(t *testing.T) {
	t.Run("chat", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseText = "hello world"

		result, err := c.Chat(context.Background(), &ChatRequest{
			Model:    "test-model",
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Errorf("Success = false, want true")
		}
		if result.Content != "hello world" {
			t.Errorf("Content = %q, want %q", result.Content, "hello world")
		}
		if c.RequestCount() != 1 {
			t.Errorf("RequestCount = %d, want 1", c.RequestCount())
		}
		if c.LastRequest().Model != "test-model" {
			t.Errorf("LastRequest().Model = %q", c.LastRequest().Model)
		}
	})

	t.Run("structured output", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseJSON = json.RawMessage(`{"main": {"客户": "张三"}}`)

		result, err := c.Chat(context.Background(), &ChatRequest{
			Messages:       []Message{{Role: "user", Content: "test"}},
			ResponseFormat: &ResponseFormat{Type: "json_schema"},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if string(result.ParsedJSON) != `{"main":{"客户":"张三"}}` {
			t.Errorf("ParsedJSON = %s", result.ParsedJSON)
		}
	})

	t.Run("handler", func(t *testing.T) {
		c := NewMockClient()
		c.Handler = func(req *ChatRequest) (string, error) {
			if len(req.Messages) == 0 {
				return "", errors.New("no messages")
			}
			return req.Messages[0].Content + "!", nil
		}

		result, err := c.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "echo"}},
		})
		if err != nil || result.Content != "echo!" {
			t.Errorf("Chat() = %q, %v", result.Content, err)
		}
		if _, err := c.Chat(context.Background(), &ChatRequest{}); err == nil {
			t.Error("expected handler error")
		}
	})

	t.Run("failure", func(t *testing.T) {
		c := NewMockClient()
		c.ShouldFail = true

		result, err := c.Chat(context.Background(), &ChatRequest{})
		if err == nil {
			t.Error("expected error, got nil")
		}
		if result.Success {
			t.Error("expected Success = false")
		}
	})

	t.Run("fail after N", func(t *testing.T) {
		c := NewMockClient()
		c.FailAfter = 2

		for i := 0; i < 2; i++ {
			if _, err := c.Chat(context.Background(), &ChatRequest{}); err != nil {
				t.Fatalf("request %d should succeed: %v", i+1, err)
			}
		}
		if _, err := c.Chat(context.Background(), &ChatRequest{}); err == nil {
			t.Error("third request should fail")
		}

		c.Reset()
		if c.RequestCount() != 0 {
			t.Errorf("RequestCount after Reset = %d", c.RequestCount())
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		c := NewMockClient()
		c.Latency = 5 * time.Second

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Chat(ctx, &ChatRequest{})
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestMockTableRecognizer(t *testing.T) {
	t.Run("default sample form", func(t *testing.T) {
		p := NewMockTableRecognizer()

		result, err := p.RecognizeTables(context.Background(), []byte("fake image"))
		if err != nil {
			t.Fatalf("RecognizeTables() error = %v", err)
		}
		if len(result.Regions) != 1 || result.Regions[0].Markup != SampleFormHTML {
			t.Errorf("regions = %+v", result.Regions)
		}
		if !json.Valid(result.Raw) {
			t.Errorf("raw is not JSON: %s", result.Raw)
		}
		if result.Provider != MockRecognizerName {
			t.Errorf("provider = %q", result.Provider)
		}
	})

	t.Run("no regions", func(t *testing.T) {
		p := NewMockTableRecognizer()
		p.Regions = nil

		result, err := p.RecognizeTables(context.Background(), nil)
		if err != nil {
			t.Fatalf("RecognizeTables() error = %v", err)
		}
		if len(result.Regions) != 0 {
			t.Errorf("regions = %d, want 0", len(result.Regions))
		}
	})

	t.Run("fail after N", func(t *testing.T) {
		p := NewMockTableRecognizer()
		p.FailAfter = 1

		if _, err := p.RecognizeTables(context.Background(), nil); err != nil {
			t.Fatalf("first request should succeed: %v", err)
		}
		if _, err := p.RecognizeTables(context.Background(), nil); err == nil {
			t.Error("second request should fail")
		}
		if p.RequestCount() != 2 {
			t.Errorf("RequestCount = %d, want 2", p.RequestCount())
		}
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows burst", func(t *testing.T) {
		limiter := NewRateLimiter(10)

		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := limiter.Wait(context.Background()); err != nil {
				t.Fatalf("request %d failed: %v", i, err)
			}
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("took too long: %v", elapsed)
		}
	})

	t.Run("status", func(t *testing.T) {
		limiter := NewRateLimiter(60)

		status := limiter.Status()
		if status.RequestsPerSec != 60 {
			t.Errorf("RequestsPerSec = %f, want 60", status.RequestsPerSec)
		}
		if status.TokensAvailable <= 0 {
			t.Error("expected positive tokens available")
		}
	})

	t.Run("fractional rate keeps one token", func(t *testing.T) {
		limiter := NewRateLimiter(0.5)
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("first Wait() error = %v", err)
		}
	})

	t.Run("record 429 drains bucket", func(t *testing.T) {
		limiter := NewRateLimiter(1)
		limiter.Record429()

		status := limiter.Status()
		if status.Last429Time.IsZero() {
			t.Error("Last429Time should be set")
		}
		if status.TokensAvailable != 0 {
			t.Errorf("TokensAvailable = %d, want 0", status.TokensAvailable)
		}
	})

	t.Run("respects cancellation", func(t *testing.T) {
		limiter := NewRateLimiter(1)
		limiter.Wait(context.Background())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := limiter.Wait(ctx); err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("concurrent requests", func(t *testing.T) {
		limiter := NewRateLimiter(100)

		var wg sync.WaitGroup
		var failures atomic.Int32
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := limiter.Wait(context.Background()); err != nil {
					failures.Add(1)
				}
			}()
		}
		wg.Wait()

		if failures.Load() > 0 {
			t.Errorf("had %d errors", failures.Load())
		}
		if status := limiter.Status(); status.TotalConsumed != 10 {
			t.Errorf("TotalConsumed = %d, want 10", status.TotalConsumed)
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	tests := map[string]time.Duration{
		"":     0,
		"2":    2 * time.Second,
		"0.5":  500 * time.Millisecond,
		"-1":   0,
		"soon": 0,
	}
	for in, want := range tests {
		if got := parseRetryAfter(in); got != want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig{MoonshotAPIKey: "m", PaddleURL: "http://paddle:8080"}
	regCfg := cfg.ToRegistryConfig()

	if !cfg.HasAnyLLM() || !cfg.HasAnyRecognizer() {
		t.Error("expected LLM and recognizer to be configured")
	}
	if p, ok := regCfg.LLMProviders["moonshot"]; !ok || p.Type != OpenAIName || p.BaseURL != MoonshotBaseURL {
		t.Errorf("moonshot provider = %+v", p)
	}
	if r, ok := regCfg.Recognizers[PaddleName]; !ok || r.URL != "http://paddle:8080" {
		t.Errorf("paddle recognizer = %+v", r)
	}
	if _, ok := regCfg.LLMProviders[OpenRouterName]; ok {
		t.Error("openrouter should not be configured without a key")
	}
}
