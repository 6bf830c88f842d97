package providers

import (
	"os"
)

// TestConfig holds provider configurations loaded from environment variables.
// Live tests skip themselves when the key they need is missing.
type TestConfig struct {
	OpenRouterAPIKey string
	MistralAPIKey    string
	MoonshotAPIKey   string
	GeminiAPIKey     string
	PaddleURL        string
}

// LoadTestConfig loads provider API keys from environment variables.
// Returns a TestConfig with whatever keys are available.
func LoadTestConfig() TestConfig {
	return TestConfig{
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		MistralAPIKey:    os.Getenv("MISTRAL_API_KEY"),
		MoonshotAPIKey:   os.Getenv("MOONSHOT_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		PaddleURL:        os.Getenv("FORMSHELF_PADDLE_URL"),
	}
}

// HasOpenRouter returns true if OpenRouter API key is configured.
func (c TestConfig) HasOpenRouter() bool {
	return c.OpenRouterAPIKey != ""
}

// HasMistral returns true if Mistral API key is configured.
func (c TestConfig) HasMistral() bool {
	return c.MistralAPIKey != ""
}

// HasMoonshot returns true if a Moonshot API key is configured.
func (c TestConfig) HasMoonshot() bool {
	return c.MoonshotAPIKey != ""
}

// HasGemini returns true if a Gemini API key is configured.
func (c TestConfig) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

// HasPaddle returns true if a PaddleX serving endpoint is configured.
func (c TestConfig) HasPaddle() bool {
	return c.PaddleURL != ""
}

// HasAnyRecognizer returns true if any table recognizer is configured.
func (c TestConfig) HasAnyRecognizer() bool {
	return c.HasMistral() || c.HasPaddle()
}

// HasAnyLLM returns true if any LLM provider is configured.
func (c TestConfig) HasAnyLLM() bool {
	return c.HasOpenRouter() || c.HasMoonshot() || c.HasGemini()
}

// ToRegistryConfig converts test config to a RegistryConfig for the provider registry.
// Only includes providers that are configured.
func (c TestConfig) ToRegistryConfig() RegistryConfig {
	cfg := RegistryConfig{
		Recognizers:  make(map[string]RecognizerConfig),
		LLMProviders: make(map[string]LLMProviderConfig),
	}

	if c.HasOpenRouter() {
		cfg.LLMProviders[OpenRouterName] = LLMProviderConfig{
			Type:      OpenRouterName,
			APIKey:    c.OpenRouterAPIKey,
			RateLimit: 5,
			Enabled:   true,
		}
	}
	if c.HasMoonshot() {
		cfg.LLMProviders["moonshot"] = LLMProviderConfig{
			Type:      OpenAIName,
			BaseURL:   MoonshotBaseURL,
			APIKey:    c.MoonshotAPIKey,
			RateLimit: 3,
			Enabled:   true,
		}
	}
	if c.HasGemini() {
		cfg.LLMProviders[GeminiName] = LLMProviderConfig{
			Type:      GeminiName,
			APIKey:    c.GeminiAPIKey,
			RateLimit: 2,
			Enabled:   true,
		}
	}
	if c.HasMistral() {
		cfg.Recognizers[MistralOCRName] = RecognizerConfig{
			Type:      MistralOCRName,
			APIKey:    c.MistralAPIKey,
			RateLimit: 6,
			Enabled:   true,
		}
	}
	if c.HasPaddle() {
		cfg.Recognizers[PaddleName] = RecognizerConfig{
			Type:    PaddleName,
			URL:     c.PaddleURL,
			Enabled: true,
		}
	}

	return cfg
}
