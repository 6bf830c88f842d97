package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry holds references to LLM clients and table recognizers.
// It supports config-driven instantiation, hot-reload, and provides thread-safe access.
type Registry struct {
	mu          sync.RWMutex
	llmClients  map[string]LLMClient
	recognizers map[string]TableRecognizer
	llmCfgs     map[string]LLMProviderConfig
	recCfgs     map[string]RecognizerConfig
	logger      *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients:  make(map[string]LLMClient),
		recognizers: make(map[string]TableRecognizer),
		llmCfgs:     make(map[string]LLMProviderConfig),
		recCfgs:     make(map[string]RecognizerConfig),
		logger:      slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	delete(r.llmCfgs, name)
	r.logger.Info("registered LLM client", "name", name)
}

// RegisterRecognizer registers a table recognizer by name.
func (r *Registry) RegisterRecognizer(name string, rec TableRecognizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recognizers[name] = rec
	delete(r.recCfgs, name)
	r.logger.Info("registered table recognizer", "name", name)
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// GetRecognizer returns a table recognizer by name.
func (r *Registry) GetRecognizer(name string) (TableRecognizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recognizers[name]
	if !ok {
		return nil, fmt.Errorf("table recognizer not found: %s", name)
	}
	return rec, nil
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.llmClients)
}

// ListRecognizers returns all registered recognizer names, sorted.
func (r *Registry) ListRecognizers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.recognizers)
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// HasRecognizer checks if a recognizer is registered.
func (r *Registry) HasRecognizer(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.recognizers[name]
	return ok
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	Recognizers  map[string]RecognizerConfig
	LLMProviders map[string]LLMProviderConfig
}

// RecognizerConfig matches config.RecognizerCfg with resolved API key.
type RecognizerConfig struct {
	Type      string  // "paddle", "mistral-ocr", "mock"
	URL       string  // Serving endpoint (paddle) or API base URL
	Model     string  // Model name (mistral-ocr)
	APIKey    string  // Resolved API key
	RateLimit float64 // Requests per second
	Visualize bool    // Request engine-rendered annotations (paddle)
	Enabled   bool
}

// LLMProviderConfig matches config.LLMProviderCfg with resolved API key.
type LLMProviderConfig struct {
	Type      string  // "openrouter", "openai", "gemini", "mock"
	Model     string  // Model name
	BaseURL   string  // Optional endpoint override (openai-compatible backends)
	APIKey    string  // Resolved API key
	RateLimit float64 // Requests per second
	Enabled   bool
}

// RequiresAPIKey reports whether a provider type authenticates with a key.
func RequiresAPIKey(providerType string) bool {
	switch providerType {
	case PaddleName, MockClientName:
		return false
	default:
		return true
	}
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with the credentials they need are registered.
func NewRegistryFromConfig(cfg RegistryConfig, logger *slog.Logger) *Registry {
	r := NewRegistry()
	if logger != nil {
		r.logger = logger
	}
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured are unregistered; providers with
// changed settings are re-created.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wantLLM := make(map[string]bool)
	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.Enabled || (RequiresAPIKey(provCfg.Type) && provCfg.APIKey == "") {
			continue
		}
		wantLLM[name] = true

		prev, hasExisting := r.llmCfgs[name]
		if hasExisting && prev == provCfg {
			continue
		}
		client := createLLMClient(provCfg)
		if client == nil {
			r.logger.Warn("unknown LLM provider type", "name", name, "type", provCfg.Type)
			delete(wantLLM, name)
			continue
		}
		r.llmClients[name] = client
		r.llmCfgs[name] = provCfg
		if hasExisting {
			r.logger.Info("updated LLM client", "name", name, "type", provCfg.Type)
		} else {
			r.logger.Info("registered LLM client", "name", name, "type", provCfg.Type)
		}
	}

	wantRec := make(map[string]bool)
	for name, recCfg := range cfg.Recognizers {
		if !recCfg.Enabled || (RequiresAPIKey(recCfg.Type) && recCfg.APIKey == "") {
			continue
		}
		wantRec[name] = true

		prev, hasExisting := r.recCfgs[name]
		if hasExisting && prev == recCfg {
			continue
		}
		rec := createRecognizer(recCfg)
		if rec == nil {
			r.logger.Warn("unknown recognizer type", "name", name, "type", recCfg.Type)
			delete(wantRec, name)
			continue
		}
		r.recognizers[name] = rec
		r.recCfgs[name] = recCfg
		if hasExisting {
			r.logger.Info("updated table recognizer", "name", name, "type", recCfg.Type)
		} else {
			r.logger.Info("registered table recognizer", "name", name, "type", recCfg.Type)
		}
	}

	// Only config-managed entries are removed; manual registrations stay.
	for name := range r.llmCfgs {
		if !wantLLM[name] {
			delete(r.llmClients, name)
			delete(r.llmCfgs, name)
			r.logger.Info("unregistered LLM client", "name", name)
		}
	}
	for name := range r.recCfgs {
		if !wantRec[name] {
			delete(r.recognizers, name)
			delete(r.recCfgs, name)
			r.logger.Info("unregistered table recognizer", "name", name)
		}
	}
}

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(cfg LLMProviderConfig) LLMClient {
	switch cfg.Type {
	case OpenRouterName:
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			RPS:          cfg.RateLimit,
		})
	case OpenAIName:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			RPS:          cfg.RateLimit,
		})
	case GeminiName:
		return NewGeminiClient(GeminiConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
			RPS:          cfg.RateLimit,
		})
	case MockClientName:
		return NewMockClient()
	default:
		return nil
	}
}

// createRecognizer creates a table recognizer based on provider type.
func createRecognizer(cfg RecognizerConfig) TableRecognizer {
	switch cfg.Type {
	case PaddleName:
		return NewPaddleClient(PaddleConfig{
			BaseURL:   cfg.URL,
			RateLimit: cfg.RateLimit,
			Visualize: cfg.Visualize,
		})
	case MistralOCRName:
		return NewMistralOCRClient(MistralOCRConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.URL,
			Model:     cfg.Model,
			RateLimit: cfg.RateLimit,
		})
	case MockRecognizerName:
		return NewMockTableRecognizer()
	default:
		return nil
	}
}
