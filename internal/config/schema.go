package config

import "time"

// Config holds formshelf configuration.
// Stored at: {home}/config.yaml or ./config.yaml
type Config struct {
	Recognizers  map[string]RecognizerCfg  `mapstructure:"recognizers" yaml:"recognizers"`
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	// Aliases lists synonyms per canonical field name for lexical matching.
	Aliases map[string][]string `mapstructure:"aliases" yaml:"aliases"`
	Paddle  PaddleCfg           `mapstructure:"paddle" yaml:"paddle"`
	// Prompts overrides embedded prompt text by prompt key.
	Prompts map[string]string `mapstructure:"prompts" yaml:"prompts,omitempty"`
}

// RecognizerCfg configures a table recognition engine.
type RecognizerCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`             // "paddle", "mistral-ocr", "mock"
	URL       string  `mapstructure:"url" yaml:"url,omitempty"`     // Serving endpoint (paddle)
	Model     string  `mapstructure:"model" yaml:"model,omitempty"` // Model name (mistral-ocr)
	APIKey    string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	Visualize bool    `mapstructure:"visualize" yaml:"visualize"`
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"` // "openrouter", "openai", "gemini", "mock"
	Model     string  `mapstructure:"model" yaml:"model"`
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg selects providers and pipeline policy.
type DefaultsCfg struct {
	Recognizer      string        `mapstructure:"recognizer" yaml:"recognizer"`
	LLMProvider     string        `mapstructure:"llm_provider" yaml:"llm_provider"`
	Transformer     string        `mapstructure:"transformer" yaml:"transformer"`           // "llm" or "table"
	Reconciler      string        `mapstructure:"reconciler" yaml:"reconciler"`             // "lexical", "llm" or "chain"
	RegionPolicy    string        `mapstructure:"region_policy" yaml:"region_policy"`       // "first"
	UnmatchedPolicy string        `mapstructure:"unmatched_policy" yaml:"unmatched_policy"` // "drop" or "strict"
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	RetryAttempts   uint          `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	Annotate        bool          `mapstructure:"annotate" yaml:"annotate"`
}

// PaddleCfg holds the table recognition serving container configuration.
type PaddleCfg struct {
	// ContainerName is the Docker container name (default: formshelf-paddle)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 8866)
	Port string `mapstructure:"port" yaml:"port"`
	// Pipeline is the PaddleX pipeline served by the container
	Pipeline string `mapstructure:"pipeline" yaml:"pipeline"`
}

// Transformer and reconciler kinds accepted in defaults.
const (
	TransformerLLM   = "llm"
	TransformerTable = "table"

	ReconcilerLexical = "lexical"
	ReconcilerLLM     = "llm"
	ReconcilerChain   = "chain"
)

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Recognizers: map[string]RecognizerCfg{
			"paddle": {
				Type:      "paddle",
				URL:       "http://localhost:8866",
				Visualize: true,
				Enabled:   true,
			},
			"mistral": {
				Type:      "mistral-ocr",
				APIKey:    "${MISTRAL_API_KEY}",
				RateLimit: 6.0,
				Enabled:   false,
			},
		},
		LLMProviders: map[string]LLMProviderCfg{
			"moonshot": {
				Type:    "openai",
				Model:   "moonshot-v1-8k",
				BaseURL: "https://api.moonshot.cn/v1",
				APIKey:  "${MOONSHOT_API_KEY}",
				Enabled: true,
			},
			"openrouter": {
				Type:    "openrouter",
				Model:   "anthropic/claude-sonnet-4",
				APIKey:  "${OPENROUTER_API_KEY}",
				Enabled: true,
			},
			"gemini": {
				Type:    "gemini",
				Model:   "gemini-1.5-flash",
				APIKey:  "${GEMINI_API_KEY}",
				Enabled: false,
			},
		},
		Defaults: DefaultsCfg{
			Recognizer:      "paddle",
			LLMProvider:     "moonshot",
			Transformer:     TransformerLLM,
			Reconciler:      ReconcilerLexical,
			RegionPolicy:    "first",
			UnmatchedPolicy: "drop",
			RequestTimeout:  2 * time.Minute,
			RetryAttempts:   1,
			Annotate:        true,
		},
		Aliases: map[string][]string{
			"品名": {"名称", "货品名称", "商品名称", "产品名称", "name", "item", "product"},
			"数量": {"qty", "quantity", "count"},
			"单价": {"price", "unit price"},
			"金额": {"amount", "total price"},
			"日期": {"date"},
		},
		Paddle: PaddleCfg{
			ContainerName: "formshelf-paddle",
			Image:         "ccr-2vdh3abv-pub.cnc.bj.baidubce.com/paddlex/paddlex:paddlex3.0.0-paddlepaddle3.0.0-cpu",
			Port:          "8866",
			Pipeline:      "table_recognition",
		},
	}
}

// GetRecognizer returns a recognizer config by name.
func (c *Config) GetRecognizer(name string) (RecognizerCfg, bool) {
	cfg, ok := c.Recognizers[name]
	return cfg, ok
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledRecognizers returns all enabled recognizers.
func (c *Config) EnabledRecognizers() map[string]RecognizerCfg {
	result := make(map[string]RecognizerCfg)
	for name, cfg := range c.Recognizers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// NeedsLLM reports whether the configured pipeline calls a language model.
func (c *Config) NeedsLLM() bool {
	return c.Defaults.Transformer == TransformerLLM ||
		c.Defaults.Reconciler == ReconcilerLLM ||
		c.Defaults.Reconciler == ReconcilerChain
}
