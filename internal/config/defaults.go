package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/jackzampolin/formshelf/internal/recognize"
	"github.com/jackzampolin/formshelf/internal/record"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// ErrInvalidKey is returned when a config key contains invalid characters.
var ErrInvalidKey = errors.New("invalid config key")

// ErrInvalidConfig is returned when a loaded config names unknown policies.
var ErrInvalidConfig = errors.New("invalid config")

// Entry documents one configuration key.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	if key[0] == '.' || key[len(key)-1] == '.' {
		return fmt.Errorf("%w: key cannot start or end with a dot", ErrInvalidKey)
	}
	return nil
}

// DefaultEntries returns the documented default configuration entries.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	entries := []Entry{
		{"defaults.recognizer", d.Defaults.Recognizer, "Table recognition engine used for uploads"},
		{"defaults.llm_provider", d.Defaults.LLMProvider, "LLM provider for table-to-JSON and field matching"},
		{"defaults.transformer", d.Defaults.Transformer, "Table-to-record transformer: llm or table"},
		{"defaults.reconciler", d.Defaults.Reconciler, "Field-name reconciler: lexical, llm or chain"},
		{"defaults.region_policy", d.Defaults.RegionPolicy, "Which detected table region to use (first)"},
		{"defaults.unmatched_policy", d.Defaults.UnmatchedPolicy, "Fields outside the target lists: drop or strict"},
		{"defaults.request_timeout", d.Defaults.RequestTimeout.String(), "Timeout per recognition, transform and reconcile call"},
		{"defaults.retry_attempts", d.Defaults.RetryAttempts, "Total tries per engine or model call (1 disables retry)"},
		{"defaults.annotate", d.Defaults.Annotate, "Stage uploads and annotated images under the results directory"},
		{"paddle.container_name", d.Paddle.ContainerName, "Docker container name for the table recognition engine"},
		{"paddle.image", d.Paddle.Image, "Docker image serving the table recognition pipeline"},
		{"paddle.port", d.Paddle.Port, "Host port the engine is published on"},
		{"paddle.pipeline", d.Paddle.Pipeline, "Pipeline name passed to the serving container"},
	}

	for _, name := range sortedNames(d.Recognizers) {
		r := d.Recognizers[name]
		prefix := "recognizers." + name
		entries = append(entries,
			Entry{prefix + ".type", r.Type, "Recognizer type for " + name},
			Entry{prefix + ".enabled", r.Enabled, "Whether the " + name + " recognizer is enabled"},
		)
		if r.URL != "" {
			entries = append(entries, Entry{prefix + ".url", r.URL, "Serving endpoint for " + name})
		}
		if r.APIKey != "" {
			entries = append(entries, Entry{prefix + ".api_key", r.APIKey, name + " API key (uses environment variable)"})
		}
	}
	for _, name := range sortedNames(d.LLMProviders) {
		l := d.LLMProviders[name]
		prefix := "llm_providers." + name
		entries = append(entries,
			Entry{prefix + ".type", l.Type, "LLM provider type for " + name},
			Entry{prefix + ".model", l.Model, "Default model for " + name},
			Entry{prefix + ".api_key", l.APIKey, name + " API key (uses environment variable)"},
			Entry{prefix + ".enabled", l.Enabled, "Whether the " + name + " provider is enabled"},
		)
		if l.BaseURL != "" {
			entries = append(entries, Entry{prefix + ".base_url", l.BaseURL, "OpenAI-compatible endpoint for " + name})
		}
	}
	return entries
}

// GetDefault returns the default entry for a config key, or nil.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// Describe returns the entry for key with its effective value.
// Returns ErrNoDefault if key is not a documented key.
func (cm *Manager) Describe(key string) (*Entry, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	def := GetDefault(key)
	if def == nil {
		return nil, fmt.Errorf("%w for key %q", ErrNoDefault, key)
	}
	return &Entry{Key: key, Value: cm.Value(key), Description: def.Description}, nil
}

// Validate rejects unknown transformer, reconciler and policy names.
func (c *Config) Validate() error {
	d := c.Defaults
	switch d.Transformer {
	case TransformerLLM, TransformerTable:
	default:
		return fmt.Errorf("%w: unknown transformer %q", ErrInvalidConfig, d.Transformer)
	}
	switch d.Reconciler {
	case ReconcilerLexical, ReconcilerLLM, ReconcilerChain:
	default:
		return fmt.Errorf("%w: unknown reconciler %q", ErrInvalidConfig, d.Reconciler)
	}
	if _, err := recognize.ParseRegionPolicy(d.RegionPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := record.ParsePolicy(d.UnmatchedPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if d.RequestTimeout < 0 {
		return fmt.Errorf("%w: negative request_timeout", ErrInvalidConfig)
	}
	return nil
}

func toViperKey(key string) string {
	return strings.ReplaceAll(key, ".", keyDelimiter)
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
