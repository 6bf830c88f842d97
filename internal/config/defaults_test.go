package config

import (
	"errors"
	"testing"
)

func TestDefaultEntries(t *testing.T) {
	entries := DefaultEntries()
	if len(entries) == 0 {
		t.Fatal("DefaultEntries() returned empty slice")
	}

	requiredKeys := []string{
		"defaults.recognizer",
		"defaults.llm_provider",
		"defaults.transformer",
		"defaults.reconciler",
		"defaults.unmatched_policy",
		"recognizers.paddle.url",
		"llm_providers.moonshot.api_key",
		"llm_providers.moonshot.base_url",
		"paddle.image",
	}

	keys := make(map[string]bool)
	for _, e := range entries {
		if err := ValidateKey(e.Key); err != nil {
			t.Errorf("entry key %q invalid: %v", e.Key, err)
		}
		if keys[e.Key] {
			t.Errorf("duplicate key %q", e.Key)
		}
		keys[e.Key] = true
	}
	for _, key := range requiredKeys {
		if !keys[key] {
			t.Errorf("DefaultEntries() missing required key: %s", key)
		}
	}
}

func TestGetDefault(t *testing.T) {
	t.Run("existing_key", func(t *testing.T) {
		entry := GetDefault("defaults.transformer")
		if entry == nil {
			t.Fatal("GetDefault() returned nil for existing key")
		}
		if entry.Value != TransformerLLM {
			t.Errorf("GetDefault() Value = %v, want %q", entry.Value, TransformerLLM)
		}
	})

	t.Run("non_existent_key", func(t *testing.T) {
		if entry := GetDefault("does.not.exist"); entry != nil {
			t.Errorf("GetDefault() = %v, want nil for non-existent key", entry)
		}
	})
}

func TestManager_Describe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "defaults:\n  reconciler: chain\n"), "")
	if err != nil {
		t.Fatal(err)
	}

	entry, err := mgr.Describe("defaults.reconciler")
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if entry.Value != "chain" || entry.Description == "" {
		t.Errorf("entry = %+v", entry)
	}

	if _, err := mgr.Describe("defaults.nothing"); !errors.Is(err, ErrNoDefault) {
		t.Errorf("unknown key error = %v", err)
	}
	if _, err := mgr.Describe("bad key!"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("invalid key error = %v", err)
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"defaults.transformer", false},
		{"llm_providers.moon-shot.model", false},
		{"", true},
		{".leading", true},
		{"trailing.", true},
		{"has space", true},
		{"semi;colon", true},
	}
	for _, tt := range tests {
		err := ValidateKey(tt.key)
		if tt.wantErr != (err != nil) {
			t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		tweak func(*DefaultsCfg)
	}{
		{"reconciler", func(d *DefaultsCfg) { d.Reconciler = "fuzzy" }},
		{"region policy", func(d *DefaultsCfg) { d.RegionPolicy = "merge" }},
		{"unmatched policy", func(d *DefaultsCfg) { d.UnmatchedPolicy = "keep" }},
		{"timeout", func(d *DefaultsCfg) { d.RequestTimeout = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.tweak(&cfg.Defaults)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
