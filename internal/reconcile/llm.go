package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackzampolin/formshelf/internal/prompts"
	"github.com/jackzampolin/formshelf/internal/prompts/fieldmatch"
	"github.com/jackzampolin/formshelf/internal/providers"
)

// LLMReconciler asks a language model to pair field names by meaning.
type LLMReconciler struct {
	client   providers.LLMClient
	resolver *prompts.Resolver
	model    string
	logger   *slog.Logger
}

// LLMConfig configures an LLMReconciler.
type LLMConfig struct {
	Client   providers.LLMClient
	Resolver *prompts.Resolver // nil uses the embedded prompt
	Model    string            // empty uses the client default
	Logger   *slog.Logger
}

// NewLLMReconciler creates a model-backed reconciler.
func NewLLMReconciler(cfg LLMConfig) *LLMReconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = prompts.NewResolver(logger)
		fieldmatch.RegisterPrompts(resolver)
	}
	return &LLMReconciler{
		client:   cfg.Client,
		resolver: resolver,
		model:    cfg.Model,
		logger:   logger,
	}
}

// Reconcile implements Reconciler. The reply is filtered so keys are target
// names and values are distinct source names.
func (l *LLMReconciler) Reconcile(ctx context.Context, source, target []string) (Correspondence, error) {
	if len(source) == 0 || len(target) == 0 {
		return Correspondence{}, nil
	}

	prompt, err := fieldmatch.UserPrompt(l.resolver, fieldmatch.Data{
		Source: strings.Join(source, ","),
		Target: strings.Join(target, ","),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render field match prompt: %w", err)
	}

	format, err := providers.NewJSONSchemaFormat(fieldmatch.CorrespondenceSchema)
	if err != nil {
		return nil, err
	}

	result, err := l.client.Chat(ctx, &providers.ChatRequest{
		Model:          l.model,
		Messages:       []providers.Message{{Role: "user", Content: prompt}},
		ResponseFormat: format,
	})
	if err != nil {
		return nil, fmt.Errorf("field match request failed: %w", err)
	}

	parsed := result.ParsedJSON
	if parsed == nil {
		if parsed, err = providers.ParseStructuredJSON(result.Content); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCorrespondence, err)
		}
	}
	if err := providers.ValidateStructuredJSON(format.JSONSchema, parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCorrespondence, err)
	}

	raw, err := decodeCorrespondence(parsed)
	if err != nil {
		return nil, err
	}

	out := raw.Filter(source, target)
	if dropped := len(raw) - len(out); dropped > 0 {
		l.logger.Info("dropped field pairs outside the given lists", "dropped", dropped, "provider", l.client.Name())
	}
	return out, nil
}

func decodeCorrespondence(raw json.RawMessage) (Correspondence, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var c Correspondence
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCorrespondence, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedCorrespondence)
	}
	return c, nil
}
