package transform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackzampolin/formshelf/internal/prompts"
	"github.com/jackzampolin/formshelf/internal/prompts/tabletojson"
	"github.com/jackzampolin/formshelf/internal/providers"
	"github.com/jackzampolin/formshelf/internal/record"
	"github.com/jackzampolin/formshelf/internal/table"
)

// LLMConfig configures an LLMTransformer.
type LLMConfig struct {
	Client   providers.LLMClient
	Resolver *prompts.Resolver // nil uses the embedded prompt
	Model    string            // empty uses the client default
	Policy   record.Policy
	Logger   *slog.Logger
}

// LLMTransformer delegates the whole transformation to a language model and
// validates what comes back. It never repairs a bad reply.
type LLMTransformer struct {
	client   providers.LLMClient
	resolver *prompts.Resolver
	model    string
	policy   record.Policy
	logger   *slog.Logger
}

// NewLLMTransformer creates a model-backed transformer.
func NewLLMTransformer(cfg LLMConfig) *LLMTransformer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = prompts.NewResolver(logger)
		tabletojson.RegisterPrompts(resolver)
	}
	policy := cfg.Policy
	if policy == "" {
		policy = record.PolicyDrop
	}
	return &LLMTransformer{
		client:   cfg.Client,
		resolver: resolver,
		model:    cfg.Model,
		policy:   policy,
		logger:   logger,
	}
}

// Transform implements Transformer.
func (t *LLMTransformer) Transform(ctx context.Context, markup string, mainFields, childFields []string) (*record.Result, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, ErrEmptyMarkup
	}

	prompt, err := tabletojson.UserPrompt(t.resolver, tabletojson.Data{
		Markup:      markup,
		Format:      string(table.Detect(markup)),
		MainFields:  strings.Join(mainFields, ","),
		ChildFields: strings.Join(childFields, ","),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render transform prompt: %w", err)
	}

	format, err := providers.NewJSONSchemaFormat(tabletojson.ResultSchema)
	if err != nil {
		return nil, err
	}

	result, err := t.client.Chat(ctx, &providers.ChatRequest{
		Model:          t.model,
		Messages:       []providers.Message{{Role: "user", Content: prompt}},
		ResponseFormat: format,
	})
	if err != nil {
		return nil, fmt.Errorf("transform request failed: %w", err)
	}

	parsed := result.ParsedJSON
	if parsed == nil {
		if parsed, err = providers.ParseStructuredJSON(result.Content); err != nil {
			t.logger.Warn("model reply is not JSON", "provider", t.client.Name(), "request_id", result.RequestID)
			return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
		}
	}
	if err := providers.ValidateStructuredJSON(format.JSONSchema, parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}

	res, err := record.Decode(parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}

	t.logger.Debug("model transform complete",
		"provider", t.client.Name(),
		"request_id", result.RequestID,
		"tokens", result.TotalTokens,
		"children", len(res.Children))

	return conform(res, mainFields, childFields, t.policy)
}

var _ Transformer = (*LLMTransformer)(nil)
