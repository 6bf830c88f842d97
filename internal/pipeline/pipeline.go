// Package pipeline assembles the recognize, transform and reconcile
// components from configuration and swaps them on config reload.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackzampolin/formshelf/internal/config"
	"github.com/jackzampolin/formshelf/internal/home"
	"github.com/jackzampolin/formshelf/internal/prompts"
	"github.com/jackzampolin/formshelf/internal/prompts/fieldmatch"
	"github.com/jackzampolin/formshelf/internal/prompts/tabletojson"
	"github.com/jackzampolin/formshelf/internal/providers"
	"github.com/jackzampolin/formshelf/internal/recognize"
	"github.com/jackzampolin/formshelf/internal/reconcile"
	"github.com/jackzampolin/formshelf/internal/record"
	"github.com/jackzampolin/formshelf/internal/session"
	"github.com/jackzampolin/formshelf/internal/transform"
)

// ErrNotConfigured is returned when a selected provider is not registered.
var ErrNotConfigured = errors.New("provider not configured")

// Pipeline is one immutable set of wired components.
type Pipeline struct {
	Orchestrator *session.Orchestrator
	Recognizer   *recognize.Recognizer
	Transformer  transform.Transformer
	// Reconciler is the configured field-name reconciler.
	Reconciler reconcile.Reconciler
	// RecognizerName and LLMName are the selected provider names.
	RecognizerName string
	LLMName        string
	Annotate       bool
}

// Deps are the long-lived services a Pipeline is built from.
type Deps struct {
	Registry *providers.Registry
	Resolver *prompts.Resolver
	Stager   *home.Stager
	Store    *session.Store
	Logger   *slog.Logger
}

// NewResolver returns a resolver with every embedded prompt registered and
// overrides applied.
func NewResolver(logger *slog.Logger, overrides map[string]string) *prompts.Resolver {
	r := prompts.NewResolver(logger)
	tabletojson.RegisterPrompts(r)
	fieldmatch.RegisterPrompts(r)
	r.SetOverrides(overrides)
	return r
}

// Build wires a Pipeline from cfg.
func Build(cfg *config.Config, deps Deps) (*Pipeline, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if deps.Resolver == nil {
		deps.Resolver = NewResolver(logger, cfg.Prompts)
	}
	if deps.Store == nil {
		deps.Store = session.NewStore()
	}
	d := cfg.Defaults

	engine, err := deps.Registry.GetRecognizer(d.Recognizer)
	if err != nil {
		return nil, fmt.Errorf("%w: recognizer %q", ErrNotConfigured, d.Recognizer)
	}
	regionPolicy, err := recognize.ParseRegionPolicy(d.RegionPolicy)
	if err != nil {
		return nil, err
	}
	rec, err := recognize.New(engine, recognize.Options{
		RegionPolicy: regionPolicy,
		Stager:       deps.Stager,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	policy, err := record.ParsePolicy(d.UnmatchedPolicy)
	if err != nil {
		return nil, err
	}

	var client providers.LLMClient
	var model string
	if cfg.NeedsLLM() {
		client, err = deps.Registry.GetLLM(d.LLMProvider)
		if err != nil {
			return nil, fmt.Errorf("%w: llm provider %q", ErrNotConfigured, d.LLMProvider)
		}
		if llm, ok := cfg.GetLLMProvider(d.LLMProvider); ok {
			model = llm.Model
		}
	}

	lexical := reconcile.NewLexicalReconciler(cfg.Aliases)
	var reconciler reconcile.Reconciler
	switch d.Reconciler {
	case config.ReconcilerLexical, "":
		reconciler = lexical
	case config.ReconcilerLLM:
		reconciler = reconcile.NewLLMReconciler(reconcile.LLMConfig{
			Client: client, Resolver: deps.Resolver, Model: model, Logger: logger,
		})
	case config.ReconcilerChain:
		reconciler = reconcile.Chain{lexical, reconcile.NewLLMReconciler(reconcile.LLMConfig{
			Client: client, Resolver: deps.Resolver, Model: model, Logger: logger,
		})}
	default:
		return nil, fmt.Errorf("unknown reconciler %q", d.Reconciler)
	}

	var tr transform.Transformer
	switch d.Transformer {
	case config.TransformerTable:
		tr = transform.NewTableTransformer(transform.TableConfig{
			Reconciler: reconciler,
			Aliases:    cfg.Aliases,
			Policy:     policy,
			Logger:     logger,
		})
	case config.TransformerLLM, "":
		if client == nil {
			return nil, fmt.Errorf("%w: llm transformer needs an llm provider", ErrNotConfigured)
		}
		tr = transform.NewLLMTransformer(transform.LLMConfig{
			Client:   client,
			Resolver: deps.Resolver,
			Model:    model,
			Policy:   policy,
			Logger:   logger,
		})
	default:
		return nil, fmt.Errorf("unknown transformer %q", d.Transformer)
	}

	orch, err := session.New(session.Config{
		Recognizer:    rec,
		Transformer:   tr,
		Reconciler:    reconciler,
		Store:         deps.Store,
		Timeout:       d.RequestTimeout,
		RetryAttempts: d.RetryAttempts,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("pipeline ready",
		"recognizer", d.Recognizer,
		"transformer", d.Transformer,
		"reconciler", d.Reconciler,
		"llm_provider", d.LLMProvider,
	)

	p := &Pipeline{
		Orchestrator:   orch,
		Recognizer:     rec,
		Transformer:    tr,
		Reconciler:     reconciler,
		RecognizerName: d.Recognizer,
		Annotate:       d.Annotate,
	}
	if client != nil {
		p.LLMName = d.LLMProvider
	}
	return p, nil
}

// Holder keeps the current Pipeline and rebuilds it when config changes.
// Sessions already running keep the Pipeline they started with.
type Holder struct {
	mu   sync.RWMutex
	p    *Pipeline
	err  error
	deps Deps
}

// NewHolder builds the first Pipeline. A build failure is kept and
// returned from Get until a later Rebuild succeeds.
func NewHolder(cfg *config.Config, deps Deps) *Holder {
	if deps.Store == nil {
		deps.Store = session.NewStore()
	}
	h := &Holder{deps: deps}
	h.Rebuild(cfg)
	return h
}

// Get returns the current Pipeline.
func (h *Holder) Get() (*Pipeline, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.p == nil {
		return nil, h.err
	}
	return h.p, nil
}

// Store returns the session store shared by every Pipeline.
func (h *Holder) Store() *session.Store {
	return h.deps.Store
}

// Rebuild reloads providers and prompts and swaps in a new Pipeline. On
// failure the previous Pipeline stays active.
func (h *Holder) Rebuild(cfg *config.Config) error {
	deps := h.deps
	if deps.Registry != nil {
		deps.Registry.Reload(cfg.ToProviderRegistryConfig())
	}
	if deps.Resolver != nil {
		deps.Resolver.SetOverrides(cfg.Prompts)
	}

	p, err := Build(cfg, deps)

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.Error("pipeline rebuild failed", "error", err)
		}
		if h.p == nil {
			h.err = err
		}
		return err
	}
	h.p, h.err = p, nil
	return nil
}
