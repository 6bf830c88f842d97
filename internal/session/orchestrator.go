package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/jackzampolin/formshelf/internal/fields"
	"github.com/jackzampolin/formshelf/internal/home"
	"github.com/jackzampolin/formshelf/internal/recognize"
	"github.com/jackzampolin/formshelf/internal/reconcile"
	"github.com/jackzampolin/formshelf/internal/record"
	"github.com/jackzampolin/formshelf/internal/transform"
)

// DefaultWorkspace is used when a request names none.
const DefaultWorkspace = "default"

// Request is one upload plus the operator's target lists.
type Request struct {
	Workspace string
	Image     recognize.Image
	Schema    fields.Schema
	Annotate  bool
	Reconcile bool
}

// Config wires an Orchestrator.
type Config struct {
	Recognizer  *recognize.Recognizer
	Transformer transform.Transformer
	// Reconciler is only used for requests with Reconcile set.
	Reconciler reconcile.Reconciler
	Store      *Store

	// Timeout bounds each recognition, transform and reconcile call. Zero
	// means no per-call limit.
	Timeout time.Duration
	// RetryAttempts is the total number of tries per call; 0 or 1 means no retry.
	RetryAttempts uint
	RetryDelay    time.Duration

	Logger *slog.Logger
}

// Orchestrator runs sessions strictly in sequence: recognize, transform,
// then optionally reconcile.
type Orchestrator struct {
	recognizer  *recognize.Recognizer
	transformer transform.Transformer
	reconciler  reconcile.Reconciler
	store       *Store
	timeout     time.Duration
	attempts    uint
	delay       time.Duration
	logger      *slog.Logger
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("recognizer is required")
	}
	if cfg.Transformer == nil {
		return nil, fmt.Errorf("transformer is required")
	}
	if cfg.Store == nil {
		cfg.Store = NewStore()
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		recognizer:  cfg.Recognizer,
		transformer: cfg.Transformer,
		reconciler:  cfg.Reconciler,
		store:       cfg.Store,
		timeout:     cfg.Timeout,
		attempts:    cfg.RetryAttempts,
		delay:       cfg.RetryDelay,
		logger:      cfg.Logger,
	}, nil
}

// Store returns the session store.
func (o *Orchestrator) Store() *Store {
	return o.store
}

// Run processes one request. The returned session is a copy of the final
// stored state; on failure it carries the error class and err is non-nil.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Session, error) {
	workspace := strings.TrimSpace(req.Workspace)
	if workspace == "" {
		workspace = DefaultWorkspace
	}
	sess := &Session{
		ID:        uuid.New().String(),
		Workspace: workspace,
		State:     StateIdle,
		Schema:    req.Schema.Clone(),
		ImageName: req.Image.Name,
		StartedAt: time.Now(),
	}
	o.store.start(sess)

	logger := o.logger.With("session_id", sess.ID, "workspace", workspace)
	logger.Info("session started", "image", req.Image.Name, "annotate", req.Annotate, "reconcile", req.Reconcile)

	err := o.run(ctx, sess, req, logger)
	if err != nil {
		sess.fail(err)
		logger.Warn("session failed", "class", sess.ErrorClass, "error", err)
	} else {
		logger.Info("session done", "children", len(sess.Result.Children), "duration", sess.Duration())
	}
	o.store.update(sess)

	out := *sess
	return &out, err
}

func (o *Orchestrator) run(ctx context.Context, sess *Session, req Request, logger *slog.Logger) error {
	if err := sess.Schema.Validate(); err != nil {
		return err
	}
	if _, err := req.Image.ContentType(); err != nil {
		return err
	}

	if err := o.advance(sess, StateRecognizing); err != nil {
		return err
	}
	var rec *recognize.Result
	err := o.call(ctx, "recognize", logger, func(ctx context.Context) error {
		var err error
		if req.Annotate {
			rec, err = o.recognizer.RecognizeAnnotated(ctx, req.Image)
		} else {
			rec, err = o.recognizer.Recognize(ctx, req.Image)
		}
		return err
	})
	if err != nil {
		return err
	}
	sess.Recognition = rec

	if err := o.advance(sess, StateTransforming); err != nil {
		return err
	}
	var res *record.Result
	err = o.call(ctx, "transform", logger, func(ctx context.Context) error {
		var err error
		res, err = o.transformer.Transform(ctx, string(rec.Markup), sess.Schema.Main, sess.Schema.Children)
		return err
	})
	if err != nil {
		return err
	}

	if req.Reconcile {
		if o.reconciler == nil {
			return fmt.Errorf("reconciliation requested but no reconciler is configured")
		}
		mainNames, childNames := res.FieldNames()
		err = o.call(ctx, "reconcile", logger, func(ctx context.Context) error {
			var err error
			if sess.MainCorrespondence, err = o.reconciler.Reconcile(ctx, mainNames, sess.Schema.Main); err != nil {
				return err
			}
			sess.ChildCorrespondence, err = o.reconciler.Reconcile(ctx, childNames, sess.Schema.Children)
			return err
		})
		if err != nil {
			return err
		}
	}

	sess.Result = res
	return sess.transition(StateDone)
}

func (o *Orchestrator) advance(sess *Session, to State) error {
	if err := sess.transition(to); err != nil {
		return err
	}
	o.store.update(sess)
	return nil
}

// call runs fn under the per-call timeout, retrying failures that may be
// transient.
func (o *Orchestrator) call(ctx context.Context, step string, logger *slog.Logger, fn func(context.Context) error) error {
	return retry.Do(
		func() error {
			callCtx := ctx
			if o.timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, o.timeout)
				defer cancel()
			}
			return fn(callCtx)
		},
		retry.Context(ctx),
		retry.Attempts(o.attempts),
		retry.Delay(o.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(Retryable),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("retrying step", "step", step, "attempt", n+1, "error", err)
		}),
	)
}

// Retryable reports whether a failed call may succeed when repeated.
// Missing tables, malformed output, bad uploads and storage failures are final.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, recognize.ErrNoTableDetected),
		errors.Is(err, recognize.ErrUnsupportedImage),
		errors.Is(err, record.ErrMalformed),
		errors.Is(err, home.ErrStorageWrite),
		errors.Is(err, transform.ErrEmptyMarkup):
		return false
	default:
		return true
	}
}
