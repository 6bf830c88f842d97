package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/formshelf/internal/fields"
	"github.com/jackzampolin/formshelf/internal/home"
	"github.com/jackzampolin/formshelf/internal/providers"
	"github.com/jackzampolin/formshelf/internal/recognize"
	"github.com/jackzampolin/formshelf/internal/reconcile"
	"github.com/jackzampolin/formshelf/internal/record"
	"github.com/jackzampolin/formshelf/internal/transform"
)

func testImage(t *testing.T) recognize.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return recognize.Image{Name: "form.png", Data: buf.Bytes()}
}

var sampleSchema = fields.Schema{
	Main:     fields.List{"客户名称", "日期", "合计"},
	Children: fields.List{"品名", "数量", "单价", "金额"},
}

func newOrchestrator(t *testing.T, engine providers.TableRecognizer, tr transform.Transformer, cfg Config) *Orchestrator {
	t.Helper()
	rec, err := recognize.New(engine, recognize.Options{Stager: home.NewStager(t.TempDir())})
	if err != nil {
		t.Fatal(err)
	}
	if tr == nil {
		tr = transform.NewTableTransformer(transform.TableConfig{})
	}
	cfg.Recognizer = rec
	cfg.Transformer = tr
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Millisecond
	}
	o, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

// flakyRecognizer fails the first n calls.
type flakyRecognizer struct {
	*providers.MockTableRecognizer
	failures int64
	calls    atomic.Int64
}

func (f *flakyRecognizer) RecognizeTables(ctx context.Context, img []byte) (*providers.TableResult, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, fmt.Errorf("engine unavailable")
	}
	return f.MockTableRecognizer.RecognizeTables(ctx, img)
}

type stubTransformer struct {
	res   *record.Result
	err   error
	calls atomic.Int64
}

func (s *stubTransformer) Transform(ctx context.Context, markup string, mainFields, childFields []string) (*record.Result, error) {
	s.calls.Add(1)
	return s.res, s.err
}

func TestState_Transitions(t *testing.T) {
	s := &Session{State: StateIdle}
	for _, to := range []State{StateRecognizing, StateTransforming, StateDone} {
		if err := s.transition(to); err != nil {
			t.Fatalf("transition(%s) error = %v", to, err)
		}
	}
	if s.FinishedAt.IsZero() {
		t.Error("FinishedAt not set on done")
	}
	if err := s.transition(StateFailed); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("leaving done: error = %v", err)
	}

	skip := &Session{State: StateIdle}
	if err := skip.transition(StateTransforming); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("skipping recognizing: error = %v", err)
	}
	back := &Session{State: StateTransforming}
	if err := back.transition(StateRecognizing); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("moving backwards: error = %v", err)
	}
	for _, from := range []State{StateIdle, StateRecognizing, StateTransforming} {
		s := &Session{State: from}
		if err := s.transition(StateFailed); err != nil {
			t.Errorf("%s -> failed: %v", from, err)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorClass
	}{
		{nil, ""},
		{fmt.Errorf("x: %w", recognize.ErrNoTableDetected), ClassNoTable},
		{recognize.ErrUnsupportedImage, ClassUnsupportedImage},
		{fmt.Errorf("%w: disk full", home.ErrStorageWrite), ClassStorageWrite},
		{transform.ErrMalformedResult, ClassMalformed},
		{reconcile.ErrMalformedCorrespondence, ClassMalformed},
		{fields.ErrEmptySchema, ClassInvalidRequest},
		{errors.New("boom"), ClassEngine},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	final := []error{
		recognize.ErrNoTableDetected,
		recognize.ErrUnsupportedImage,
		transform.ErrMalformedResult,
		transform.ErrEmptyMarkup,
		home.ErrStorageWrite,
		context.Canceled,
	}
	for _, err := range final {
		if Retryable(err) {
			t.Errorf("Retryable(%v) = true", err)
		}
	}
	if !Retryable(errors.New("connection reset")) {
		t.Error("transient error should be retryable")
	}
	if !Retryable(context.DeadlineExceeded) {
		t.Error("per-call timeout should be retryable")
	}
}

func TestOrchestrator_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("done", func(t *testing.T) {
		o := newOrchestrator(t, providers.NewMockTableRecognizer(), nil, Config{})
		sess, err := o.Run(ctx, Request{Workspace: "acme", Image: testImage(t), Schema: sampleSchema})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if sess.State != StateDone {
			t.Errorf("state = %s", sess.State)
		}
		if sess.Result == nil || len(sess.Result.Children) != 3 {
			t.Fatalf("result = %+v", sess.Result)
		}
		if sess.Result.Main["合计"] != 120.0 {
			t.Errorf("main = %v", sess.Result.Main)
		}
		if sess.Recognition == nil || sess.Recognition.Dir != "" {
			t.Errorf("plain recognition should not stage artifacts: %+v", sess.Recognition)
		}

		stored, ok := o.Store().Get("acme")
		if !ok || stored.ID != sess.ID || stored.State != StateDone {
			t.Errorf("stored = %+v, %v", stored, ok)
		}
	})

	t.Run("default workspace", func(t *testing.T) {
		o := newOrchestrator(t, providers.NewMockTableRecognizer(), nil, Config{})
		sess, err := o.Run(ctx, Request{Image: testImage(t), Schema: sampleSchema})
		if err != nil {
			t.Fatal(err)
		}
		if sess.Workspace != DefaultWorkspace {
			t.Errorf("workspace = %q", sess.Workspace)
		}
	})

	t.Run("annotated stages artifacts", func(t *testing.T) {
		o := newOrchestrator(t, providers.NewMockTableRecognizer(), nil, Config{})
		sess, err := o.Run(ctx, Request{Image: testImage(t), Schema: sampleSchema, Annotate: true})
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range []string{sess.Recognition.ResultPath, sess.Recognition.ImagePath} {
			if _, err := os.Stat(p); err != nil {
				t.Errorf("artifact %s: %v", filepath.Base(p), err)
			}
		}
	})

	t.Run("empty schema", func(t *testing.T) {
		engine := providers.NewMockTableRecognizer()
		o := newOrchestrator(t, engine, nil, Config{})
		sess, err := o.Run(ctx, Request{Image: testImage(t)})
		if !errors.Is(err, fields.ErrEmptySchema) {
			t.Fatalf("error = %v", err)
		}
		if sess.State != StateFailed || sess.ErrorClass != ClassInvalidRequest {
			t.Errorf("session = %s/%s", sess.State, sess.ErrorClass)
		}
		if engine.RequestCount() != 0 {
			t.Error("engine called for invalid request")
		}
	})

	t.Run("unsupported image", func(t *testing.T) {
		engine := providers.NewMockTableRecognizer()
		o := newOrchestrator(t, engine, nil, Config{})
		img := recognize.Image{Name: "form.gif", Data: []byte("GIF89a")}
		sess, err := o.Run(ctx, Request{Image: img, Schema: sampleSchema})
		if !errors.Is(err, recognize.ErrUnsupportedImage) || sess.ErrorClass != ClassUnsupportedImage {
			t.Errorf("error = %v, class = %s", err, sess.ErrorClass)
		}
		if engine.RequestCount() != 0 {
			t.Error("engine called for unsupported image")
		}
	})

	t.Run("no table is not retried", func(t *testing.T) {
		engine := providers.NewMockTableRecognizer()
		engine.Regions = nil
		o := newOrchestrator(t, engine, nil, Config{RetryAttempts: 3})
		sess, err := o.Run(ctx, Request{Image: testImage(t), Schema: sampleSchema})
		if !errors.Is(err, recognize.ErrNoTableDetected) {
			t.Fatalf("error = %v", err)
		}
		if sess.ErrorClass != ClassNoTable || sess.Result != nil {
			t.Errorf("session = %+v", sess)
		}
		if engine.RequestCount() != 1 {
			t.Errorf("engine calls = %d, want 1", engine.RequestCount())
		}
	})

	t.Run("transient engine failure retried", func(t *testing.T) {
		engine := &flakyRecognizer{MockTableRecognizer: providers.NewMockTableRecognizer(), failures: 2}
		o := newOrchestrator(t, engine, nil, Config{RetryAttempts: 3})
		sess, err := o.Run(ctx, Request{Image: testImage(t), Schema: sampleSchema})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if sess.State != StateDone || engine.calls.Load() != 3 {
			t.Errorf("state = %s, calls = %d", sess.State, engine.calls.Load())
		}
	})

	t.Run("engine failure without retry", func(t *testing.T) {
		engine := &flakyRecognizer{MockTableRecognizer: providers.NewMockTableRecognizer(), failures: 5}
		o := newOrchestrator(t, engine, nil, Config{})
		sess, err := o.Run(ctx, Request{Image: testImage(t), Schema: sampleSchema})
		if err == nil || sess.ErrorClass != ClassEngine {
			t.Errorf("error = %v, class = %s", err, sess.ErrorClass)
		}
		if engine.calls.Load() != 1 {
			t.Errorf("calls = %d, want 1", engine.calls.Load())
		}
	})

	t.Run("malformed transform", func(t *testing.T) {
		stub := &stubTransformer{err: fmt.Errorf("%w: bad json", transform.ErrMalformedResult)}
		o := newOrchestrator(t, providers.NewMockTableRecognizer(), stub, Config{RetryAttempts: 3})
		sess, err := o.Run(ctx, Request{Image: testImage(t), Schema: sampleSchema})
		if !errors.Is(err, transform.ErrMalformedResult) || sess.ErrorClass != ClassMalformed {
			t.Errorf("error = %v, class = %s", err, sess.ErrorClass)
		}
		if stub.calls.Load() != 1 {
			t.Errorf("transform calls = %d, want 1", stub.calls.Load())
		}
		if sess.Recognition == nil {
			t.Error("recognition should be kept on transform failure")
		}
	})

	t.Run("timeout", func(t *testing.T) {
		engine := providers.NewMockTableRecognizer()
		engine.Latency = time.Second
		o := newOrchestrator(t, engine, nil, Config{Timeout: 10 * time.Millisecond})
		_, err := o.Run(ctx, Request{Image: testImage(t), Schema: sampleSchema})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("error = %v, want deadline exceeded", err)
		}
	})

	t.Run("reconcile", func(t *testing.T) {
		stub := &stubTransformer{res: &record.Result{
			Main:     record.Record{"Customer Name": "ACME"},
			Children: []record.Record{{"Product": "bolt", "Qty": 3.0}},
		}}
		rec := reconcile.NewLexicalReconciler(map[string][]string{"Item": {"Product"}})
		o := newOrchestrator(t, providers.NewMockTableRecognizer(), stub, Config{Reconciler: rec})
		schema := fields.Schema{Main: fields.List{"customer_name"}, Children: fields.List{"Item", "Qty"}}
		sess, err := o.Run(ctx, Request{Image: testImage(t), Schema: schema, Reconcile: true})
		if err != nil {
			t.Fatal(err)
		}
		if sess.MainCorrespondence["customer_name"] != "Customer Name" {
			t.Errorf("main correspondence = %v", sess.MainCorrespondence)
		}
		if sess.ChildCorrespondence["Item"] != "Product" || sess.ChildCorrespondence["Qty"] != "Qty" {
			t.Errorf("child correspondence = %v", sess.ChildCorrespondence)
		}
	})

	t.Run("reconcile without reconciler", func(t *testing.T) {
		o := newOrchestrator(t, providers.NewMockTableRecognizer(), nil, Config{})
		sess, err := o.Run(ctx, Request{Image: testImage(t), Schema: sampleSchema, Reconcile: true})
		if err == nil || sess.State != StateFailed || sess.Result != nil {
			t.Errorf("error = %v, session = %+v", err, sess)
		}
	})
}

func TestStore_LatestWins(t *testing.T) {
	st := NewStore()
	older := &Session{ID: "a", Workspace: "w", State: StateRecognizing}
	newer := &Session{ID: "b", Workspace: "w", State: StateIdle}
	st.start(older)
	st.start(newer)

	older.State = StateDone
	st.update(older)

	got, ok := st.Get("w")
	if !ok || got.ID != "b" || got.State != StateIdle {
		t.Errorf("Get() = %+v, %v", got, ok)
	}

	newer.State = StateRecognizing
	st.update(newer)
	if got, _ := st.Get("w"); got.State != StateRecognizing {
		t.Errorf("state = %s", got.State)
	}

	st.start(&Session{ID: "c", Workspace: "v"})
	if ws := st.Workspaces(); len(ws) != 2 || ws[0] != "v" || ws[1] != "w" {
		t.Errorf("Workspaces() = %v", ws)
	}
	if st.Len() != 2 {
		t.Errorf("Len() = %d", st.Len())
	}
	if _, ok := st.Get("missing"); ok {
		t.Error("Get(missing) ok")
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	st := NewStore()
	st.start(&Session{ID: "a", Workspace: "w", State: StateIdle})
	got, _ := st.Get("w")
	got.State = StateFailed
	if again, _ := st.Get("w"); again.State != StateIdle {
		t.Error("mutating a returned session changed the store")
	}
}
