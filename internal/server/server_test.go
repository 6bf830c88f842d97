package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackzampolin/formshelf/internal/api"
	"github.com/jackzampolin/formshelf/internal/config"
	"github.com/jackzampolin/formshelf/internal/export"
	"github.com/jackzampolin/formshelf/internal/home"
	"github.com/jackzampolin/formshelf/internal/providers"
	"github.com/jackzampolin/formshelf/internal/record"
	"github.com/jackzampolin/formshelf/internal/server/endpoints"
	"github.com/jackzampolin/formshelf/internal/session"
	"github.com/jackzampolin/formshelf/internal/testutil"
)

const (
	mainFields  = "客户名称,日期,合计"
	childFields = "品名，数量；单价 金额"
)

// newTestServer builds a server from configYAML and serves its handler
// in-process.
func newTestServer(t *testing.T, configYAML string, registry *providers.Registry) (*Server, *api.Client) {
	t.Helper()
	cfg := testutil.NewServerConfigWith(t, configYAML)

	cm, err := config.NewManager(cfg.ConfigFile, cfg.HomeDir)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	h, err := home.New(cfg.HomeDir)
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}

	srv, err := New(Config{
		Host:          cfg.Host,
		Port:          cfg.Port,
		ConfigManager: cm,
		Home:          h,
		Registry:      registry,
		Logger:        cfg.Logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, api.NewClient(ts.URL)
}

func upload(t *testing.T, client *api.Client, name string, data []byte, values map[string]string) (*session.Session, error) {
	t.Helper()
	var sess session.Session
	err := client.PostMultipart(context.Background(), "/api/forms/recognize", values,
		api.Upload{Field: "image", Filename: name, Data: data}, &sess)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func wantAPIError(t *testing.T, err error, status int, class session.ErrorClass) {
	t.Helper()
	if api.StatusOf(err) != status {
		t.Fatalf("status = %d, want %d (err: %v)", api.StatusOf(err), status, err)
	}
	if class == "" {
		return
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Class != string(class) {
		t.Errorf("error class = %v, want %s", err, class)
	}
}

func TestServer_Health(t *testing.T) {
	_, client := newTestServer(t, testutil.MockConfigYAML, nil)
	ctx := context.Background()

	t.Run("health", func(t *testing.T) {
		var resp endpoints.HealthResponse
		if err := client.Get(ctx, "/health", &resp); err != nil || resp.Status != "ok" {
			t.Errorf("health = %+v, %v", resp, err)
		}
	})

	t.Run("ready", func(t *testing.T) {
		var resp endpoints.HealthResponse
		if err := client.Get(ctx, "/ready", &resp); err != nil {
			t.Fatalf("ready error = %v", err)
		}
		if resp.Pipeline != "ok" || resp.Recognizer != "ok" {
			t.Errorf("ready = %+v", resp)
		}
	})

	t.Run("status", func(t *testing.T) {
		var resp endpoints.StatusResponse
		if err := client.Get(ctx, "/status", &resp); err != nil {
			t.Fatalf("status error = %v", err)
		}
		if !resp.Pipeline.Ready || resp.Pipeline.Recognizer != "mock" {
			t.Errorf("pipeline = %+v", resp.Pipeline)
		}
		if resp.Pipeline.Transformer != config.TransformerTable {
			t.Errorf("transformer = %q", resp.Pipeline.Transformer)
		}
		if !contains(resp.Providers.Recognizers, "mock") {
			t.Errorf("recognizers = %v", resp.Providers.Recognizers)
		}
		if resp.Paddle != nil {
			t.Errorf("paddle = %+v, want nil when unmanaged", resp.Paddle)
		}
	})
}

func TestServer_Recognize(t *testing.T) {
	_, client := newTestServer(t, testutil.MockConfigYAML, nil)
	ctx := context.Background()
	png := testutil.FormPNG(t)

	sess, err := upload(t, client, "form.png", png, map[string]string{
		"main_fields":  mainFields,
		"child_fields": childFields,
		"workspace":    "desk-1",
	})
	if err != nil {
		t.Fatalf("recognize error = %v", err)
	}

	t.Run("result", func(t *testing.T) {
		if sess.State != session.StateDone {
			t.Fatalf("state = %s (%s)", sess.State, sess.Error)
		}
		if sess.Result.Main["客户名称"] != "华东贸易有限公司" {
			t.Errorf("main = %v", sess.Result.Main)
		}
		if sess.Result.Main["合计"] != 120.0 {
			t.Errorf("合计 = %v", sess.Result.Main["合计"])
		}
		if len(sess.Result.Children) != 3 {
			t.Errorf("children = %d, want 3", len(sess.Result.Children))
		}
		if sess.Recognition == nil || sess.Recognition.ImagePath == "" {
			t.Errorf("recognition = %+v, want staged image", sess.Recognition)
		}
	})

	t.Run("session stored", func(t *testing.T) {
		var got session.Session
		if err := client.Get(ctx, "/api/sessions/desk-1", &got); err != nil {
			t.Fatal(err)
		}
		if got.ID != sess.ID {
			t.Errorf("stored session = %s, want %s", got.ID, sess.ID)
		}
		var list endpoints.ListSessionsResponse
		if err := client.Get(ctx, "/api/sessions", &list); err != nil || !contains(list.Workspaces, "desk-1") {
			t.Errorf("workspaces = %v, %v", list.Workspaces, err)
		}
	})

	t.Run("fields remembered", func(t *testing.T) {
		var resp endpoints.FieldsResponse
		if err := client.Get(ctx, "/api/fields/desk-1", &resp); err != nil {
			t.Fatal(err)
		}
		if strings.Join(resp.Children, ",") != "品名,数量,单价,金额" {
			t.Errorf("children = %v", resp.Children)
		}

		// Empty lists reuse the workspace schema.
		again, err := upload(t, client, "form.png", png, map[string]string{"workspace": "desk-1"})
		if err != nil {
			t.Fatal(err)
		}
		if len(again.Result.Children) != 3 {
			t.Errorf("reused schema children = %d", len(again.Result.Children))
		}
	})

	t.Run("annotated image", func(t *testing.T) {
		data, ct, err := client.Download(ctx, "/api/sessions/desk-1/annotated")
		if err != nil {
			t.Fatal(err)
		}
		if ct != "image/jpeg" || !bytes.HasPrefix(data, []byte{0xff, 0xd8}) {
			t.Errorf("annotated = %s, % x", ct, data[:min(4, len(data))])
		}
	})

	t.Run("export", func(t *testing.T) {
		data, ct, err := client.Download(ctx, "/api/sessions/desk-1/export.xlsx")
		if err != nil {
			t.Fatal(err)
		}
		if ct != export.ContentType || !bytes.HasPrefix(data, []byte("PK")) {
			t.Errorf("export = %s, %d bytes", ct, len(data))
		}
	})

	t.Run("unknown workspace", func(t *testing.T) {
		err := client.Get(ctx, "/api/sessions/nobody", nil)
		wantAPIError(t, err, http.StatusNotFound, "")
	})
}

func TestServer_RecognizeReconcile(t *testing.T) {
	_, client := newTestServer(t, testutil.MockConfigYAML, nil)

	sess, err := upload(t, client, "form.png", testutil.FormPNG(t), map[string]string{
		"main_fields":  mainFields,
		"child_fields": "品名,数量,单价,金额",
		"reconcile":    "true",
		"annotate":     "false",
	})
	if err != nil {
		t.Fatal(err)
	}
	if sess.ChildCorrespondence["数量"] != "数量" {
		t.Errorf("child correspondence = %v", sess.ChildCorrespondence)
	}
	if sess.Recognition.ImagePath != "" {
		t.Errorf("annotate=false staged %q", sess.Recognition.ImagePath)
	}
}

func TestServer_RecognizeErrors(t *testing.T) {
	_, client := newTestServer(t, testutil.MockConfigYAML, nil)
	png := testutil.FormPNG(t)
	ctx := context.Background()

	t.Run("gif rejected", func(t *testing.T) {
		_, err := upload(t, client, "form.gif", []byte("GIF89a\x01\x00\x01\x00"), map[string]string{"main_fields": mainFields})
		wantAPIError(t, err, http.StatusUnsupportedMediaType, session.ClassUnsupportedImage)
	})

	t.Run("renamed gif rejected", func(t *testing.T) {
		_, err := upload(t, client, "form.png", []byte("GIF89a\x01\x00\x01\x00"), map[string]string{"main_fields": mainFields})
		wantAPIError(t, err, http.StatusUnsupportedMediaType, session.ClassUnsupportedImage)
	})

	t.Run("empty schema", func(t *testing.T) {
		_, err := upload(t, client, "form.png", png, map[string]string{"workspace": "fresh"})
		wantAPIError(t, err, http.StatusBadRequest, session.ClassInvalidRequest)
	})

	t.Run("bad flag", func(t *testing.T) {
		_, err := upload(t, client, "form.png", png, map[string]string{"main_fields": mainFields, "annotate": "maybe"})
		wantAPIError(t, err, http.StatusBadRequest, "")
	})

	t.Run("no image", func(t *testing.T) {
		err := client.Post(ctx, "/api/forms/recognize", map[string]string{}, nil)
		wantAPIError(t, err, http.StatusBadRequest, "")
	})

	t.Run("failed session is stored without result", func(t *testing.T) {
		_, _ = upload(t, client, "form.gif", []byte("GIF89a"), map[string]string{"main_fields": mainFields, "workspace": "bad"})
		var got session.Session
		if err := client.Get(ctx, "/api/sessions/bad", &got); err != nil {
			t.Fatal(err)
		}
		if got.State != session.StateFailed || got.Result != nil {
			t.Errorf("session = %s, result %v", got.State, got.Result)
		}
		err := client.Get(ctx, "/api/sessions/bad/export.xlsx", nil)
		wantAPIError(t, err, http.StatusConflict, "")
	})
}

func TestServer_NoTableDetected(t *testing.T) {
	registry := providers.NewRegistry()
	registry.RegisterRecognizer("blank", &providers.MockTableRecognizer{ProviderName: "blank"})
	yaml := strings.Replace(testutil.MockConfigYAML, "recognizer: mock", "recognizer: blank", 1)
	_, client := newTestServer(t, yaml, registry)

	_, err := upload(t, client, "form.png", testutil.FormPNG(t), map[string]string{"main_fields": mainFields})
	wantAPIError(t, err, http.StatusUnprocessableEntity, session.ClassNoTable)
}

func TestServer_NotConfigured(t *testing.T) {
	yaml := strings.Replace(testutil.MockConfigYAML, "recognizer: mock", "recognizer: missing", 1)
	srv, client := newTestServer(t, yaml, nil)
	ctx := context.Background()

	if _, err := srv.Pipelines().Get(); err == nil {
		t.Fatal("expected pipeline build error")
	}
	if err := client.Get(ctx, "/health", nil); err != nil {
		t.Errorf("health error = %v", err)
	}
	err := client.Get(ctx, "/ready", nil)
	wantAPIError(t, err, http.StatusServiceUnavailable, "")

	err = client.Post(ctx, "/api/forms/transform", endpoints.TransformRequest{Markup: "x", MainFields: []string{"a"}}, nil)
	wantAPIError(t, err, http.StatusServiceUnavailable, "")
}

func TestServer_Transform(t *testing.T) {
	_, client := newTestServer(t, testutil.MockConfigYAML, nil)
	ctx := context.Background()

	markup := "| Name | Qty | Price |\n|---|---|---|\n| Bolt | 3 | 1.50 |\n| Nut | 10 | 0.20 |\n"
	var res record.Result
	err := client.Post(ctx, "/api/forms/transform", endpoints.TransformRequest{
		Markup:      markup,
		ChildFields: []string{"Name", "Qty", "Price"},
	}, &res)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Children) != 2 || res.Children[0]["Name"] != "Bolt" || res.Children[1]["Qty"] != 10.0 {
		t.Errorf("children = %v", res.Children)
	}

	err = client.Post(ctx, "/api/forms/transform", endpoints.TransformRequest{MainFields: []string{"a"}}, nil)
	wantAPIError(t, err, http.StatusBadRequest, "")

	err = client.Post(ctx, "/api/forms/transform", endpoints.TransformRequest{Markup: markup}, nil)
	wantAPIError(t, err, http.StatusBadRequest, session.ClassInvalidRequest)
}

func TestServer_Reconcile(t *testing.T) {
	_, client := newTestServer(t, testutil.MockConfigYAML, nil)

	var resp endpoints.ReconcileResponse
	err := client.Post(context.Background(), "/api/reconcile", endpoints.ReconcileRequest{
		Source: []string{"品名", "数量", "备注"},
		Target: []string{"数量", "品名", "颜色"},
	}, &resp)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Correspondence["品名"] != "品名" || resp.Correspondence["数量"] != "数量" {
		t.Errorf("correspondence = %v", resp.Correspondence)
	}
	if _, ok := resp.Correspondence["颜色"]; ok {
		t.Errorf("unmatched target mapped: %v", resp.Correspondence)
	}
	if strings.Join(resp.UnmatchedTargets, ",") != "颜色" || strings.Join(resp.UnmatchedSources, ",") != "备注" {
		t.Errorf("unmatched = %v / %v", resp.UnmatchedSources, resp.UnmatchedTargets)
	}

	err = client.Post(context.Background(), "/api/reconcile", endpoints.ReconcileRequest{Source: []string{"a"}}, nil)
	wantAPIError(t, err, http.StatusBadRequest, "")
}

func TestServer_FieldsParse(t *testing.T) {
	_, client := newTestServer(t, testutil.MockConfigYAML, nil)

	var resp endpoints.FieldsResponse
	err := client.Get(context.Background(), "/api/fields/parse?main=%E5%AE%A2%E6%88%B7%EF%BC%8C%E6%97%A5%E6%9C%9F&child=", &resp)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(resp.Main, "|") != "客户|日期" || len(resp.Children) != 0 || resp.Children == nil {
		t.Errorf("fields = %+v", resp)
	}
}

func TestServer_PromptsAndSettings(t *testing.T) {
	_, client := newTestServer(t, testutil.MockConfigYAML, nil)
	ctx := context.Background()

	var prompts endpoints.PromptsListResponse
	if err := client.Get(ctx, "/api/prompts", &prompts); err != nil || len(prompts.Prompts) == 0 {
		t.Fatalf("prompts = %v, %v", prompts, err)
	}
	var one map[string]any
	if err := client.Get(ctx, "/api/prompts/"+prompts.Prompts[0].Key, &one); err != nil || one["key"] != prompts.Prompts[0].Key {
		t.Errorf("prompt = %v, %v", one, err)
	}
	err := client.Get(ctx, "/api/prompts/no.such.prompt", nil)
	wantAPIError(t, err, http.StatusNotFound, "")

	var entry config.Entry
	if err := client.Get(ctx, "/api/settings/defaults.transformer", &entry); err != nil || entry.Value != config.TransformerTable {
		t.Errorf("setting = %+v, %v", entry, err)
	}
	err = client.Get(ctx, "/api/settings/defaults.nope", nil)
	wantAPIError(t, err, http.StatusNotFound, "")

	var all endpoints.SettingsResponse
	if err := client.Get(ctx, "/api/settings", &all); err != nil || len(all.Settings) == 0 {
		t.Errorf("settings = %d, %v", len(all.Settings), err)
	}
}

func TestServer_SwaggerAndStatic(t *testing.T) {
	srv, _ := newTestServer(t, testutil.MockConfigYAML, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/swagger.json")
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	json.NewDecoder(resp.Body).Decode(&doc)
	resp.Body.Close()
	if doc["swagger"] != "2.0" {
		t.Errorf("swagger = %v", doc["swagger"])
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/api/forms/recognize"]; !ok {
		t.Errorf("swagger paths missing recognize: %v", paths)
	}
	if host, _ := doc["host"].(string); host != strings.TrimPrefix(ts.URL, "http://") {
		t.Errorf("host = %q, want request host", host)
	}

	for _, path := range []string{"/", "/some/page"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if !strings.Contains(string(body), "如何使用") {
			t.Errorf("GET %s did not serve the operator page", path)
		}
	}

	resp, err = http.Get(ts.URL + "/api/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound || !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		t.Errorf("unknown api path: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
