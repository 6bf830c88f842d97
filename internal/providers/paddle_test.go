package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func paddleReply(outputImages map[string]string) map[string]any {
	return map[string]any{
		"logId":     "log-1",
		"errorCode": 0,
		"errorMsg":  "Success",
		"result": map[string]any{
			"tableRecResults": []map[string]any{{
				"prunedResult": map[string]any{
					"layout_det_res": map[string]any{
						"boxes": []map[string]any{
							{"cls_id": 1, "label": "text", "score": 0.8, "coordinate": []float64{0, 0, 5, 5}},
							{"cls_id": 8, "label": "table", "score": 0.97, "coordinate": []float64{10, 20, 300, 400}},
						},
					},
					"table_res_list": []map[string]any{{
						"cell_box_list": [][]float64{{10, 20, 100, 60}, {100, 20, 300, 60}, {1, 2}},
						"pred_html":     SampleFormHTML,
					}},
				},
				"outputImages": outputImages,
			}},
		},
	}
}

func TestPaddleClient_RecognizeTables(t *testing.T) {
	t.Run("parses regions and visualization", func(t *testing.T) {
		var got paddleTableRequest
		vis := []byte("fake-jpeg")
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != paddleTablePath {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			json.NewDecoder(r.Body).Decode(&got)
			json.NewEncoder(w).Encode(paddleReply(map[string]string{
				"layout_det_res": base64.StdEncoding.EncodeToString([]byte("layout")),
				"table_cell_img": base64.StdEncoding.EncodeToString(vis),
			}))
		}))
		defer server.Close()

		client := NewPaddleClient(PaddleConfig{BaseURL: server.URL + "/", Visualize: true})
		result, err := client.RecognizeTables(context.Background(), []byte("img"))
		if err != nil {
			t.Fatalf("RecognizeTables() error = %v", err)
		}

		if got.FileType != paddleFileImage || !got.Visualize {
			t.Errorf("request = %+v", got)
		}
		if decoded, _ := base64.StdEncoding.DecodeString(got.File); string(decoded) != "img" {
			t.Errorf("file = %q", got.File)
		}
		if len(result.Regions) != 1 {
			t.Fatalf("regions = %d, want 1", len(result.Regions))
		}
		region := result.Regions[0]
		if region.Format != FormatHTML || !strings.Contains(region.Markup, "螺丝") {
			t.Errorf("region = %+v", region)
		}
		if region.BBox == nil || *region.BBox != (Box{10, 20, 300, 400}) {
			t.Errorf("bbox = %v", region.BBox)
		}
		if region.Score != 0.97 {
			t.Errorf("score = %v", region.Score)
		}
		if len(region.Cells) != 2 {
			t.Errorf("cells = %d, want 2 (short boxes skipped)", len(region.Cells))
		}
		if string(result.Visualization) != "fake-jpeg" {
			t.Errorf("visualization = %q", result.Visualization)
		}
		if strings.Contains(string(result.Raw), "outputImages") || !strings.Contains(string(result.Raw), "table_res_list") {
			t.Errorf("raw = %s", result.Raw)
		}
	})

	t.Run("no tables", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"errorCode":0,"result":{"tableRecResults":[]}}`))
		}))
		defer server.Close()

		client := NewPaddleClient(PaddleConfig{BaseURL: server.URL})
		result, err := client.RecognizeTables(context.Background(), []byte("img"))
		if err != nil {
			t.Fatalf("RecognizeTables() error = %v", err)
		}
		if len(result.Regions) != 0 || result.Visualization != nil {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("engine error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"errorCode":422,"errorMsg":"bad image"}`))
		}))
		defer server.Close()

		client := NewPaddleClient(PaddleConfig{BaseURL: server.URL})
		_, err := client.RecognizeTables(context.Background(), []byte("img"))
		if err == nil || !strings.Contains(err.Error(), "bad image") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("non json error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
		}))
		defer server.Close()

		client := NewPaddleClient(PaddleConfig{BaseURL: server.URL})
		_, err := client.RecognizeTables(context.Background(), []byte("img"))
		if err == nil || !strings.Contains(err.Error(), "504") {
			t.Errorf("error = %v", err)
		}
	})
}

func TestPaddleClient_Health(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" || !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"errorCode":0}`))
	}))
	defer server.Close()

	client := NewPaddleClient(PaddleConfig{BaseURL: server.URL})
	if err := client.Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
	healthy.Store(false)
	if err := client.Health(context.Background()); err == nil {
		t.Error("expected unhealthy error")
	}
}

func TestPickVisualization(t *testing.T) {
	tests := []struct {
		name   string
		images map[string]string
		want   string
	}{
		{"none", nil, ""},
		{"prefers table", map[string]string{"layout_det_res": "L", "table_cell_img": "T"}, "T"},
		{"falls back to layout", map[string]string{"ocr_res_img": "O", "layout_det_res": "L"}, "L"},
		{"any other", map[string]string{"ocr_res_img": "O"}, "O"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickVisualization(tt.images); got != tt.want {
				t.Errorf("pickVisualization() = %q, want %q", got, tt.want)
			}
		})
	}
}
