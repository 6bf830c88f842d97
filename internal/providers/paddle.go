package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	PaddleName    = "paddle"
	PaddleBaseURL = "http://localhost:8866"

	paddleTablePath = "/table-recognition"
	paddleFileImage = 1
)

// PaddleConfig holds configuration for the PaddleX serving client.
type PaddleConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // Requests per second (default: 2)
	Visualize bool    // Ask the engine to render annotated images
}

// PaddleClient implements TableRecognizer against a PaddleX serving
// instance running the table_recognition pipeline (PP-Structure).
type PaddleClient struct {
	baseURL   string
	visualize bool
	rateLimit float64
	limiter   *RateLimiter
	client    *http.Client
}

// NewPaddleClient creates a new PaddleX serving client.
func NewPaddleClient(cfg PaddleConfig) *PaddleClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = PaddleBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 2
	}
	return &PaddleClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		visualize: cfg.Visualize,
		rateLimit: cfg.RateLimit,
		limiter:   NewRateLimiter(cfg.RateLimit),
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the provider identifier.
func (c *PaddleClient) Name() string {
	return PaddleName
}

// BaseURL returns the serving endpoint.
func (c *PaddleClient) BaseURL() string {
	return c.baseURL
}

// RecognizeTables sends the image to the table recognition pipeline.
func (c *PaddleClient) RecognizeTables(ctx context.Context, image []byte) (*TableResult, error) {
	start := time.Now()

	reqBody := paddleTableRequest{
		File:      base64.StdEncoding.EncodeToString(image),
		FileType:  paddleFileImage,
		Visualize: c.visualize,
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, raw, err := c.doRequest(ctx, paddleTablePath, reqBody)
	if err != nil {
		return nil, err
	}

	result := &TableResult{
		Provider: PaddleName,
		Raw:      raw,
	}

	if len(resp.Result.TableRecResults) == 0 {
		result.ExecutionTime = time.Since(start)
		return result, nil
	}

	// One image in, one page result out.
	page := resp.Result.TableRecResults[0]

	var tableBoxes []paddleLayoutBox
	for _, b := range page.PrunedResult.LayoutDetRes.Boxes {
		if b.Label == "table" {
			tableBoxes = append(tableBoxes, b)
		}
	}

	for i, t := range page.PrunedResult.TableResList {
		region := TableRegion{
			Markup: t.PredHTML,
			Format: FormatHTML,
		}
		for _, cell := range t.CellBoxList {
			if box, ok := toBox(cell); ok {
				region.Cells = append(region.Cells, box)
			}
		}
		if i < len(tableBoxes) {
			if box, ok := toBox(tableBoxes[i].Coordinate); ok {
				region.BBox = &box
				region.Score = tableBoxes[i].Score
			}
		}
		result.Regions = append(result.Regions, region)
	}

	if vis := pickVisualization(page.OutputImages); vis != "" {
		if img, err := base64.StdEncoding.DecodeString(vis); err == nil {
			result.Visualization = img
		}
	}

	result.ExecutionTime = time.Since(start)
	return result, nil
}

// Health checks the serving endpoint.
func (c *PaddleClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("paddle health check failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("paddle health check returned %d", resp.StatusCode)
	}
	return nil
}

func (c *PaddleClient) doRequest(ctx context.Context, path string, body any) (*paddleTableResponse, json.RawMessage, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	var tableResp paddleTableResponse
	if err := json.Unmarshal(respBody, &tableResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, nil, fmt.Errorf("paddle error (status %d): %s", resp.StatusCode, string(respBody))
		}
		return nil, nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || tableResp.ErrorCode != 0 {
		return nil, nil, fmt.Errorf("paddle error (status %d, code %d): %s", resp.StatusCode, tableResp.ErrorCode, tableResp.ErrorMsg)
	}

	// Keep the engine's pruned results verbatim for res.json, without the
	// base64 images.
	var pruned struct {
		Result struct {
			TableRecResults []struct {
				PrunedResult json.RawMessage `json:"prunedResult"`
			} `json:"tableRecResults"`
		} `json:"result"`
	}
	if err := json.Unmarshal(respBody, &pruned); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	pages := make([]json.RawMessage, 0, len(pruned.Result.TableRecResults))
	for _, p := range pruned.Result.TableRecResults {
		pages = append(pages, p.PrunedResult)
	}
	raw, err := json.Marshal(pages)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode engine result: %w", err)
	}
	return &tableResp, raw, nil
}

func toBox(v []float64) (Box, bool) {
	if len(v) < 4 {
		return Box{}, false
	}
	return Box{v[0], v[1], v[2], v[3]}, true
}

// pickVisualization prefers the table cell rendering, then the layout one.
func pickVisualization(images map[string]string) string {
	if len(images) == 0 {
		return ""
	}
	keys := make([]string, 0, len(images))
	for k := range images {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, want := range []string{"table", "layout"} {
		for _, k := range keys {
			if strings.Contains(k, want) && images[k] != "" {
				return images[k]
			}
		}
	}
	return images[keys[0]]
}

// PaddleX serving API types

type paddleTableRequest struct {
	File      string `json:"file"`
	FileType  int    `json:"fileType"`
	Visualize bool   `json:"visualize"`
}

type paddleTableResponse struct {
	LogID     string `json:"logId"`
	ErrorCode int    `json:"errorCode"`
	ErrorMsg  string `json:"errorMsg"`
	Result    struct {
		TableRecResults []paddlePageResult `json:"tableRecResults"`
	} `json:"result"`
}

type paddlePageResult struct {
	PrunedResult struct {
		LayoutDetRes struct {
			Boxes []paddleLayoutBox `json:"boxes"`
		} `json:"layout_det_res"`
		TableResList []paddleTable `json:"table_res_list"`
	} `json:"prunedResult"`
	OutputImages map[string]string `json:"outputImages,omitempty"`
}

type paddleLayoutBox struct {
	ClsID      int       `json:"cls_id"`
	Label      string    `json:"label"`
	Score      float64   `json:"score"`
	Coordinate []float64 `json:"coordinate"`
}

type paddleTable struct {
	CellBoxList [][]float64 `json:"cell_box_list"`
	PredHTML    string      `json:"pred_html"`
}

// Verify interface
var _ TableRecognizer = (*PaddleClient)(nil)
