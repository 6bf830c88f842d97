// Package recognize extracts the first table from a form image through a
// table recognition engine, optionally staging the upload, the engine's
// structured result and an annotated image on disk.
package recognize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackzampolin/formshelf/internal/home"
	"github.com/jackzampolin/formshelf/internal/providers"
	"github.com/jackzampolin/formshelf/internal/table"
)

var (
	// ErrNoTableDetected is returned when the engine finds no usable table.
	ErrNoTableDetected = errors.New("no table detected")

	// ErrUnsupportedImage is returned for uploads that are not jpg, jpeg or png.
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// Markup is the recognized table in its engine dialect.
type Markup string

// RegionPolicy selects which detected regions are kept.
type RegionPolicy string

// RegionFirst keeps the first region in reading order and discards the rest.
const RegionFirst RegionPolicy = "first"

// ParseRegionPolicy validates a policy name. Empty means RegionFirst.
func ParseRegionPolicy(s string) (RegionPolicy, error) {
	switch RegionPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", RegionFirst:
		return RegionFirst, nil
	default:
		return "", fmt.Errorf("unknown region policy %q (only %q is supported)", s, RegionFirst)
	}
}

// Options configures a Recognizer.
type Options struct {
	RegionPolicy RegionPolicy
	// Stager receives annotated sessions. Required for RecognizeAnnotated.
	Stager *home.Stager
	Logger *slog.Logger
}

// Result is the recognized table of one upload.
type Result struct {
	Markup           Markup                `json:"markup"`
	Format           table.Format          `json:"format"`
	Region           providers.TableRegion `json:"region"`
	DiscardedRegions int                   `json:"discarded_regions"`
	Provider         string                `json:"provider"`
	ExecutionTime    time.Duration         `json:"execution_time"`

	// Set by RecognizeAnnotated.
	Dir        string `json:"dir,omitempty"`
	UploadPath string `json:"upload_path,omitempty"`
	ResultPath string `json:"result_path,omitempty"`
	ImagePath  string `json:"image_path,omitempty"`
}

// Recognizer adapts a TableRecognizer engine to the form pipeline.
type Recognizer struct {
	engine providers.TableRecognizer
	policy RegionPolicy
	stager *home.Stager
	logger *slog.Logger
}

// New creates a Recognizer around engine.
func New(engine providers.TableRecognizer, opts Options) (*Recognizer, error) {
	if engine == nil {
		return nil, fmt.Errorf("recognizer engine is required")
	}
	policy, err := ParseRegionPolicy(string(opts.RegionPolicy))
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Recognizer{
		engine: engine,
		policy: policy,
		stager: opts.Stager,
		logger: logger,
	}, nil
}

// Engine returns the engine name.
func (r *Recognizer) Engine() string {
	return r.engine.Name()
}

// Recognize returns the markup of the first table on the image.
func (r *Recognizer) Recognize(ctx context.Context, img Image) (*Result, error) {
	if _, err := img.ContentType(); err != nil {
		return nil, err
	}
	tr, err := r.engine.RecognizeTables(ctx, img.Data)
	if err != nil {
		return nil, fmt.Errorf("table recognition failed: %w", err)
	}
	return r.selectRegion(tr)
}

// RecognizeAnnotated recognizes the image and stages the upload, res.json
// and result.jpg in a new session directory. The artifacts are written
// even when no table is found.
func (r *Recognizer) RecognizeAnnotated(ctx context.Context, img Image) (*Result, error) {
	if r.stager == nil {
		return nil, fmt.Errorf("annotated recognition needs a results directory")
	}
	if _, err := img.ContentType(); err != nil {
		return nil, err
	}
	tr, err := r.engine.RecognizeTables(ctx, img.Data)
	if err != nil {
		return nil, fmt.Errorf("table recognition failed: %w", err)
	}

	sess, err := r.stager.Create()
	if err != nil {
		return nil, err
	}
	uploadName := filepath.Base(img.Name)
	if uploadName == home.ResultImageName || uploadName == home.ResultJSONName {
		uploadName = "upload-" + uploadName
	}
	uploadPath, err := sess.Write(uploadName, img.Data)
	if err != nil {
		return nil, err
	}

	raw := tr.Raw
	if len(raw) == 0 {
		if raw, err = json.Marshal(tr); err != nil {
			return nil, fmt.Errorf("failed to encode engine result: %w", err)
		}
	}
	resultPath, err := sess.Write(home.ResultJSONName, raw)
	if err != nil {
		return nil, err
	}

	annotated, err := Annotate(img.Data, tr)
	if err != nil {
		return nil, err
	}
	imagePath, err := sess.Write(home.ResultImageName, annotated)
	if err != nil {
		return nil, err
	}

	r.logger.Info("staged recognition artifacts", "dir", sess.Dir, "provider", tr.Provider)

	res, err := r.selectRegion(tr)
	if err != nil {
		return nil, err
	}
	res.Dir = sess.Dir
	res.UploadPath = uploadPath
	res.ResultPath = resultPath
	res.ImagePath = imagePath
	return res, nil
}

// selectRegion applies the region policy and rejects tables with no rows.
func (r *Recognizer) selectRegion(tr *providers.TableResult) (*Result, error) {
	if len(tr.Regions) == 0 {
		return nil, ErrNoTableDetected
	}
	region := tr.Regions[0]
	if strings.TrimSpace(region.Markup) == "" {
		return nil, fmt.Errorf("%w: first region has no markup", ErrNoTableDetected)
	}

	format := table.Format(region.Format)
	if format == "" {
		format = table.Detect(region.Markup)
	}
	if _, err := table.Parse(region.Markup, format); err != nil {
		if errors.Is(err, table.ErrNoTable) {
			return nil, fmt.Errorf("%w: first region has no rows", ErrNoTableDetected)
		}
		return nil, err
	}

	discarded := len(tr.Regions) - 1
	if discarded > 0 {
		r.logger.Info("discarded extra table regions", "policy", r.policy, "discarded", discarded, "provider", tr.Provider)
	}

	return &Result{
		Markup:           Markup(region.Markup),
		Format:           format,
		Region:           region,
		DiscardedRegions: discarded,
		Provider:         tr.Provider,
		ExecutionTime:    tr.ExecutionTime,
	}, nil
}
