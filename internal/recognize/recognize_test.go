package recognize

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackzampolin/formshelf/internal/home"
	"github.com/jackzampolin/formshelf/internal/providers"
	"github.com/jackzampolin/formshelf/internal/table"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImage_ContentType(t *testing.T) {
	pngData := testPNG(t, 4, 4)
	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")

	tests := []struct {
		name    string
		img     Image
		want    string
		wantErr bool
	}{
		{"png", Image{Name: "form.PNG", Data: pngData}, "image/png", false},
		{"gif extension", Image{Name: "form.gif", Data: gif}, "", true},
		{"png bytes named jpg", Image{Name: "form.jpg", Data: pngData}, "", true},
		{"gif bytes named png", Image{Name: "form.png", Data: gif}, "", true},
		{"no extension", Image{Name: "form", Data: pngData}, "", true},
		{"empty", Image{Name: "form.png"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.img.ContentType()
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedImage) {
					t.Errorf("error = %v, want ErrUnsupportedImage", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ContentType() = %q, %v", got, err)
			}
		})
	}
}

func TestParseRegionPolicy(t *testing.T) {
	if p, err := ParseRegionPolicy(""); err != nil || p != RegionFirst {
		t.Errorf("ParseRegionPolicy(\"\") = %q, %v", p, err)
	}
	if _, err := ParseRegionPolicy("merge"); err == nil {
		t.Error("expected error for merge")
	}
	if _, err := New(providers.NewMockTableRecognizer(), Options{RegionPolicy: "all"}); err == nil {
		t.Error("New() should reject unknown policy")
	}
}

func TestRecognizer_Recognize(t *testing.T) {
	ctx := context.Background()
	upload := Image{Name: "form.png", Data: testPNG(t, 8, 8)}

	t.Run("first region kept", func(t *testing.T) {
		engine := providers.NewMockTableRecognizer()
		engine.Regions = append(engine.Regions, providers.TableRegion{
			Markup: "| a |\n|---|\n| 1 |",
			Format: providers.FormatMarkdown,
		})
		r, _ := New(engine, Options{})

		res, err := r.Recognize(ctx, upload)
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		if string(res.Markup) != providers.SampleFormHTML || res.Format != table.FormatHTML {
			t.Errorf("markup = %q, format = %q", res.Markup, res.Format)
		}
		if res.DiscardedRegions != 1 {
			t.Errorf("DiscardedRegions = %d, want 1", res.DiscardedRegions)
		}
		if res.Dir != "" {
			t.Errorf("Recognize should not stage, dir = %s", res.Dir)
		}
	})

	t.Run("no table detected", func(t *testing.T) {
		cases := map[string][]providers.TableRegion{
			"zero regions":  nil,
			"empty markup":  {{Markup: "  ", Format: providers.FormatHTML}},
			"no table rows": {{Markup: "<table></table>", Format: providers.FormatHTML}},
		}
		for name, regions := range cases {
			t.Run(name, func(t *testing.T) {
				engine := providers.NewMockTableRecognizer()
				engine.Regions = regions
				r, _ := New(engine, Options{})

				_, err := r.Recognize(ctx, upload)
				if !errors.Is(err, ErrNoTableDetected) {
					t.Errorf("error = %v, want ErrNoTableDetected", err)
				}
			})
		}
	})

	t.Run("gif rejected before recognition", func(t *testing.T) {
		engine := providers.NewMockTableRecognizer()
		r, _ := New(engine, Options{})

		_, err := r.Recognize(ctx, Image{Name: "form.gif", Data: []byte("GIF89a")})
		if !errors.Is(err, ErrUnsupportedImage) {
			t.Errorf("error = %v, want ErrUnsupportedImage", err)
		}
		if engine.RequestCount() != 0 {
			t.Errorf("engine called %d times", engine.RequestCount())
		}
	})

	t.Run("engine failure", func(t *testing.T) {
		engine := providers.NewMockTableRecognizer()
		engine.ShouldFail = true
		r, _ := New(engine, Options{})

		_, err := r.Recognize(ctx, upload)
		if err == nil || errors.Is(err, ErrNoTableDetected) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("format detected when engine omits it", func(t *testing.T) {
		engine := providers.NewMockTableRecognizer()
		engine.Regions = []providers.TableRegion{{Markup: "| a |\n|---|\n| 1 |"}}
		r, _ := New(engine, Options{})

		res, err := r.Recognize(ctx, upload)
		if err != nil || res.Format != table.FormatMarkdown {
			t.Errorf("Recognize() = %+v, %v", res, err)
		}
	})
}

func TestRecognizer_RecognizeAnnotated(t *testing.T) {
	ctx := context.Background()
	upload := Image{Name: "delivery.png", Data: testPNG(t, 500, 300)}

	t.Run("stages upload, result and image", func(t *testing.T) {
		stager := home.NewStager(t.TempDir())
		r, _ := New(providers.NewMockTableRecognizer(), Options{Stager: stager})

		res, err := r.RecognizeAnnotated(ctx, upload)
		if err != nil {
			t.Fatalf("RecognizeAnnotated() error = %v", err)
		}
		for _, name := range []string{"delivery.png", home.ResultJSONName, home.ResultImageName} {
			if _, err := os.Stat(filepath.Join(res.Dir, name)); err != nil {
				t.Errorf("missing %s: %v", name, err)
			}
		}
		data, _ := os.ReadFile(res.ImagePath)
		if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
			t.Errorf("result.jpg is not a JPEG: %v", err)
		}
	})

	t.Run("two sessions never share a directory", func(t *testing.T) {
		stager := home.NewStager(t.TempDir())
		r, _ := New(providers.NewMockTableRecognizer(), Options{Stager: stager})

		a, err := r.RecognizeAnnotated(ctx, upload)
		if err != nil {
			t.Fatal(err)
		}
		b, err := r.RecognizeAnnotated(ctx, upload)
		if err != nil {
			t.Fatal(err)
		}
		if a.Dir == b.Dir {
			t.Errorf("sessions share %s", a.Dir)
		}
	})

	t.Run("artifacts kept when no table found", func(t *testing.T) {
		root := t.TempDir()
		engine := providers.NewMockTableRecognizer()
		engine.Regions = nil
		r, _ := New(engine, Options{Stager: home.NewStager(root)})

		_, err := r.RecognizeAnnotated(ctx, upload)
		if !errors.Is(err, ErrNoTableDetected) {
			t.Fatalf("error = %v, want ErrNoTableDetected", err)
		}
		entries, _ := os.ReadDir(root)
		if len(entries) != 1 {
			t.Errorf("session dirs = %d, want 1", len(entries))
		}
	})

	t.Run("storage failure", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "blocker")
		os.WriteFile(file, []byte("x"), 0o644)
		r, _ := New(providers.NewMockTableRecognizer(), Options{Stager: home.NewStager(filepath.Join(file, "results"))})

		_, err := r.RecognizeAnnotated(ctx, upload)
		if !errors.Is(err, home.ErrStorageWrite) {
			t.Errorf("error = %v, want ErrStorageWrite", err)
		}
	})

	t.Run("requires stager", func(t *testing.T) {
		r, _ := New(providers.NewMockTableRecognizer(), Options{})
		if _, err := r.RecognizeAnnotated(ctx, upload); err == nil {
			t.Error("expected error without stager")
		}
	})
}

func TestAnnotate(t *testing.T) {
	source := testPNG(t, 100, 100)

	t.Run("draws boxes", func(t *testing.T) {
		out, err := Annotate(source, &providers.TableResult{
			Regions: []providers.TableRegion{{BBox: &providers.Box{10, 10, 90, 90}}},
		})
		if err != nil {
			t.Fatalf("Annotate() error = %v", err)
		}
		img, err := jpeg.Decode(bytes.NewReader(out))
		if err != nil {
			t.Fatal(err)
		}
		r, g, _, _ := img.At(50, 11).RGBA()
		if r>>8 < 150 || g>>8 > 100 {
			t.Errorf("edge pixel not red: r=%d g=%d", r>>8, g>>8)
		}
		r, g, _, _ = img.At(50, 50).RGBA()
		if r>>8 < 200 || g>>8 < 200 {
			t.Errorf("interior pixel changed: r=%d g=%d", r>>8, g>>8)
		}
	})

	t.Run("engine visualization preferred", func(t *testing.T) {
		vis := testPNG(t, 20, 10)
		out, err := Annotate(source, &providers.TableResult{Visualization: vis})
		if err != nil {
			t.Fatalf("Annotate() error = %v", err)
		}
		img, err := jpeg.Decode(bytes.NewReader(out))
		if err != nil {
			t.Fatal(err)
		}
		if img.Bounds().Dx() != 20 {
			t.Errorf("width = %d, want visualization width 20", img.Bounds().Dx())
		}
	})

	t.Run("undecodable source", func(t *testing.T) {
		if _, err := Annotate([]byte("not an image"), &providers.TableResult{}); err == nil {
			t.Error("expected decode error")
		}
	})
}
