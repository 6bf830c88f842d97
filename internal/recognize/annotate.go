package recognize

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	"github.com/jackzampolin/formshelf/internal/providers"
)

const annotatedQuality = 90

var (
	regionColor = color.RGBA{R: 220, G: 30, B: 30, A: 255}
	cellColor   = color.RGBA{R: 30, G: 90, B: 220, A: 255}
)

// Annotate returns a JPEG of the recognition result. The engine's own
// visualization is used when it decodes; otherwise region and cell boxes
// are drawn on the source image.
func Annotate(source []byte, tr *providers.TableResult) ([]byte, error) {
	if len(tr.Visualization) > 0 {
		if vis, _, err := image.Decode(bytes.NewReader(tr.Visualization)); err == nil {
			return encodeJPEG(vis)
		}
	}

	src, _, err := image.Decode(bytes.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("failed to decode source image: %w", err)
	}
	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)

	for _, region := range tr.Regions {
		for _, cell := range region.Cells {
			strokeBox(canvas, cell, cellColor, 1)
		}
		if region.BBox != nil {
			strokeBox(canvas, *region.BBox, regionColor, 3)
		}
	}
	return encodeJPEG(canvas)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: annotatedQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode annotated image: %w", err)
	}
	return buf.Bytes(), nil
}

// strokeBox draws the outline of box with the given line width, clipped to
// the canvas.
func strokeBox(canvas *image.RGBA, box providers.Box, c color.Color, width int) {
	r := image.Rect(int(box[0]), int(box[1]), int(box[2]), int(box[3])).Intersect(canvas.Bounds())
	if r.Empty() {
		return
	}
	fill := &image.Uniform{C: c}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(canvas, e.Intersect(r), fill, image.Point{}, draw.Src)
	}
}
