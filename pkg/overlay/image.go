package overlay

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/lehigh-university-libraries/visionocr/pkg/coords"
	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

// DrawImage returns a copy of src with one rectangle outline and label per
// boxed detection. src is not modified.
func DrawImage(src image.Image, detections []providers.Detection, style Style) (*image.RGBA, error) {
	if src == nil {
		return nil, providers.InvalidArgument("image must not be nil")
	}
	style, err := style.normalize(1.0)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	face, err := newFace(style.FontSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	ink := image.NewUniform(withOpacity(style.Color, style.Opacity))
	ascent := face.Metrics().Ascent.Ceil()
	descent := face.Metrics().Descent.Ceil()

	for _, d := range detections {
		if d.Box == nil {
			continue
		}
		px := coords.ToPixelSpace(*d.Box, bounds.Dx(), bounds.Dy())
		r := image.Rect(
			bounds.Min.X+round(px.X1), bounds.Min.Y+round(px.Y1),
			bounds.Min.X+round(px.X2), bounds.Min.Y+round(px.Y2),
		)
		strokeRect(dst, r, ink)

		baseline := r.Min.Y - descent
		if baseline-ascent < bounds.Min.Y {
			baseline = r.Min.Y + ascent
		}
		drawer := &font.Drawer{
			Dst:  dst,
			Src:  ink,
			Face: face,
			Dot:  fixed.P(r.Min.X, baseline),
		}
		drawer.DrawString(d.Text)
	}

	return dst, nil
}

func newFace(size float64) (font.Face, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse label font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create label font face: %w", err)
	}
	return face, nil
}

// strokeRect draws a one pixel outline just inside r
func strokeRect(dst draw.Image, r image.Rectangle, ink image.Image) {
	r = r.Canon()
	if r.Empty() {
		r.Max = r.Max.Add(image.Pt(1, 1))
	}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
		image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y+1, r.Min.X+1, r.Max.Y-1),
		image.Rect(r.Max.X-1, r.Min.Y+1, r.Max.X, r.Max.Y-1),
	}
	for _, e := range edges {
		draw.Draw(dst, e, ink, image.Point{}, draw.Over)
	}
}

func round(v float64) int {
	return int(math.Round(v))
}
