package overlay

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/lehigh-university-libraries/visionocr/pkg/coords"
	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

// Label is a text annotation anchored at a plot-space point
type Label struct {
	X, Y float64
	Text string
}

// Figure is a plotting canvas: the source image drawn translucently with
// rectangle and label primitives on top, in plot coordinates.
type Figure struct {
	Width, Height   int
	Background      image.Image
	BackgroundAlpha float64
	Color           color.Color
	FontSize        float64
	Rects           []coords.PlotRect
	Labels          []Label
}

// NewFigure builds a figure with one rectangle and label per boxed detection
func NewFigure(src image.Image, detections []providers.Detection, style Style) (*Figure, error) {
	if src == nil {
		return nil, providers.InvalidArgument("image must not be nil")
	}
	style, err := style.normalize(DefaultCanvasOpacity)
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	fig := &Figure{
		Width:           b.Dx(),
		Height:          b.Dy(),
		Background:      src,
		BackgroundAlpha: style.Opacity,
		Color:           style.Color,
		FontSize:        style.FontSize,
	}
	for _, d := range detections {
		if d.Box == nil {
			continue
		}
		r := coords.ToPlotSpace(*d.Box, fig.Width, fig.Height)
		fig.Rects = append(fig.Rects, r)
		fig.Labels = append(fig.Labels, Label{X: r.X, Y: r.Top(), Text: d.Text})
	}
	return fig, nil
}

// WriteSVG encodes the figure as a standalone SVG document with the
// background embedded as a PNG data URI
func (f *Figure) WriteSVG(w io.Writer) error {
	bg, err := providers.EncodePNG(f.Background)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	stroke := hexColor(f.Color)

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		f.Width, f.Height, f.Width, f.Height)
	fmt.Fprintf(bw, `  <image href="data:image/png;base64,%s" x="0" y="0" width="%d" height="%d" opacity="%g"/>`+"\n",
		base64.StdEncoding.EncodeToString(bg), f.Width, f.Height, f.BackgroundAlpha)

	for _, r := range f.Rects {
		// plot rects extend upward from the bottom edge; SVG needs the top edge and a positive height
		fmt.Fprintf(bw, `  <rect x="%g" y="%g" width="%g" height="%g" fill="none" stroke="%s" stroke-width="1"/>`+"\n",
			r.X, r.Top(), r.Width, -r.Height, stroke)
	}

	for _, l := range f.Labels {
		var text bytes.Buffer
		if err := xml.EscapeText(&text, []byte(l.Text)); err != nil {
			return fmt.Errorf("failed to escape label: %w", err)
		}
		fmt.Fprintf(bw, `  <text x="%g" y="%g" font-family="Go, sans-serif" font-size="%g" fill="%s">%s</text>`+"\n",
			l.X, l.Y, f.FontSize, stroke, text.String())
	}

	fmt.Fprintln(bw, `</svg>`)
	return bw.Flush()
}
