// Package overlay draws recognized text boxes and labels over the source image,
// either onto a raster copy or onto a figure that can be written as SVG.
package overlay

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"

	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

const (
	DefaultFontSize      = 12.0
	DefaultCanvasOpacity = 0.5
)

// Style controls how boxes and labels are drawn
type Style struct {
	Color    color.Color
	FontSize float64
	// Opacity scales the box and label colour on images and the background
	// image on figures. Zero selects the target's default.
	Opacity float64
}

// DefaultStyle returns red 12pt labels with the canvas background at half opacity
func DefaultStyle() Style {
	return Style{Color: colornames.Red, FontSize: DefaultFontSize, Opacity: DefaultCanvasOpacity}
}

func (s Style) normalize(defaultOpacity float64) (Style, error) {
	if s.Color == nil {
		s.Color = colornames.Red
	}
	if s.FontSize == 0 {
		s.FontSize = DefaultFontSize
	}
	if s.FontSize < 0 {
		return s, providers.InvalidArgument("font size must be positive, got %v", s.FontSize)
	}
	if s.Opacity == 0 {
		s.Opacity = defaultOpacity
	}
	if s.Opacity < 0 || s.Opacity > 1 {
		return s, providers.InvalidArgument("opacity must be between 0 and 1, got %v", s.Opacity)
	}
	return s, nil
}

// ParseColor accepts SVG colour names ("red", "steelblue") or hex ("#ff8800", "ff8800")
func ParseColor(name string) (color.Color, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, providers.InvalidArgument("colour must not be empty")
	}
	if c, ok := colornames.Map[name]; ok {
		return c, nil
	}

	hex := name
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown colour %q", providers.ErrInvalidArgument, name)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// withOpacity returns c with its alpha scaled by opacity
func withOpacity(c color.Color, opacity float64) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(float64(n.A)*opacity + 0.5)
	return n
}

// hexColor renders c as #rrggbb for SVG attributes
func hexColor(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return colorful.Color{
		R: float64(n.R) / 255,
		G: float64(n.G) / 255,
		B: float64(n.B) / 255,
	}.Hex()
}
