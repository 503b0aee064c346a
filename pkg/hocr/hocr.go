// Package hocr renders detections as an hOCR document.
package hocr

import (
	"fmt"
	"math"
	"strings"

	"github.com/lehigh-university-libraries/visionocr/pkg/coords"
	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

// FromDetections converts detections into a complete hOCR document for an
// image of width x height pixels. Every detection must carry a box.
func FromDetections(detections []providers.Detection, width, height int) (string, error) {
	if width <= 0 || height <= 0 {
		return "", providers.InvalidArgument("image dimensions must be positive, got %dx%d", width, height)
	}

	lines := make([]string, 0, len(detections))
	for i, d := range detections {
		if d.Box == nil {
			return "", providers.InvalidArgument("detection %d has no bounding box; recognize with detail enabled", i+1)
		}
		px := coords.ToPixelSpace(*d.Box, width, height)
		bbox := fmt.Sprintf("bbox %d %d %d %d", round(px.X1), round(px.Y1), round(px.X2), round(px.Y2))
		line := fmt.Sprintf(`<span class='ocr_line' id='line_%d' title='%s'><span class='ocrx_word' id='word_%d' title='%s; x_wconf %d'>%s</span></span>`,
			i+1, bbox,
			i+1, bbox, round(d.Confidence*100),
			escapeText(d.Text))
		lines = append(lines, line)
	}

	return WrapInHOCRDocument(strings.Join(lines, "\n"), width, height), nil
}

// WrapInHOCRDocument wraps content in a complete hOCR HTML document with a
// single page of width x height pixels
func WrapInHOCRDocument(content string, width, height int) string {
	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
<head>
<title></title>
<meta http-equiv="Content-Type" content="text/html;charset=utf-8" />
<meta name='ocr-system' content='visionocr' />
<meta name='ocr-capabilities' content='ocr_page ocr_line ocrx_word' />
</head>
<body>
<div class='ocr_page' id='page_1' title='bbox 0 0 %d %d'>
%s
</div>
</body>
</html>`, width, height, content)
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&#39;",
	`"`, "&quot;",
)

// escapeText makes recognized text safe inside element content and attributes
func escapeText(s string) string {
	return textEscaper.Replace(s)
}

func round(v float64) int {
	return int(math.Round(v))
}
