package providers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/lehigh-university-libraries/visionocr/pkg/coords"
)

// Level selects the speed/accuracy trade-off of a recognizer
type Level string

const (
	LevelFast     Level = "fast"
	LevelAccurate Level = "accurate"
)

// Granularity selects how an analyzer's line/token tree is flattened
type Granularity string

const (
	GranularityToken Granularity = "token"
	GranularityLine  Granularity = "line"
)

// Detection is one recognized text unit
type Detection struct {
	Text       string                `json:"text" yaml:"text"`
	Confidence float64               `json:"confidence" yaml:"confidence"`
	Box        *coords.NormalizedBox `json:"bbox,omitempty" yaml:"bbox,omitempty"`
}

// Observation is a raw result reported by a Recognizer
type Observation struct {
	Text       string
	Confidence float64
	Box        coords.NormalizedBox
}

// RecognizeRequest is a single whole-image recognition call
type RecognizeRequest struct {
	// Image holds PNG-encoded image bytes
	Image     []byte
	Level     Level
	Languages []string
}

// Token is the smallest unit of an analyzer's result tree.
// Quad uses the analyzer-native convention: normalized, origin top-left,
// Y is the top edge.
type Token struct {
	Text string
	Quad coords.NormalizedBox
}

// Line owns its tokens in reading order
type Line struct {
	Text   string
	Quad   coords.NormalizedBox
	Tokens []Token
}

// Tree is the hierarchical result an Analyzer reports
type Tree []Line

// Engine is implemented by every OCR backend
type Engine interface {
	// Name returns the engine's registry name
	Name() string
	// Available reports whether the engine can run on this host
	Available() bool
}

// Recognizer is a synchronous request/response OCR engine
type Recognizer interface {
	Engine
	// SupportedLanguages lists the language tags accepted at the given level
	SupportedLanguages(ctx context.Context, level Level) ([]string, error)
	// Recognize runs one recognition call over the whole image
	Recognize(ctx context.Context, req RecognizeRequest) ([]Observation, error)
}

// Analyzer is an asynchronous, callback-driven OCR engine
type Analyzer interface {
	Engine
	// Analyze submits img for analysis and returns without waiting.
	// done is called at most once, possibly from another goroutine.
	// A non-nil return means the request could not be submitted and done
	// will not be called.
	Analyze(ctx context.Context, img image.Image, languages []string, done func(Tree, error)) error
}

// EncodePNG encodes img in the lossless format handed to engines
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// TruncateBody truncates a response body to a maximum length for error messages.
// Default maxLen is 500 if not specified.
func TruncateBody(body []byte, maxLen ...int) string {
	limit := 500
	if len(maxLen) > 0 && maxLen[0] > 0 {
		limit = maxLen[0]
	}
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "... (truncated)"
	}
	return s
}
