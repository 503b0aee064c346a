// Package ocr provides Session, a stateful facade that validates a recognition
// configuration once, runs it against one image, and caches the result for
// pixel conversion and overlay rendering.
package ocr

import (
	"context"
	"image"
	"slices"
	"time"

	"github.com/lehigh-university-libraries/visionocr/pkg/analyze"
	"github.com/lehigh-university-libraries/visionocr/pkg/coords"
	"github.com/lehigh-university-libraries/visionocr/pkg/overlay"
	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
	"github.com/lehigh-university-libraries/visionocr/pkg/recognize"
)

// Options is the full recognition configuration. The concrete type of Engine
// selects the backend: a providers.Recognizer takes the synchronous path, a
// providers.Analyzer the asynchronous one.
type Options struct {
	Engine    providers.Engine
	Level     providers.Level
	Languages []string
	// ConfidenceThreshold applies to recognizers only
	ConfidenceThreshold float64
	Detail              bool
	// Granularity and Timeout apply to analyzers only
	Granularity providers.Granularity
	Timeout     time.Duration
}

// PixelDetection is a Detection with its box in top-left-origin pixels
type PixelDetection struct {
	Text       string           `json:"text" yaml:"text"`
	Confidence float64          `json:"confidence" yaml:"confidence"`
	Box        coords.PixelRect `json:"bbox" yaml:"bbox"`
}

type backend interface {
	name() string
	run(ctx context.Context, img image.Image) (providers.Result, error)
}

type recognizerBackend struct {
	engine providers.Recognizer
	opts   recognize.Options
}

func (b recognizerBackend) name() string { return b.engine.Name() }

func (b recognizerBackend) run(ctx context.Context, img image.Image) (providers.Result, error) {
	return recognize.FromImage(ctx, b.engine, img, b.opts)
}

type analyzerBackend struct {
	engine providers.Analyzer
	opts   analyze.Options
}

func (b analyzerBackend) name() string { return b.engine.Name() }

func (b analyzerBackend) run(ctx context.Context, img image.Image) (providers.Result, error) {
	return analyze.FromImage(ctx, b.engine, img, b.opts)
}

// Session owns one decoded image and the result of the last recognition.
// It is not safe for concurrent use.
type Session struct {
	img     image.Image
	backend backend
	detail  bool

	recognized bool
	detections []providers.Detection
	outcome    providers.Outcome
}

// New validates opts and returns a Session ready to recognize img
func New(img image.Image, opts Options) (*Session, error) {
	if img == nil {
		return nil, providers.InvalidArgument("image must not be nil")
	}
	b, err := newBackend(opts)
	if err != nil {
		return nil, err
	}
	return &Session{img: img, backend: b, detail: opts.Detail}, nil
}

// Open decodes the image at path and returns a Session for it
func Open(path string, opts Options) (*Session, error) {
	img, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return New(img, opts)
}

func newBackend(opts Options) (backend, error) {
	switch engine := opts.Engine.(type) {
	case nil:
		return nil, providers.InvalidArgument("an OCR engine must be selected")
	case providers.Recognizer:
		if opts.Granularity != "" && opts.Granularity != providers.GranularityToken {
			return nil, providers.InvalidArgument("granularity is not supported by recognizers (got %q)", opts.Granularity)
		}
		if opts.Timeout != 0 {
			return nil, providers.InvalidArgument("timeout is not supported by recognizers (got %s)", opts.Timeout)
		}
		ro, err := recognize.Options{
			Level:               opts.Level,
			Languages:           opts.Languages,
			ConfidenceThreshold: opts.ConfidenceThreshold,
			Detail:              opts.Detail,
		}.Normalize()
		if err != nil {
			return nil, err
		}
		return recognizerBackend{engine: engine, opts: ro}, nil
	case providers.Analyzer:
		if err := analyze.ValidateOverrides(opts.Level, opts.ConfidenceThreshold); err != nil {
			return nil, err
		}
		ao, err := analyze.Options{
			Languages:   opts.Languages,
			Detail:      opts.Detail,
			Granularity: opts.Granularity,
			Timeout:     opts.Timeout,
		}.Normalize()
		if err != nil {
			return nil, err
		}
		if !engine.Available() {
			return nil, providers.FeatureUnavailable(engine.Name())
		}
		return analyzerBackend{engine: engine, opts: ao}, nil
	default:
		return nil, providers.InvalidArgument("engine %s is neither a recognizer nor an analyzer", engine.Name())
	}
}

// Engine returns the name of the engine the session dispatches to
func (s *Session) Engine() string {
	return s.backend.name()
}

// Image returns the decoded source image
func (s *Session) Image() image.Image {
	return s.img
}

// Bounds returns the source image bounds
func (s *Session) Bounds() image.Rectangle {
	return s.img.Bounds()
}

// Recognize runs the configured engine and replaces the cached result
func (s *Session) Recognize(ctx context.Context) ([]providers.Detection, error) {
	res, err := s.backend.run(ctx, s.img)
	if err != nil {
		return nil, err
	}
	s.detections = res.Detections
	s.outcome = res.Outcome
	s.recognized = true
	return slices.Clone(s.detections), nil
}

// RecognizePixels runs Recognize and converts every box to pixel space.
// It requires detail.
func (s *Session) RecognizePixels(ctx context.Context) ([]PixelDetection, error) {
	if !s.detail {
		return nil, providers.InvalidArgument("pixel coordinates require detail to be enabled")
	}
	detections, err := s.Recognize(ctx)
	if err != nil {
		return nil, err
	}

	b := s.img.Bounds()
	out := make([]PixelDetection, 0, len(detections))
	for _, d := range detections {
		if d.Box == nil {
			continue
		}
		out = append(out, PixelDetection{
			Text:       d.Text,
			Confidence: d.Confidence,
			Box:        coords.ToPixelSpace(*d.Box, b.Dx(), b.Dy()),
		})
	}
	return out, nil
}

// Result returns the cached detections and whether recognition has run
func (s *Session) Result() ([]providers.Detection, bool) {
	if !s.recognized {
		return nil, false
	}
	return slices.Clone(s.detections), true
}

// Outcome reports how the last recognition finished
func (s *Session) Outcome() (providers.Outcome, bool) {
	return s.outcome, s.recognized
}

// RenderOverlayToImage draws the cached detections onto a copy of the image,
// recognizing first if needed
func (s *Session) RenderOverlayToImage(ctx context.Context, style overlay.Style) (*image.RGBA, error) {
	detections, err := s.overlayDetections(ctx)
	if err != nil {
		return nil, err
	}
	return overlay.DrawImage(s.img, detections, style)
}

// RenderOverlayToCanvas builds a figure of the cached detections over the
// image, recognizing first if needed
func (s *Session) RenderOverlayToCanvas(ctx context.Context, style overlay.Style) (*overlay.Figure, error) {
	detections, err := s.overlayDetections(ctx)
	if err != nil {
		return nil, err
	}
	return overlay.NewFigure(s.img, detections, style)
}

func (s *Session) overlayDetections(ctx context.Context) ([]providers.Detection, error) {
	if !s.detail {
		return nil, providers.InvalidArgument("overlays require detail to be enabled")
	}
	if s.recognized {
		return s.detections, nil
	}
	return s.Recognize(ctx)
}
