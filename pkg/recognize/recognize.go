// Package recognize adapts synchronous request/response OCR engines.
package recognize

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

// Options configures a single recognition call
type Options struct {
	// Level defaults to accurate when empty
	Level providers.Level
	// Languages is an ordered preference list. Nil means engine default.
	Languages []string
	// ConfidenceThreshold drops observations below it. Zero keeps everything.
	ConfidenceThreshold float64
	// Detail keeps bounding boxes on the returned detections
	Detail bool
}

// Normalize fills defaults and validates everything that does not need the engine
func (o Options) Normalize() (Options, error) {
	switch o.Level {
	case "":
		o.Level = providers.LevelAccurate
	case providers.LevelFast, providers.LevelAccurate:
	default:
		return o, providers.InvalidArgument("recognition level must be 'accurate' or 'fast', got %q", o.Level)
	}

	if o.ConfidenceThreshold < 0 || o.ConfidenceThreshold > 1 {
		return o, providers.InvalidArgument("confidence threshold must be between 0 and 1, got %v", o.ConfidenceThreshold)
	}

	if o.Languages != nil && len(o.Languages) == 0 {
		return o, providers.InvalidArgument("language preference must be a non-empty list")
	}

	return o, nil
}

// ValidateLanguages checks every requested tag against the engine's supported set
func ValidateLanguages(ctx context.Context, engine providers.Recognizer, level providers.Level, languages []string) error {
	if languages == nil {
		return nil
	}

	supported, err := engine.SupportedLanguages(ctx, level)
	if err != nil {
		return fmt.Errorf("failed to list languages for %s: %w", engine.Name(), err)
	}

	var unsupported []string
	for _, lang := range languages {
		if !slices.Contains(supported, lang) {
			unsupported = append(unsupported, lang)
		}
	}
	if len(unsupported) > 0 {
		return providers.InvalidArgument("unsupported language(s) %s; supported: %s",
			strings.Join(unsupported, ", "), strings.Join(supported, ", "))
	}

	return nil
}

// FromImage runs engine once over img and packages the observations.
// A failing engine yields an empty result with OutcomeEngineFailed and no error.
func FromImage(ctx context.Context, engine providers.Recognizer, img image.Image, opts Options) (providers.Result, error) {
	if img == nil {
		return providers.Result{}, providers.InvalidArgument("image must not be nil")
	}
	if engine == nil {
		return providers.Result{}, providers.InvalidArgument("recognizer must not be nil")
	}

	opts, err := opts.Normalize()
	if err != nil {
		return providers.Result{}, err
	}

	if !engine.Available() {
		return providers.Result{}, providers.FeatureUnavailable(engine.Name())
	}

	if err := ValidateLanguages(ctx, engine, opts.Level, opts.Languages); err != nil {
		return providers.Result{}, err
	}

	data, err := providers.EncodePNG(img)
	if err != nil {
		return providers.Result{}, err
	}

	observations, err := engine.Recognize(ctx, providers.RecognizeRequest{
		Image:     data,
		Level:     opts.Level,
		Languages: opts.Languages,
	})
	if err != nil {
		slog.Warn("Recognizer failed, returning empty result", "engine", engine.Name(), "err", err)
		return providers.Result{Detections: []providers.Detection{}, Outcome: providers.OutcomeEngineFailed}, nil
	}

	detections := Package(observations, opts.ConfidenceThreshold, opts.Detail)
	slog.Debug("Recognition completed",
		"engine", engine.Name(),
		"level", opts.Level,
		"observations", len(observations),
		"detections", len(detections))

	return providers.Result{Detections: detections, Outcome: providers.OutcomeComplete}, nil
}

// Package filters observations by threshold (inclusive) and converts them to
// detections in engine order
func Package(observations []providers.Observation, threshold float64, detail bool) []providers.Detection {
	detections := make([]providers.Detection, 0, len(observations))
	for _, o := range observations {
		if o.Confidence < threshold {
			continue
		}
		d := providers.Detection{Text: o.Text, Confidence: o.Confidence}
		if detail {
			box := o.Box
			d.Box = &box
		}
		detections = append(detections, d)
	}
	return detections
}
