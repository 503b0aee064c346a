// Package analyze adapts asynchronous, callback-driven OCR engines into a
// blocking call with a bounded wait.
package analyze

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/visionocr/pkg/coords"
	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

// DefaultTimeout bounds how long FromImage waits for the engine callback
const DefaultTimeout = 10 * time.Second

// Options configures a single analysis call
type Options struct {
	Languages []string
	Detail    bool
	// Granularity defaults to token when empty
	Granularity providers.Granularity
	// Timeout defaults to DefaultTimeout when zero
	Timeout time.Duration
}

// Normalize fills defaults and validates option values
func (o Options) Normalize() (Options, error) {
	switch o.Granularity {
	case "":
		o.Granularity = providers.GranularityToken
	case providers.GranularityToken, providers.GranularityLine:
	default:
		return o, providers.InvalidArgument("granularity must be 'token' or 'line', got %q", o.Granularity)
	}

	if o.Languages != nil && len(o.Languages) == 0 {
		return o, providers.InvalidArgument("language preference must be a non-empty list")
	}

	switch {
	case o.Timeout == 0:
		o.Timeout = DefaultTimeout
	case o.Timeout < 0:
		return o, providers.InvalidArgument("timeout must be positive, got %s", o.Timeout)
	}

	return o, nil
}

// ValidateOverrides rejects recognizer-only options, which analyzers do not support
func ValidateOverrides(level providers.Level, confidenceThreshold float64) error {
	if level != "" && level != providers.LevelAccurate {
		return providers.InvalidArgument("recognition level is not supported by analyzers (got %q)", level)
	}
	if confidenceThreshold != 0 {
		return providers.InvalidArgument("confidence threshold is not supported by analyzers (got %v)", confidenceThreshold)
	}
	return nil
}

type completion struct {
	tree providers.Tree
	err  error
}

// FromImage submits img to engine and blocks until the engine calls back,
// opts.Timeout elapses, or ctx is done. A deadline with no callback returns an
// empty result with OutcomeTimedOut and no error; the deadline also bounds a
// slow submission. A submit or callback error returns ErrEngine.
func FromImage(ctx context.Context, engine providers.Analyzer, img image.Image, opts Options) (providers.Result, error) {
	if img == nil {
		return providers.Result{}, providers.InvalidArgument("image must not be nil")
	}
	if engine == nil {
		return providers.Result{}, providers.InvalidArgument("analyzer must not be nil")
	}

	opts, err := opts.Normalize()
	if err != nil {
		return providers.Result{}, err
	}

	if !engine.Available() {
		return providers.Result{}, providers.FeatureUnavailable(engine.Name())
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// single slot: the first callback wins, later ones are dropped
	completed := make(chan completion, 1)
	var once sync.Once
	done := func(tree providers.Tree, err error) {
		once.Do(func() {
			completed <- completion{tree: tree, err: err}
		})
	}

	// the deadline covers submission too
	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()

	submitted := make(chan error, 1)
	go func() {
		submitted <- engine.Analyze(callCtx, img, opts.Languages, done)
	}()

	for {
		select {
		case err := <-submitted:
			if err != nil {
				return providers.Result{}, fmt.Errorf("%w: %s: %w", providers.ErrEngine, engine.Name(), err)
			}
			submitted = nil
		case c := <-completed:
			if c.err != nil {
				return providers.Result{}, fmt.Errorf("%w: %s: %w", providers.ErrEngine, engine.Name(), c.err)
			}
			detections := Flatten(c.tree, opts.Granularity, opts.Detail)
			slog.Debug("Analysis completed",
				"engine", engine.Name(),
				"lines", len(c.tree),
				"granularity", opts.Granularity,
				"detections", len(detections))
			return providers.Result{Detections: detections, Outcome: providers.OutcomeComplete}, nil
		case <-timer.C:
			slog.Warn("Analyzer did not respond before deadline", "engine", engine.Name(), "timeout", opts.Timeout)
			return providers.Result{Detections: []providers.Detection{}, Outcome: providers.OutcomeTimedOut}, nil
		case <-ctx.Done():
			return providers.Result{}, ctx.Err()
		}
	}
}

// Flatten turns the line/token tree into detections at the given granularity.
// Analyzers report no confidence, so every detection carries 1.0.
func Flatten(tree providers.Tree, granularity providers.Granularity, detail bool) []providers.Detection {
	detections := []providers.Detection{}
	for _, line := range tree {
		if granularity == providers.GranularityLine {
			detections = append(detections, toDetection(line.Text, line.Quad, detail))
			continue
		}
		for _, token := range line.Tokens {
			detections = append(detections, toDetection(token.Text, token.Quad, detail))
		}
	}
	return detections
}

func toDetection(text string, quad coords.NormalizedBox, detail bool) providers.Detection {
	d := providers.Detection{Text: text, Confidence: 1.0}
	if detail {
		box := coords.FromTopLeft(quad.X, quad.Y, quad.Width, quad.Height)
		d.Box = &box
	}
	return d
}
