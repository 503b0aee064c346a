// Package tesseract implements a recognizer backed by libtesseract through gosseract.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/lehigh-university-libraries/visionocr/pkg/coords"
	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

// Provider implements providers.Recognizer with one gosseract client per call
type Provider struct {
	clientFactory func() *gosseract.Client
	listLanguages func() ([]string, error)

	probeOnce sync.Once
	languages []string
	probeErr  error
}

// New creates a Tesseract-backed provider
func New() *Provider {
	return &Provider{
		clientFactory: gosseract.NewClient,
		listLanguages: gosseract.GetAvailableLanguages,
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "tesseract"
}

func (p *Provider) probe() ([]string, error) {
	p.probeOnce.Do(func() {
		p.languages, p.probeErr = p.listLanguages()
		if p.probeErr != nil {
			slog.Debug("Tesseract language probe failed", "err", p.probeErr)
		}
	})
	return p.languages, p.probeErr
}

// Available reports whether any traineddata is installed
func (p *Provider) Available() bool {
	langs, err := p.probe()
	return err == nil && len(langs) > 0
}

// SupportedLanguages lists installed traineddata; the level does not change it
func (p *Provider) SupportedLanguages(ctx context.Context, level providers.Level) ([]string, error) {
	langs, err := p.probe()
	if err != nil {
		return nil, fmt.Errorf("failed to list tesseract languages: %w", err)
	}
	return append([]string(nil), langs...), nil
}

// Recognize runs Tesseract over the whole image and returns one observation per text line
func (p *Provider) Recognize(ctx context.Context, req providers.RecognizeRequest) ([]providers.Observation, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(req.Image))
	if err != nil {
		return nil, fmt.Errorf("failed to read image dimensions: %w", err)
	}

	c := p.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(req.Image); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if len(req.Languages) > 0 {
		if err := c.SetLanguage(req.Languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetPageSegMode(pageSegMode(req.Level)); err != nil {
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	return boxesToObservations(boxes, cfg.Width, cfg.Height), nil
}

// pageSegMode maps the recognition level onto Tesseract's segmentation modes
func pageSegMode(level providers.Level) gosseract.PageSegMode {
	if level == providers.LevelFast {
		return gosseract.PSM_SPARSE_TEXT
	}
	return gosseract.PSM_AUTO
}

func boxesToObservations(boxes []gosseract.BoundingBox, width, height int) []providers.Observation {
	observations := make([]providers.Observation, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		rect := coords.PixelRect{
			X1: float64(b.Box.Min.X),
			Y1: float64(b.Box.Min.Y),
			X2: float64(b.Box.Max.X),
			Y2: float64(b.Box.Max.Y),
		}
		observations = append(observations, providers.Observation{
			Text:       text,
			Confidence: b.Confidence / 100.0,
			Box:        coords.FromPixels(rect, width, height),
		})
	}
	return observations
}
