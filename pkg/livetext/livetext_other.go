//go:build !darwin || !cgo

package livetext

import (
	"context"
	"fmt"
	"image"

	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

// Available is always false off macOS
func (p *Provider) Available() bool {
	return false
}

func (p *Provider) Analyze(ctx context.Context, img image.Image, languages []string, done func(providers.Tree, error)) error {
	return fmt.Errorf("%w: Live Text requires macOS with cgo", providers.ErrFeatureUnavailable)
}
