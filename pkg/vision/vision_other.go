//go:build !darwin || !cgo

package vision

import (
	"context"
	"fmt"

	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

// Available is always false off macOS
func (p *Provider) Available() bool {
	return false
}

func (p *Provider) SupportedLanguages(ctx context.Context, level providers.Level) ([]string, error) {
	return nil, fmt.Errorf("%w: Vision framework requires macOS with cgo", providers.ErrFeatureUnavailable)
}

func (p *Provider) Recognize(ctx context.Context, req providers.RecognizeRequest) ([]providers.Observation, error) {
	return nil, fmt.Errorf("%w: Vision framework requires macOS with cgo", providers.ErrFeatureUnavailable)
}
