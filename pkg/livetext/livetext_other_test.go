//go:build !darwin || !cgo

package livetext

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/lehigh-university-libraries/visionocr/pkg/analyze"
	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

func TestProvider_UnavailableOffMacOS(t *testing.T) {
	p := New()
	if p.Available() {
		t.Fatal("expected Live Text to be unavailable")
	}

	_, err := analyze.FromImage(context.Background(), p, image.NewRGBA(image.Rect(0, 0, 4, 4)), analyze.Options{})
	if !errors.Is(err, providers.ErrFeatureUnavailable) {
		t.Errorf("FromImage() error = %v, want ErrFeatureUnavailable", err)
	}
}
