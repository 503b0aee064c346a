// Package vision implements a recognizer backed by Apple's Vision framework
// text recognition request. It is only available on macOS builds with cgo.
package vision

// Provider implements providers.Recognizer with VNRecognizeTextRequest
type Provider struct{}

// New creates a Vision-backed provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "vision"
}
