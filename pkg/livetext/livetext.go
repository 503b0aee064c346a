// Package livetext implements an analyzer backed by VisionKit's Live Text
// image analyzer. It is only available on macOS 13+ builds with cgo.
package livetext

// Provider implements providers.Analyzer with VKCImageAnalyzer
type Provider struct{}

// New creates a Live Text-backed provider
func New() *Provider {
	return &Provider{}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "livetext"
}
