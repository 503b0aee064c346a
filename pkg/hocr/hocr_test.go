package hocr

import (
	"errors"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/visionocr/pkg/coords"
	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

func TestFromDetections(t *testing.T) {
	tests := []struct {
		name       string
		detections []providers.Detection
		wantWords  int
		contains   []string
	}{
		{
			name:       "no detections",
			detections: nil,
			wantWords:  0,
			contains:   []string{"title='bbox 0 0 200 100'"},
		},
		{
			name: "single word",
			detections: []providers.Detection{
				{Text: "HELLO", Confidence: 0.98, Box: &coords.NormalizedBox{X: 0, Y: 0.75, Width: 0.5, Height: 0.25}},
			},
			wantWords: 1,
			contains: []string{
				"<span class='ocrx_word' id='word_1' title='bbox 0 0 100 25; x_wconf 98'>HELLO</span>",
				"<span class='ocr_line' id='line_1' title='bbox 0 0 100 25'>",
			},
		},
		{
			name: "text is escaped",
			detections: []providers.Detection{
				{Text: "A & <B>", Confidence: 1, Box: &coords.NormalizedBox{X: 0.5, Y: 0, Width: 0.5, Height: 0.5}},
				{Text: "it's", Confidence: 0.5, Box: &coords.NormalizedBox{X: 0, Y: 0, Width: 0.1, Height: 0.1}},
			},
			wantWords: 2,
			contains: []string{
				"A &amp; &lt;B&gt;",
				"it&#39;s",
				"title='bbox 100 50 200 100; x_wconf 100'",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := FromDetections(tt.detections, 200, 100)
			if err != nil {
				t.Fatalf("FromDetections() error = %v", err)
			}
			if !strings.Contains(result, "<!DOCTYPE html") {
				t.Errorf("FromDetections() missing DOCTYPE declaration")
			}
			if got := strings.Count(result, "class='ocrx_word'"); got != tt.wantWords {
				t.Errorf("FromDetections() produced %d words, want %d", got, tt.wantWords)
			}
			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("FromDetections() missing %q", want)
				}
			}
		})
	}
}

func TestFromDetectionsErrors(t *testing.T) {
	tests := []struct {
		name          string
		detections    []providers.Detection
		width, height int
	}{
		{
			name:       "detection without box",
			detections: []providers.Detection{{Text: "plain", Confidence: 1}},
			width:      10,
			height:     10,
		},
		{
			name:   "zero width",
			width:  0,
			height: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromDetections(tt.detections, tt.width, tt.height)
			if !errors.Is(err, providers.ErrInvalidArgument) {
				t.Errorf("FromDetections() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestWrapInHOCRDocument(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty content", ""},
		{"simple content", "<span>test</span>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WrapInHOCRDocument(tt.content, 800, 600)
			if !strings.Contains(result, "<!DOCTYPE html") {
				t.Errorf("WrapInHOCRDocument() missing DOCTYPE")
			}
			if !strings.Contains(result, tt.content) {
				t.Errorf("WrapInHOCRDocument() missing content")
			}
			if !strings.Contains(result, "ocr-system") {
				t.Errorf("WrapInHOCRDocument() missing ocr-system meta")
			}
			if !strings.Contains(result, "bbox 0 0 800 600") {
				t.Errorf("WrapInHOCRDocument() missing page bbox")
			}
		})
	}
}

func TestEscapeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no special characters", "hello world", "hello world"},
		{"ampersand", "hello & world", "hello &amp; world"},
		{"already escaped is escaped again", "&amp;", "&amp;amp;"},
		{"angle brackets", "<b>", "&lt;b&gt;"},
		{"quotes", `"q" 'a'`, "&quot;q&quot; &#39;a&#39;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := escapeText(tt.input); result != tt.expected {
				t.Errorf("escapeText() = %q, want %q", result, tt.expected)
			}
		})
	}
}
