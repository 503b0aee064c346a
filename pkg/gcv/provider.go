// Package gcv implements a recognizer backed by Google Cloud Vision.
package gcv

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"math"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"github.com/lehigh-university-libraries/visionocr/internal/utils"
	"github.com/lehigh-university-libraries/visionocr/pkg/coords"
	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

// annotator is the subset of the Vision client the provider calls
type annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// Provider implements providers.Recognizer with the Cloud Vision text detection features
type Provider struct {
	newClient func(ctx context.Context) (annotator, error)
}

// New creates a provider. Credentials come from opts or Application Default Credentials.
func New(opts ...option.ClientOption) *Provider {
	return &Provider{
		newClient: func(ctx context.Context) (annotator, error) {
			client, err := vision.NewImageAnnotatorClient(ctx, opts...)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "gcv"
}

// Available reports whether credentials are configured
func (p *Provider) Available() bool {
	return os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" || os.Getenv("GOOGLE_CLOUD_PROJECT") != ""
}

// SupportedLanguages returns the language hints Cloud Vision accepts for text detection
func (p *Provider) SupportedLanguages(ctx context.Context, level providers.Level) ([]string, error) {
	return append([]string(nil), languageHints...), nil
}

// Recognize annotates the image once and returns one observation per word
func (p *Provider) Recognize(ctx context.Context, req providers.RecognizeRequest) ([]providers.Observation, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(req.Image))
	if err != nil {
		return nil, fmt.Errorf("failed to read image dimensions: %w", err)
	}

	client, err := p.newClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", utils.MaskSensitiveError(err))
	}
	defer client.Close()

	feature := visionpb.Feature_DOCUMENT_TEXT_DETECTION
	if req.Level == providers.LevelFast {
		feature = visionpb.Feature_TEXT_DETECTION
	}

	annotateReq := &visionpb.AnnotateImageRequest{
		Image:    &visionpb.Image{Content: req.Image},
		Features: []*visionpb.Feature{{Type: feature}},
	}
	if len(req.Languages) > 0 {
		annotateReq.ImageContext = &visionpb.ImageContext{LanguageHints: req.Languages}
	}

	resp, err := client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{annotateReq},
	})
	if err != nil {
		return nil, fmt.Errorf("vision API error: %w", utils.MaskSensitiveError(err))
	}

	responses := resp.GetResponses()
	if len(responses) == 0 {
		return nil, fmt.Errorf("no response from vision API")
	}
	if apiErr := responses[0].GetError(); apiErr != nil && apiErr.GetCode() != 0 {
		return nil, fmt.Errorf("vision API error: %d - %s", apiErr.GetCode(), apiErr.GetMessage())
	}

	return wordsToObservations(responses[0].GetFullTextAnnotation(), cfg.Width, cfg.Height), nil
}

// wordsToObservations walks pages, blocks, paragraphs and words in reading order
func wordsToObservations(annotation *visionpb.TextAnnotation, width, height int) []providers.Observation {
	observations := []providers.Observation{}
	for _, page := range annotation.GetPages() {
		pw, ph := int(page.GetWidth()), int(page.GetHeight())
		if pw <= 0 || ph <= 0 {
			pw, ph = width, height
		}
		for _, block := range page.GetBlocks() {
			for _, paragraph := range block.GetParagraphs() {
				for _, word := range paragraph.GetWords() {
					var text strings.Builder
					for _, symbol := range word.GetSymbols() {
						text.WriteString(symbol.GetText())
					}
					if text.Len() == 0 {
						continue
					}
					observations = append(observations, providers.Observation{
						Text:       text.String(),
						Confidence: float64(word.GetConfidence()),
						Box:        polyToBox(word.GetBoundingBox(), pw, ph),
					})
				}
			}
		}
	}
	return observations
}

func polyToBox(poly *visionpb.BoundingPoly, width, height int) coords.NormalizedBox {
	vertices := poly.GetVertices()
	if len(vertices) == 0 {
		return coords.NormalizedBox{}
	}

	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, v := range vertices {
		x, y := float64(v.GetX()), float64(v.GetY())
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}

	return coords.FromPixels(coords.PixelRect{X1: minX, Y1: minY, X2: maxX, Y2: maxY}, width, height)
}

// languageHints lists the codes Cloud Vision documents for OCR language hints
var languageHints = []string{
	"af", "ar", "as", "az", "be", "bg", "bn", "bs", "ca", "cs", "cy", "da", "de", "el", "en",
	"es", "et", "fa", "fi", "fil", "fr", "ga", "gl", "gu", "he", "hi", "hr", "hu", "hy", "id",
	"is", "it", "iw", "ja", "ka", "kk", "km", "kn", "ko", "ky", "lo", "lt", "lv", "mk", "ml",
	"mn", "mr", "ms", "mt", "my", "ne", "nl", "no", "or", "pa", "pl", "ps", "pt", "ro", "ru",
	"sa", "si", "sk", "sl", "sq", "sr", "sv", "sw", "ta", "te", "th", "tl", "tr", "uk", "ur",
	"uz", "vi", "yi", "zh", "zh-Hans", "zh-Hant",
}
