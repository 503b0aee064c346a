package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/visionocr/internal/utils"
	"github.com/lehigh-university-libraries/visionocr/pkg/coords"
	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

// Provider implements an asynchronous analyzer on top of the Azure Computer
// Vision Read API
type Provider struct {
	Endpoint     string
	APIKey       string
	PollInterval time.Duration
	MaxAttempts  int
	Client       *http.Client
}

// New creates a new Azure provider configured from the environment
func New() *Provider {
	return &Provider{
		Endpoint:     os.Getenv("AZURE_OCR_ENDPOINT"),
		APIKey:       os.Getenv("AZURE_OCR_API_KEY"),
		PollInterval: time.Second,
		MaxAttempts:  30,
		Client:       &http.Client{Timeout: 60 * time.Second},
	}
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "azure"
}

// Available reports whether the endpoint and key are configured
func (p *Provider) Available() bool {
	return p.Endpoint != "" && p.APIKey != ""
}

// Analyze submits img to the Read API and polls for the result on a
// separate goroutine, reporting submit and poll failures through done
func (p *Provider) Analyze(ctx context.Context, img image.Image, languages []string, done func(providers.Tree, error)) error {
	if !p.Available() {
		return fmt.Errorf("AZURE_OCR_ENDPOINT and AZURE_OCR_API_KEY environment variables must be set")
	}

	imageData, err := providers.EncodePNG(img)
	if err != nil {
		return err
	}
	bounds := img.Bounds()

	go func() {
		operationURL, err := p.submit(ctx, imageData, languages)
		if err != nil {
			done(nil, utils.MaskSensitiveError(err))
			return
		}
		tree, err := p.poll(ctx, operationURL, bounds.Dx(), bounds.Dy())
		done(tree, utils.MaskSensitiveError(err))
	}()

	return nil
}

func (p *Provider) submit(ctx context.Context, imageData []byte, languages []string) (string, error) {
	readURL := fmt.Sprintf("%s/vision/v3.2/read/analyze", strings.TrimSuffix(p.Endpoint, "/"))
	if len(languages) > 0 {
		// the Read API accepts a single language hint
		readURL += "?language=" + url.QueryEscape(languages[0])
	}

	req, err := http.NewRequestWithContext(ctx, "POST", readURL, bytes.NewReader(imageData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", p.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("azure OCR API error: %d - %s", resp.StatusCode, providers.TruncateBody(body))
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", fmt.Errorf("no operation location returned from Azure OCR")
	}
	if strings.HasPrefix(operationURL, "/") {
		operationURL = strings.TrimSuffix(p.Endpoint, "/") + operationURL
	}

	return operationURL, nil
}

func (p *Provider) poll(ctx context.Context, operationURL string, width, height int) (providers.Tree, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 30
	}

	for attempt := 0; attempt < attempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.PollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, "GET", operationURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", p.APIKey)

		resp, err := p.client().Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			slog.Debug("Azure operation not ready", "status", resp.StatusCode, "attempt", attempt+1)
			continue
		}

		var result readOperation
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("invalid response format from Azure OCR: %w", err)
		}

		switch result.Status {
		case "succeeded":
			return buildTree(result.AnalyzeResult, width, height), nil
		case "failed":
			return nil, fmt.Errorf("azure OCR analysis failed")
		}
		// Continue polling if status is "running" or "notStarted"
	}

	return nil, fmt.Errorf("azure OCR operation did not finish after %d attempts", attempts)
}

func (p *Provider) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

type readOperation struct {
	Status        string        `json:"status"`
	AnalyzeResult analyzeResult `json:"analyzeResult"`
}

type analyzeResult struct {
	ReadResults []readResult `json:"readResults"`
}

type readResult struct {
	Page   int        `json:"page"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Unit   string     `json:"unit"`
	Lines  []readLine `json:"lines"`
}

type readLine struct {
	BoundingBox []float64  `json:"boundingBox"`
	Text        string     `json:"text"`
	Words       []readWord `json:"words"`
}

type readWord struct {
	BoundingBox []float64 `json:"boundingBox"`
	Text        string    `json:"text"`
	Confidence  float64   `json:"confidence"`
}

// buildTree converts readResults into the analyzer tree. Polygons are
// normalized against the page size Azure reports, falling back to the
// submitted image size.
func buildTree(result analyzeResult, width, height int) providers.Tree {
	tree := providers.Tree{}
	for _, page := range result.ReadResults {
		pw, ph := page.Width, page.Height
		if pw <= 0 || ph <= 0 {
			pw, ph = float64(width), float64(height)
		}
		for _, line := range page.Lines {
			l := providers.Line{
				Text: line.Text,
				Quad: normalizePolygon(line.BoundingBox, pw, ph),
			}
			for _, word := range line.Words {
				l.Tokens = append(l.Tokens, providers.Token{
					Text: word.Text,
					Quad: normalizePolygon(word.BoundingBox, pw, ph),
				})
			}
			tree = append(tree, l)
		}
	}
	return tree
}

// normalizePolygon reduces an 8-number polygon to its top-left-origin
// normalized bounding box
func normalizePolygon(polygon []float64, width, height float64) coords.NormalizedBox {
	if len(polygon) < 8 || width <= 0 || height <= 0 {
		return coords.NormalizedBox{}
	}

	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for i := 0; i+1 < len(polygon); i += 2 {
		minX = math.Min(minX, polygon[i])
		maxX = math.Max(maxX, polygon[i])
		minY = math.Min(minY, polygon[i+1])
		maxY = math.Max(maxY, polygon[i+1])
	}

	return coords.NormalizedBox{
		X:      minX / width,
		Y:      minY / height,
		Width:  (maxX - minX) / width,
		Height: (maxY - minY) / height,
	}
}
