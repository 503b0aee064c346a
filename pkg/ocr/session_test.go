package ocr

import (
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/visionocr/pkg/coords"
	"github.com/lehigh-university-libraries/visionocr/pkg/overlay"
	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

type fakeRecognizer struct {
	available    bool
	observations []providers.Observation
	err          error
	calls        int
}

func (f *fakeRecognizer) Name() string    { return "fake-recognizer" }
func (f *fakeRecognizer) Available() bool { return f.available }

func (f *fakeRecognizer) SupportedLanguages(ctx context.Context, level providers.Level) ([]string, error) {
	return []string{"en-US", "fr-FR"}, nil
}

func (f *fakeRecognizer) Recognize(ctx context.Context, req providers.RecognizeRequest) ([]providers.Observation, error) {
	f.calls++
	return f.observations, f.err
}

type fakeAnalyzer struct {
	available bool
	tree      providers.Tree
	err       error
	silent    bool
	calls     atomic.Int32
}

func (f *fakeAnalyzer) Name() string    { return "fake-analyzer" }
func (f *fakeAnalyzer) Available() bool { return f.available }

func (f *fakeAnalyzer) Analyze(ctx context.Context, img image.Image, languages []string, done func(providers.Tree, error)) error {
	f.calls.Add(1)
	if f.silent {
		return nil
	}
	go done(f.tree, f.err)
	return nil
}

// HELLO occupies the top-left quarter-height, half-width region of a 200x100 image
func helloRecognizer() *fakeRecognizer {
	return &fakeRecognizer{
		available: true,
		observations: []providers.Observation{
			{Text: "HELLO", Confidence: 0.9, Box: coords.NormalizedBox{X: 0, Y: 0.75, Width: 0.5, Height: 0.25}},
		},
	}
}

func helloAnalyzer() *fakeAnalyzer {
	quad := coords.NormalizedBox{X: 0, Y: 0, Width: 0.5, Height: 0.25}
	return &fakeAnalyzer{
		available: true,
		tree: providers.Tree{
			{Text: "HELLO", Quad: quad, Tokens: []providers.Token{{Text: "HELLO", Quad: quad}}},
		},
	}
}

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 200, 100))
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		img     image.Image
		opts    Options
		wantErr error
	}{
		{name: "nil image", img: nil, opts: Options{Engine: helloRecognizer()}, wantErr: providers.ErrInvalidArgument},
		{name: "no engine", img: testImage(), opts: Options{}, wantErr: providers.ErrInvalidArgument},
		{name: "bad level", img: testImage(), opts: Options{Engine: helloRecognizer(), Level: "medium"}, wantErr: providers.ErrInvalidArgument},
		{name: "threshold above one", img: testImage(), opts: Options{Engine: helloRecognizer(), ConfidenceThreshold: 1.5}, wantErr: providers.ErrInvalidArgument},
		{name: "empty languages", img: testImage(), opts: Options{Engine: helloRecognizer(), Languages: []string{}}, wantErr: providers.ErrInvalidArgument},
		{name: "recognizer with line granularity", img: testImage(), opts: Options{Engine: helloRecognizer(), Granularity: providers.GranularityLine}, wantErr: providers.ErrInvalidArgument},
		{name: "recognizer with timeout", img: testImage(), opts: Options{Engine: helloRecognizer(), Timeout: time.Second}, wantErr: providers.ErrInvalidArgument},
		{name: "analyzer with fast level", img: testImage(), opts: Options{Engine: helloAnalyzer(), Level: providers.LevelFast}, wantErr: providers.ErrInvalidArgument},
		{name: "analyzer with threshold", img: testImage(), opts: Options{Engine: helloAnalyzer(), ConfidenceThreshold: 0.5}, wantErr: providers.ErrInvalidArgument},
		{name: "analyzer with bad granularity", img: testImage(), opts: Options{Engine: helloAnalyzer(), Granularity: "word"}, wantErr: providers.ErrInvalidArgument},
		{name: "analyzer unavailable", img: testImage(), opts: Options{Engine: &fakeAnalyzer{}}, wantErr: providers.ErrFeatureUnavailable},
		{name: "recognizer ok", img: testImage(), opts: Options{Engine: helloRecognizer(), Level: providers.LevelFast}},
		{name: "analyzer ok", img: testImage(), opts: Options{Engine: helloAnalyzer(), Level: providers.LevelAccurate, Granularity: providers.GranularityLine}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.img, tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if _, ok := s.Result(); ok {
				t.Error("new session should have no cached result")
			}
		})
	}
}

func TestSessionHelloBothBackends(t *testing.T) {
	tests := []struct {
		name   string
		engine providers.Engine
	}{
		{"recognizer", helloRecognizer()},
		{"analyzer", helloAnalyzer()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(testImage(), Options{Engine: tt.engine, Detail: true})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			detections, err := s.Recognize(context.Background())
			if err != nil {
				t.Fatalf("Recognize() error = %v", err)
			}
			if len(detections) != 1 || detections[0].Text != "HELLO" {
				t.Fatalf("unexpected detections %+v", detections)
			}
			box := detections[0].Box
			if box == nil || box.X != 0 || math.Abs(box.Y-0.75) > 1e-9 || box.Width != 0.5 || box.Height != 0.25 {
				t.Errorf("unexpected box %+v", box)
			}

			pixels, err := s.RecognizePixels(context.Background())
			if err != nil {
				t.Fatalf("RecognizePixels() error = %v", err)
			}
			want := coords.PixelRect{X1: 0, Y1: 0, X2: 100, Y2: 25}
			got := pixels[0].Box
			if math.Abs(got.X1-want.X1) > 1e-9 || math.Abs(got.Y1-want.Y1) > 1e-9 ||
				math.Abs(got.X2-want.X2) > 1e-9 || math.Abs(got.Y2-want.Y2) > 1e-9 {
				t.Errorf("pixel box = %+v, want %+v", got, want)
			}

			outcome, ok := s.Outcome()
			if !ok || outcome != providers.OutcomeComplete {
				t.Errorf("Outcome() = %v, %v", outcome, ok)
			}
		})
	}
}

func TestSessionCachingAndOverlays(t *testing.T) {
	engine := helloRecognizer()
	s, err := New(testImage(), Options{Engine: engine, Detail: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	fig, err := s.RenderOverlayToCanvas(context.Background(), overlay.DefaultStyle())
	if err != nil {
		t.Fatalf("RenderOverlayToCanvas() error = %v", err)
	}
	if engine.calls != 1 {
		t.Errorf("overlay should recognize on demand, engine called %d times", engine.calls)
	}
	if len(fig.Rects) != 1 {
		t.Errorf("expected 1 rect, got %d", len(fig.Rects))
	}

	out, err := s.RenderOverlayToImage(context.Background(), overlay.Style{})
	if err != nil {
		t.Fatalf("RenderOverlayToImage() error = %v", err)
	}
	if engine.calls != 1 {
		t.Errorf("overlay should reuse the cached result, engine called %d times", engine.calls)
	}
	if out.Bounds() != s.Bounds() {
		t.Errorf("overlay bounds = %v, want %v", out.Bounds(), s.Bounds())
	}

	first, _ := s.Recognize(context.Background())
	second, _ := s.Recognize(context.Background())
	if engine.calls != 3 {
		t.Errorf("every Recognize should call the engine, got %d calls", engine.calls)
	}
	if len(first) != len(second) || first[0].Text != second[0].Text || *first[0].Box != *second[0].Box {
		t.Errorf("repeated recognition should be idempotent: %+v vs %+v", first, second)
	}

	cached, ok := s.Result()
	if !ok || len(cached) != 1 {
		t.Errorf("Result() = %v, %v", cached, ok)
	}
}

func TestSessionDetailOff(t *testing.T) {
	engine := helloRecognizer()
	s, err := New(testImage(), Options{Engine: engine})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	detections, err := s.Recognize(context.Background())
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if detections[0].Box != nil {
		t.Error("detail off should strip boxes")
	}

	engine.calls = 0
	if _, err := s.RecognizePixels(context.Background()); !errors.Is(err, providers.ErrInvalidArgument) {
		t.Errorf("RecognizePixels() error = %v, want ErrInvalidArgument", err)
	}
	if _, err := s.RenderOverlayToImage(context.Background(), overlay.Style{}); !errors.Is(err, providers.ErrInvalidArgument) {
		t.Errorf("RenderOverlayToImage() error = %v, want ErrInvalidArgument", err)
	}
	if _, err := s.RenderOverlayToCanvas(context.Background(), overlay.Style{}); !errors.Is(err, providers.ErrInvalidArgument) {
		t.Errorf("RenderOverlayToCanvas() error = %v, want ErrInvalidArgument", err)
	}
	if engine.calls != 0 {
		t.Errorf("detail checks should fail before recognition, engine called %d times", engine.calls)
	}
}

func TestSessionOutcomes(t *testing.T) {
	t.Run("recognizer failure", func(t *testing.T) {
		s, err := New(testImage(), Options{Engine: &fakeRecognizer{available: true, err: errors.New("boom")}})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		detections, err := s.Recognize(context.Background())
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		if len(detections) != 0 {
			t.Errorf("expected empty detections, got %d", len(detections))
		}
		if outcome, _ := s.Outcome(); outcome != providers.OutcomeEngineFailed {
			t.Errorf("Outcome() = %v, want engine-failed", outcome)
		}
	})

	t.Run("analyzer timeout", func(t *testing.T) {
		s, err := New(testImage(), Options{Engine: &fakeAnalyzer{available: true, silent: true}, Timeout: 20 * time.Millisecond})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		detections, err := s.Recognize(context.Background())
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		if len(detections) != 0 {
			t.Errorf("expected empty detections, got %d", len(detections))
		}
		if outcome, _ := s.Outcome(); outcome != providers.OutcomeTimedOut {
			t.Errorf("Outcome() = %v, want timed-out", outcome)
		}
	})

	t.Run("analyzer failure keeps previous cache", func(t *testing.T) {
		engine := helloAnalyzer()
		s, err := New(testImage(), Options{Engine: engine})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if _, err := s.Recognize(context.Background()); err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}

		engine.err = errors.New("analysis failed")
		if _, err := s.Recognize(context.Background()); !errors.Is(err, providers.ErrEngine) {
			t.Errorf("Recognize() error = %v, want ErrEngine", err)
		}
		cached, ok := s.Result()
		if !ok || len(cached) != 1 {
			t.Errorf("failed recognition should not clear the cache, got %v", cached)
		}
	})
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, testImage()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	s, err := Open(path, Options{Engine: helloRecognizer()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if s.Bounds().Dx() != 200 || s.Bounds().Dy() != 100 {
		t.Errorf("Bounds() = %v", s.Bounds())
	}
	if s.Engine() != "fake-recognizer" {
		t.Errorf("Engine() = %q", s.Engine())
	}

	notImage := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notImage, []byte("hello"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, p := range []string{notImage, filepath.Join(dir, "missing.png")} {
		if _, err := Open(p, Options{Engine: helloRecognizer()}); !errors.Is(err, providers.ErrInvalidArgument) {
			t.Errorf("Open(%s) error = %v, want ErrInvalidArgument", p, err)
		}
	}
}
