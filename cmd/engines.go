package cmd

import (
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/visionocr/internal/utils"
	"github.com/lehigh-university-libraries/visionocr/pkg/azure"
	"github.com/lehigh-university-libraries/visionocr/pkg/gcv"
	"github.com/lehigh-university-libraries/visionocr/pkg/livetext"
	"github.com/lehigh-university-libraries/visionocr/pkg/ocr"
	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
	"github.com/lehigh-university-libraries/visionocr/pkg/tesseract"
	"github.com/lehigh-university-libraries/visionocr/pkg/vision"
)

// newRegistry registers every engine this build knows about. Availability is
// checked when a session is created, not here.
func newRegistry() *providers.Registry {
	registry := providers.NewRegistry()
	registry.Register(vision.New())
	registry.Register(livetext.New())
	registry.Register(tesseract.New())
	registry.Register(gcv.New())
	registry.Register(azure.New())
	return registry
}

func defaultEngine() string {
	fallback := "tesseract"
	if runtime.GOOS == "darwin" {
		fallback = "vision"
	}
	return utils.EnvOrDefault("OCR_ENGINE", fallback)
}

// engineFlags are the recognition options shared by recognize, annotate and eval
type engineFlags struct {
	engine      string
	level       string
	languages   []string
	confidence  float64
	detail      bool
	granularity string
	timeout     time.Duration
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.engine, "engine", defaultEngine(), "OCR engine: vision, livetext, tesseract, gcv, azure")
	cmd.Flags().StringVar(&f.level, "level", "", "Recognition level for recognizers: fast or accurate (default accurate)")
	cmd.Flags().StringSliceVar(&f.languages, "lang", nil, "Preferred languages in order, e.g. en-US,fr-FR")
	cmd.Flags().Float64Var(&f.confidence, "confidence", 0, "Drop detections below this confidence (recognizers only)")
	cmd.Flags().StringVar(&f.granularity, "granularity", "", "Analyzer result unit: token or line (default token)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "How long to wait for an analyzer (default 10s)")
}

func (f *engineFlags) options(registry *providers.Registry) (ocr.Options, error) {
	engine, err := registry.Get(strings.TrimSpace(f.engine))
	if err != nil {
		return ocr.Options{}, err
	}

	opts := ocr.Options{
		Engine:              engine,
		Level:               providers.Level(strings.ToLower(f.level)),
		ConfidenceThreshold: f.confidence,
		Detail:              f.detail,
		Granularity:         providers.Granularity(strings.ToLower(f.granularity)),
		Timeout:             f.timeout,
	}
	if len(f.languages) > 0 {
		opts.Languages = f.languages
	}
	return opts, nil
}
