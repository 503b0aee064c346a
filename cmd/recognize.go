package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"github.com/lehigh-university-libraries/visionocr/pkg/hocr"
	"github.com/lehigh-university-libraries/visionocr/pkg/ocr"
	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Recognize text in an image",
	Long: `Recognize text in an image and print the detections.

Recognizers (vision, tesseract, gcv) accept --level and --confidence.
Analyzers (livetext, azure) accept --granularity and --timeout.
Boxes are normalized with a bottom-left origin unless --pixels is set.`,
	RunE: runRecognize,
}

var (
	recognizeFlags  engineFlags
	recognizeImage  string
	recognizePixels bool
	recognizeFormat string
	recognizeOutput string
)

// recognizeResult is what recognize writes for yaml and json output
type recognizeResult struct {
	Image      string                `json:"image" yaml:"image"`
	Engine     string                `json:"engine" yaml:"engine"`
	Outcome    providers.Outcome     `json:"outcome" yaml:"outcome"`
	Width      int                   `json:"width" yaml:"width"`
	Height     int                   `json:"height" yaml:"height"`
	Detections []providers.Detection `json:"detections,omitempty" yaml:"detections,omitempty"`
	Pixels     []ocr.PixelDetection  `json:"pixels,omitempty" yaml:"pixels,omitempty"`
}

func init() {
	RootCmd.AddCommand(recognizeCmd)

	recognizeFlags.register(recognizeCmd)
	recognizeCmd.Flags().BoolVar(&recognizeFlags.detail, "detail", true, "Include bounding boxes")
	recognizeCmd.Flags().StringVar(&recognizeImage, "image", "", "Path to input image file (required)")
	recognizeCmd.Flags().BoolVar(&recognizePixels, "pixels", false, "Report boxes in top-left-origin pixels")
	recognizeCmd.Flags().StringVar(&recognizeFormat, "format", "yaml", "Output format: yaml, json, text, hocr")
	recognizeCmd.Flags().StringVarP(&recognizeOutput, "output", "o", "", "Output path (prints to stdout if not specified)")

	err := recognizeCmd.MarkFlagRequired("image")
	if err != nil {
		slog.Error("Unable to mark image as required", "err", err)
		os.Exit(1)
	}
}

func runRecognize(cmd *cobra.Command, args []string) error {
	opts, err := recognizeFlags.options(newRegistry())
	if err != nil {
		return err
	}

	session, err := ocr.Open(recognizeImage, opts)
	if err != nil {
		return err
	}

	slog.Info("Recognizing text", "image", recognizeImage, "engine", session.Engine())

	result := recognizeResult{
		Image:  recognizeImage,
		Engine: session.Engine(),
		Width:  session.Bounds().Dx(),
		Height: session.Bounds().Dy(),
	}
	if recognizePixels {
		result.Pixels, err = session.RecognizePixels(cmd.Context())
	} else {
		result.Detections, err = session.Recognize(cmd.Context())
	}
	if err != nil {
		return err
	}
	result.Outcome, _ = session.Outcome()

	if result.Outcome != providers.OutcomeComplete {
		slog.Warn("Recognition did not complete", "engine", result.Engine, "outcome", result.Outcome)
	}

	out, err := formatRecognizeResult(result, recognizeFormat)
	if err != nil {
		return err
	}
	return outputResult(recognizeOutput, out)
}

func formatRecognizeResult(result recognizeResult, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "yaml":
		return yaml.Marshal(result)
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "text":
		var b strings.Builder
		for _, d := range result.Detections {
			b.WriteString(d.Text)
			b.WriteByte('\n')
		}
		for _, p := range result.Pixels {
			b.WriteString(p.Text)
			b.WriteByte('\n')
		}
		return []byte(b.String()), nil
	case "hocr":
		if result.Pixels != nil {
			return nil, providers.InvalidArgument("hocr output takes normalized detections; drop --pixels")
		}
		doc, err := hocr.FromDetections(result.Detections, result.Width, result.Height)
		if err != nil {
			return nil, err
		}
		return []byte(doc), nil
	default:
		return nil, providers.InvalidArgument("unknown format %q (want yaml, json, text or hocr)", format)
	}
}

func outputResult(path string, data []byte) error {
	if path != "" {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		slog.Info("Wrote output", "path", path)
		return nil
	}
	_, err := os.Stdout.Write(data)
	return err
}
