package cmd

import (
	"bytes"
	"fmt"
	"image/png"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/visionocr/pkg/ocr"
	"github.com/lehigh-university-libraries/visionocr/pkg/overlay"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Draw recognized text boxes over an image",
	Long: `Recognize text in an image and draw each detection's box and label.

By default a PNG copy of the image is written. With --canvas an SVG figure is
written instead, with the source image shown at --opacity behind the boxes.`,
	RunE: runAnnotate,
}

var (
	annotateFlags    engineFlags
	annotateImage    string
	annotateColor    string
	annotateFontSize float64
	annotateOpacity  float64
	annotateCanvas   bool
	annotateOutput   string
)

func init() {
	RootCmd.AddCommand(annotateCmd)

	annotateFlags.register(annotateCmd)
	annotateCmd.Flags().StringVar(&annotateImage, "image", "", "Path to input image file (required)")
	annotateCmd.Flags().StringVar(&annotateColor, "color", "red", "Box and label colour, by name or hex")
	annotateCmd.Flags().Float64Var(&annotateFontSize, "font-size", overlay.DefaultFontSize, "Label font size")
	annotateCmd.Flags().Float64Var(&annotateOpacity, "opacity", 0, "Overlay opacity on images, background opacity on canvases (default 1 and 0.5)")
	annotateCmd.Flags().BoolVar(&annotateCanvas, "canvas", false, "Write an SVG figure instead of a PNG")
	annotateCmd.Flags().StringVarP(&annotateOutput, "output", "o", "", "Output path (required)")

	for _, name := range []string{"image", "output"} {
		if err := annotateCmd.MarkFlagRequired(name); err != nil {
			slog.Error("Unable to mark flag as required", "flag", name, "err", err)
			os.Exit(1)
		}
	}
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	c, err := overlay.ParseColor(annotateColor)
	if err != nil {
		return err
	}
	style := overlay.Style{Color: c, FontSize: annotateFontSize, Opacity: annotateOpacity}

	annotateFlags.detail = true
	opts, err := annotateFlags.options(newRegistry())
	if err != nil {
		return err
	}

	session, err := ocr.Open(annotateImage, opts)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if annotateCanvas {
		fig, err := session.RenderOverlayToCanvas(cmd.Context(), style)
		if err != nil {
			return err
		}
		if err := fig.WriteSVG(&buf); err != nil {
			return fmt.Errorf("failed to encode figure: %w", err)
		}
	} else {
		img, err := session.RenderOverlayToImage(cmd.Context(), style)
		if err != nil {
			return err
		}
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("failed to encode image: %w", err)
		}
	}

	detections, _ := session.Result()
	outcome, _ := session.Outcome()
	slog.Info("Annotated image", "image", annotateImage, "engine", session.Engine(), "detections", len(detections), "outcome", outcome)

	return outputResult(annotateOutput, buf.Bytes())
}
