package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the languages a recognizer supports",
	RunE:  runLanguages,
}

var (
	languagesEngine string
	languagesLevel  string
)

func init() {
	RootCmd.AddCommand(languagesCmd)

	languagesCmd.Flags().StringVar(&languagesEngine, "engine", defaultEngine(), "OCR engine: vision, tesseract, gcv")
	languagesCmd.Flags().StringVar(&languagesLevel, "level", string(providers.LevelAccurate), "Recognition level: fast or accurate")
}

func runLanguages(cmd *cobra.Command, args []string) error {
	engine, err := newRegistry().Recognizer(languagesEngine)
	if err != nil {
		return err
	}
	if !engine.Available() {
		return providers.FeatureUnavailable(engine.Name())
	}

	level := providers.Level(strings.ToLower(languagesLevel))
	if level != providers.LevelFast && level != providers.LevelAccurate {
		return providers.InvalidArgument("recognition level must be 'accurate' or 'fast', got %q", languagesLevel)
	}

	langs, err := engine.SupportedLanguages(cmd.Context(), level)
	if err != nil {
		return err
	}
	for _, lang := range langs {
		fmt.Fprintln(cmd.OutOrStdout(), lang)
	}
	return nil
}
