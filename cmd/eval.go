package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"github.com/lehigh-university-libraries/visionocr/pkg/ocr"
	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

type EvalConfig struct {
	Engine              string   `json:"engine" yaml:"engine"`
	Level               string   `json:"level,omitempty" yaml:"level,omitempty"`
	Languages           []string `json:"languages,omitempty" yaml:"languages,omitempty"`
	ConfidenceThreshold float64  `json:"confidence_threshold,omitempty" yaml:"confidence_threshold,omitempty"`
	Granularity         string   `json:"granularity,omitempty" yaml:"granularity,omitempty"`
	CSVPath             string   `json:"csv_path" yaml:"csv_path"`
	Dir                 string   `json:"dir" yaml:"dir"`
	TestRows            []int    `json:"rows" yaml:"rows"`
	Timestamp           string   `json:"timestamp" yaml:"timestamp"`
}

type EvalResult struct {
	Identifier            string            `json:"identifier" yaml:"identifier"`
	ImagePath             string            `json:"image_path" yaml:"image_path"`
	TranscriptPath        string            `json:"transcript_path" yaml:"transcript_path"`
	Public                bool              `json:"public" yaml:"public"`
	Outcome               providers.Outcome `json:"outcome" yaml:"outcome"`
	EngineResponse        string            `json:"engine_response" yaml:"engine_response"`
	CharacterSimilarity   float64           `json:"character_similarity" yaml:"character_similarity"`
	WordSimilarity        float64           `json:"word_similarity" yaml:"word_similarity"`
	WordAccuracy          float64           `json:"word_accuracy" yaml:"word_accuracy"`
	WordErrorRate         float64           `json:"word_error_rate" yaml:"word_error_rate"`
	TotalWordsOriginal    int               `json:"total_words_original" yaml:"total_words_original"`
	TotalWordsTranscribed int               `json:"total_words_transcribed" yaml:"total_words_transcribed"`
	CorrectWords          int               `json:"correct_words" yaml:"correct_words"`
	Substitutions         int               `json:"substitutions" yaml:"substitutions"`
	Deletions             int               `json:"deletions" yaml:"deletions"`
	Insertions            int               `json:"insertions" yaml:"insertions"`
}

type EvalSummary struct {
	Config  EvalConfig   `json:"config" yaml:"config"`
	Results []EvalResult `json:"results" yaml:"results"`
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate OCR accuracy against ground truth transcripts",
	Long: `Evaluate OCR accuracy by comparing engine output with ground truth transcripts.

The CSV lists one image per row: image path, transcript path (file or URL) and
an optional public flag. Paths are resolved against --dir. Results are written
to evals/eval_<timestamp>.yaml.

You can either provide individual flags or use a previous evaluation file.`,
	RunE: runEval,
}

var (
	evalFlags      engineFlags
	evalCSVPath    string
	evalConfigPath string
	evalDir        string
)

func init() {
	RootCmd.AddCommand(evalCmd)

	evalFlags.register(evalCmd)
	evalCmd.Flags().StringVarP(&evalCSVPath, "csv", "c", "", "Path to CSV file with evaluation data")
	evalCmd.Flags().StringVar(&evalConfigPath, "config", "", "Path to previous evaluation file to rerun")
	evalCmd.Flags().StringVar(&evalDir, "dir", "./", "Prepend your CSV file paths with a directory")
	evalCmd.Flags().IntSlice("rows", []int{}, "A list of row numbers to run the test on")

	evalCmd.MarkFlagsOneRequired("csv", "config")
	evalCmd.MarkFlagsMutuallyExclusive("csv", "config")
}

func runEval(cmd *cobra.Command, args []string) error {
	var config EvalConfig
	var err error

	if evalConfigPath != "" {
		config, err = loadEvalConfig(evalConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fmt.Printf("Loaded configuration from %s\n", evalConfigPath)
	} else {
		config = EvalConfig{
			Engine:              evalFlags.engine,
			Level:               evalFlags.level,
			Languages:           evalFlags.languages,
			ConfidenceThreshold: evalFlags.confidence,
			Granularity:         evalFlags.granularity,
			CSVPath:             evalCSVPath,
			Dir:                 evalDir,
			Timestamp:           time.Now().Format("2006-01-02_15-04-05"),
		}
	}

	testRows, err := cmd.Flags().GetIntSlice("rows")
	if err != nil {
		return fmt.Errorf("failed to fetch rows flag: %w", err)
	}
	if len(testRows) > 0 || config.TestRows == nil {
		config.TestRows = testRows
	}

	flags := engineFlags{
		engine:      config.Engine,
		level:       config.Level,
		languages:   config.Languages,
		confidence:  config.ConfidenceThreshold,
		granularity: config.Granularity,
		timeout:     evalFlags.timeout,
	}
	opts, err := flags.options(newRegistry())
	if err != nil {
		return err
	}

	evalsDir := "evals"
	if err := os.MkdirAll(evalsDir, 0755); err != nil {
		return fmt.Errorf("failed to create evals directory: %w", err)
	}

	results, err := processEvaluation(cmd, config, opts)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	summary := EvalSummary{
		Config:  config,
		Results: results,
	}

	outputPath := filepath.Join(evalsDir, fmt.Sprintf("eval_%s.yaml", config.Timestamp))
	if err := saveEvalResults(summary, outputPath); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	fmt.Printf("\nEvaluation completed. Results saved to: %s\n", outputPath)
	printSummaryStats(results)

	return nil
}

func loadEvalConfig(configPath string) (EvalConfig, error) {
	var summary EvalSummary

	data, err := os.ReadFile(configPath)
	if err != nil {
		return EvalConfig{}, err
	}

	if err := yaml.Unmarshal(data, &summary); err != nil {
		return EvalConfig{}, err
	}

	// Update timestamp for rerun
	summary.Config.Timestamp = time.Now().Format("2006-01-02_15-04-05")

	return summary.Config, nil
}

// transcribeFunc recognizes one image and returns its text joined in engine order
type transcribeFunc func(imagePath string) (string, providers.Outcome, error)

func processEvaluation(cmd *cobra.Command, config EvalConfig, opts ocr.Options) ([]EvalResult, error) {
	transcribe := func(imagePath string) (string, providers.Outcome, error) {
		session, err := ocr.Open(imagePath, opts)
		if err != nil {
			return "", 0, err
		}
		detections, err := session.Recognize(cmd.Context())
		if err != nil {
			return "", 0, err
		}
		outcome, _ := session.Outcome()
		return joinDetections(detections), outcome, nil
	}

	file, err := os.Open(config.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return evaluateRows(file, config, transcribe)
}

func evaluateRows(r io.Reader, config EvalConfig, transcribe transcribeFunc) ([]EvalResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	// Skip header row if present
	dataRows := records
	if strings.EqualFold(strings.TrimSpace(records[0][0]), "image") {
		dataRows = records[1:]
	}

	var results []EvalResult
	for i, row := range dataRows {
		if len(config.TestRows) > 0 && !slices.Contains(config.TestRows, i) {
			slog.Debug("Skipping row", "row", i+1)
			continue
		}
		if len(row) < 2 {
			slog.Warn("Insufficient columns", "row", i+1)
			continue
		}

		result, err := processRow(row, config.Dir, transcribe)
		if err != nil {
			slog.Error("Error processing row", "row", i+1, "err", err)
			continue
		}

		results = append(results, result)

		printRowResult(result)
	}

	return results, nil
}

func processRow(row []string, dir string, transcribe transcribeFunc) (EvalResult, error) {
	imagePath := filepath.Join(dir, strings.TrimSpace(row[0]))
	transcriptPath := strings.TrimSpace(row[1])
	if !isURL(transcriptPath) {
		transcriptPath = filepath.Join(dir, transcriptPath)
	}

	public := false
	if len(row) > 2 {
		publicStr := strings.TrimSpace(row[2])
		if publicStr != "" {
			var err error
			public, err = strconv.ParseBool(publicStr)
			if err != nil {
				return EvalResult{}, fmt.Errorf("invalid public value: %s", publicStr)
			}
		}
	}

	groundTruth, err := readTextFile(transcriptPath)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to read transcript: %w", err)
	}

	response, outcome, err := transcribe(imagePath)
	if err != nil {
		return EvalResult{}, fmt.Errorf("recognition failed: %w", err)
	}
	if outcome != providers.OutcomeComplete {
		slog.Warn("Recognition did not complete", "image", imagePath, "outcome", outcome)
	}

	result := CalculateAccuracyMetrics(groundTruth, response)
	result.Identifier = filepath.Base(imagePath)
	result.ImagePath = imagePath
	result.TranscriptPath = transcriptPath
	result.Public = public
	result.Outcome = outcome
	result.EngineResponse = response

	return result, nil
}

// joinDetections rebuilds plain text from detections in engine order
func joinDetections(detections []providers.Detection) string {
	texts := make([]string, 0, len(detections))
	for _, d := range detections {
		texts = append(texts, d.Text)
	}
	return strings.Join(texts, " ")
}

func isURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

func readTextFile(path string) (string, error) {
	if isURL(path) {
		resp, err := http.Get(path)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("fetching %s: status %d", path, resp.StatusCode)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func saveEvalResults(summary EvalSummary, outputPath string) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return err
	}

	return os.WriteFile(outputPath, data, 0644)
}

func printRowResult(result EvalResult) {
	fmt.Printf("\n=== Results for %s ===\n", result.Identifier)
	fmt.Printf("Image: %s\n", result.ImagePath)
	fmt.Printf("Transcript: %s\n", result.TranscriptPath)
	fmt.Printf("Outcome: %s\n", result.Outcome)
	fmt.Printf("Character Similarity: %.3f\n", result.CharacterSimilarity)
	fmt.Printf("Word Similarity: %.3f\n", result.WordSimilarity)
	fmt.Printf("Word Accuracy: %.3f\n", result.WordAccuracy)
	fmt.Printf("Word Error Rate: %.3f\n", result.WordErrorRate)
	fmt.Printf("Total Words (Original): %d\n", result.TotalWordsOriginal)
	fmt.Printf("Total Words (Transcribed): %d\n", result.TotalWordsTranscribed)
	fmt.Printf("Correct Words: %d\n", result.CorrectWords)
	fmt.Printf("Substitutions: %d\n", result.Substitutions)
	fmt.Printf("Deletions: %d\n", result.Deletions)
	fmt.Printf("Insertions: %d\n", result.Insertions)
}

func printSummaryStats(results []EvalResult) {
	if len(results) == 0 {
		return
	}

	var totalCharSim, totalWordSim, totalWordAcc, totalWER float64

	for _, result := range results {
		totalCharSim += result.CharacterSimilarity
		totalWordSim += result.WordSimilarity
		totalWordAcc += result.WordAccuracy
		totalWER += result.WordErrorRate
	}

	count := float64(len(results))

	fmt.Printf("\n=== SUMMARY STATISTICS ===\n")
	fmt.Printf("Total Evaluations: %d\n", len(results))
	fmt.Printf("Average Character Similarity: %.3f\n", totalCharSim/count)
	fmt.Printf("Average Word Similarity: %.3f\n", totalWordSim/count)
	fmt.Printf("Average Word Accuracy: %.3f\n", totalWordAcc/count)
	fmt.Printf("Average Word Error Rate: %.3f\n", totalWER/count)
}

var whitespacePattern = regexp.MustCompile(`\s+`)

func normalizeText(text string) string {
	text = whitespacePattern.ReplaceAllString(strings.TrimSpace(text), " ")
	return strings.ToLower(text)
}

// levenshteinDistance counts rune edits so accented text is not over-penalized
func levenshteinDistance(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	len1, len2 := len(r1), len(r2)
	if len1 == 0 {
		return len2
	}
	if len2 == 0 {
		return len1
	}

	matrix := make([][]int, len1+1)
	for i := range matrix {
		matrix[i] = make([]int, len2+1)
	}

	for i := 0; i <= len1; i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len2; j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len1; i++ {
		for j := 1; j <= len2; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len1][len2]
}

func calculateSimilarity(s1, s2 string) float64 {
	maxLen := max(len([]rune(s1)), len([]rune(s2)))
	if maxLen == 0 {
		return 1.0
	}
	distance := levenshteinDistance(s1, s2)
	return 1.0 - float64(distance)/float64(maxLen)
}

// calculateWordLevelMetrics performs word-level analysis
func calculateWordLevelMetrics(orig, trans []string) (float64, int, int, int, int) {
	m, n := len(orig), len(trans)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}

	for i := 0; i <= m; i++ {
		dp[i][0] = i
	}
	for j := 0; j <= n; j++ {
		dp[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if orig[i-1] == trans[j-1] {
				dp[i][j] = dp[i-1][j-1]
			} else {
				dp[i][j] = 1 + min(dp[i-1][j], dp[i][j-1], dp[i-1][j-1])
			}
		}
	}

	// Backtrack to count operations
	i, j := m, n
	substitutions, deletions, insertions, correct := 0, 0, 0, 0

	for i > 0 || j > 0 {
		if i > 0 && j > 0 && orig[i-1] == trans[j-1] {
			correct++
			i--
			j--
		} else if i > 0 && j > 0 && dp[i][j] == dp[i-1][j-1]+1 {
			substitutions++
			i--
			j--
		} else if i > 0 && dp[i][j] == dp[i-1][j]+1 {
			deletions++
			i--
		} else {
			insertions++
			j--
		}
	}

	totalEdits := substitutions + deletions + insertions
	wer := 0.0
	if m > 0 {
		wer = float64(totalEdits) / float64(m)
	}
	wordAccuracy := 1.0 - wer

	return wordAccuracy, correct, substitutions, deletions, insertions
}

func CalculateAccuracyMetrics(original, transcribed string) EvalResult {
	origNorm := normalizeText(original)
	transNorm := normalizeText(transcribed)
	charSim := calculateSimilarity(origNorm, transNorm)
	origWords := strings.Fields(origNorm)
	transWords := strings.Fields(transNorm)
	wordSim := calculateSimilarity(strings.Join(origWords, " "), strings.Join(transWords, " "))
	wordAcc, correct, subs, dels, ins := calculateWordLevelMetrics(origWords, transWords)

	return EvalResult{
		CharacterSimilarity:   charSim,
		WordSimilarity:        wordSim,
		WordAccuracy:          wordAcc,
		WordErrorRate:         1.0 - wordAcc,
		TotalWordsOriginal:    len(origWords),
		TotalWordsTranscribed: len(transWords),
		CorrectWords:          correct,
		Substitutions:         subs,
		Deletions:             dels,
		Insertions:            ins,
	}
}
