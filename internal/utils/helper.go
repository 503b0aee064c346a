package utils

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"regexp"

	"github.com/joho/godotenv"
)

var (
	// key=VALUE, api_key=VALUE, apiKey=VALUE, api-key=VALUE, apikey=VALUE in URLs
	keyPattern          = regexp.MustCompile(`([?&])(api[_\-]?[kK]ey|key)=([^&\s"]+)`)
	bearerPattern       = regexp.MustCompile(`Bearer\s+([A-Za-z0-9_\-\.]+)`)
	azureKeyPattern     = regexp.MustCompile(`Ocp-Apim-Subscription-Key:\s*([^\s]+)`)
	privateKeyPattern   = regexp.MustCompile(`"private_key"\s*:\s*"[^"]*"`)
	privateKeyIDPattern = regexp.MustCompile(`"private_key_id"\s*:\s*"[^"]*"`)
)

// MaskSensitiveData masks API keys and other sensitive information in strings
// before they reach logs or error messages
func MaskSensitiveData(s string) string {
	if s == "" {
		return s
	}

	s = keyPattern.ReplaceAllString(s, `${1}${2}=***MASKED***`)
	s = bearerPattern.ReplaceAllString(s, `Bearer ***MASKED***`)
	s = azureKeyPattern.ReplaceAllString(s, `Ocp-Apim-Subscription-Key: ***MASKED***`)

	// Google service account credentials
	s = privateKeyPattern.ReplaceAllString(s, `"private_key": "***MASKED***"`)
	s = privateKeyIDPattern.ReplaceAllString(s, `"private_key_id": "***MASKED***"`)

	return s
}

// MaskSensitiveError wraps an error and masks sensitive data when the error is converted to string
func MaskSensitiveError(err error) error {
	if err == nil {
		return nil
	}
	return &maskedError{err: err}
}

type maskedError struct {
	err error
}

func (e *maskedError) Error() string {
	return MaskSensitiveData(e.err.Error())
}

func (e *maskedError) Unwrap() error {
	return e.err
}

// LoadDotEnv loads environment files, skipping ones that do not exist.
// With no arguments it loads .env from the working directory.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, f := range filenames {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// EnvOrDefault returns the environment value for key or fallback when unset
func EnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func ExitOnError(msg string, err error) {
	slog.Error(msg, "err", MaskSensitiveError(err))
	os.Exit(1)
}
