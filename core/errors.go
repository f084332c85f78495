package core

import (
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeEnvFileMissing        = "ENV_FILE_MISSING"
	ErrCodeInvalidEmbeddingsURL  = "INVALID_EMBEDDINGS_URL"
	ErrCodeEmbeddingsUnreachable = "EMBEDDINGS_UNREACHABLE"
	ErrCodeMissingConfig         = "MISSING_CONFIG"
	ErrCodeInvalidWorkerCount    = "INVALID_WORKER_COUNT"
	ErrCodeDataDirUnavailable    = "DATA_DIR_UNAVAILABLE"
	ErrCodeThresholdsInvalid     = "THRESHOLDS_INVALID"
	ErrCodeOCRUnavailable        = "OCR_UNAVAILABLE"
)

// ErrEnvFileMissing returns an error for missing .env file
func ErrEnvFileMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEnvFileMissing,
		Message: fmt.Sprintf("Configuration file not found: %s", path),
		Action:  "Copy example.env to .env or rely on built-in defaults",
	}
}

// ErrInvalidEmbeddingsURL returns an error for invalid embeddings URL format
func ErrInvalidEmbeddingsURL(url string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidEmbeddingsURL,
		Message: fmt.Sprintf("Invalid EMBEDDINGS_URL '%s': %s", url, reason),
		Action:  "Set EMBEDDINGS_URL to an OpenAI-compatible base URL (e.g., http://127.0.0.1:1337/v1)",
	}
}

// ErrEmbeddingsUnreachable returns an error when the embeddings server cannot be reached
func ErrEmbeddingsUnreachable(url string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEmbeddingsUnreachable,
		Message: fmt.Sprintf("Cannot connect to embeddings server at %s: %s", url, reason),
		Action:  "Check that the Jan server is running and EMBEDDINGS_URL is correct. For self-signed certificates, set ALLOW_SELF_SIGNED_CERTS=true",
	}
}

// ErrMissingConfig returns an error for missing required configuration
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your .env file", varName),
	}
}

// ErrInvalidWorkerCount returns an error for an out-of-range worker ceiling
func ErrInvalidWorkerCount(count int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidWorkerCount,
		Message: fmt.Sprintf("MAX_WORKERS must be between 1 and 64, got %d", count),
		Action:  "Set MAX_WORKERS to a value that matches your CPU core count",
	}
}

// ErrDataDirUnavailable returns an error when a storage directory cannot be used
func ErrDataDirUnavailable(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeDataDirUnavailable,
		Message: fmt.Sprintf("Data directory unavailable: %s (%s)", path, reason),
		Action:  "Check that DATA_DIR points to a writable location",
	}
}

// ErrThresholdsInvalid returns an error for an unreadable or malformed thresholds file
func ErrThresholdsInvalid(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeThresholdsInvalid,
		Message: fmt.Sprintf("Invalid scheduler thresholds file %s: %s", path, reason),
		Action:  "Fix the YAML in SCHEDULER_THRESHOLDS_FILE or unset it to use built-in thresholds",
	}
}

// ErrOCRUnavailable returns an error when the tesseract binary cannot be found
func ErrOCRUnavailable(reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeOCRUnavailable,
		Message: fmt.Sprintf("OCR runtime unavailable: %s", reason),
		Action:  "Install tesseract or set TESSERACT_PATH; scanned documents will fail to ingest without it",
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so
func IsConfigError(err error) (*ConfigError, bool) {
	if configErr, ok := err.(*ConfigError); ok {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
