package validation

import (
	"fmt"
	"os"
	"strconv"

	"jandocs/core"
)

// ValidationResult represents the result of a configuration validation check.
type ValidationResult struct {
	Status  StepStatus
	Message string
	Error   error
}

// ConfigValidator composes validation atoms to provide comprehensive configuration checking.
// This is a molecule that orchestrates URL validation, filesystem checks, and
// scheduler setting checks. Checks read the environment directly so they can
// run before the full configuration is loaded.
type ConfigValidator struct {
	envPath string // Path to .env file (default: ".env")
}

// NewConfigValidator creates a new ConfigValidator with default settings.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		envPath: ".env",
	}
}

// WithEnvPath sets a custom path for the .env file.
func (v *ConfigValidator) WithEnvPath(path string) *ConfigValidator {
	v.envPath = path
	return v
}

// CheckEnvFile reports whether the .env file exists. A missing file is a
// warning, not a failure: every setting has a working built-in default.
func (v *ConfigValidator) CheckEnvFile() ValidationResult {
	if err := CheckFileExists(v.envPath); err != nil {
		return ValidationResult{
			Status:  StepWarning,
			Message: "No .env file found, using built-in defaults",
			Error:   nil,
		}
	}
	return ValidationResult{
		Status:  StepPassed,
		Message: "Environment file found",
	}
}

// CheckEmbeddingsURL validates the EMBEDDINGS_URL environment variable.
// Returns a failed result if the URL is malformed.
func (v *ConfigValidator) CheckEmbeddingsURL() ValidationResult {
	embeddingsURL := envOrDefault("EMBEDDINGS_URL", "http://127.0.0.1:1337/v1")

	if err := ValidateBaseURL(embeddingsURL); err != nil {
		return ValidationResult{
			Status:  StepFailed,
			Message: "Invalid embeddings URL: " + embeddingsURL,
			Error:   core.ErrInvalidEmbeddingsURL(embeddingsURL, err.Error()),
		}
	}

	return ValidationResult{
		Status:  StepPassed,
		Message: "Embeddings URL valid (" + embeddingsURL + ")",
	}
}

// CheckDataDirectory verifies that the configured data directory can be
// created and written to.
func (v *ConfigValidator) CheckDataDirectory() ValidationResult {
	dataDir := envOrDefault("DATA_DIR", core.GetDataDirectory())

	if err := CheckDirWritable(dataDir); err != nil {
		return ValidationResult{
			Status:  StepFailed,
			Message: "Data directory not writable: " + dataDir,
			Error:   core.ErrDataDirUnavailable(dataDir, err.Error()),
		}
	}

	return ValidationResult{
		Status:  StepPassed,
		Message: "Data directory writable (" + dataDir + ")",
	}
}

// CheckWorkerConfig validates the MAX_WORKERS setting and, when configured,
// the scheduler thresholds file.
func (v *ConfigValidator) CheckWorkerConfig() ValidationResult {
	if raw := os.Getenv("MAX_WORKERS"); raw != "" {
		workers, err := strconv.Atoi(raw)
		if err != nil || workers < 1 || workers > 64 {
			return ValidationResult{
				Status:  StepFailed,
				Message: "MAX_WORKERS out of range: " + raw,
				Error:   core.ErrInvalidWorkerCount(workers),
			}
		}
	}

	thresholdsFile := os.Getenv("SCHEDULER_THRESHOLDS_FILE")
	if thresholdsFile == "" {
		return ValidationResult{
			Status:  StepPassed,
			Message: "Using built-in capacity thresholds",
		}
	}

	if err := CheckFileReadable(thresholdsFile); err != nil {
		return ValidationResult{
			Status:  StepFailed,
			Message: "Thresholds file unreadable: " + thresholdsFile,
			Error:   core.ErrThresholdsInvalid(thresholdsFile, err.Error()),
		}
	}

	return ValidationResult{
		Status:  StepPassed,
		Message: "Custom thresholds file found (" + thresholdsFile + ")",
	}
}

// ValidateAll runs all configuration checks and returns all results.
func (v *ConfigValidator) ValidateAll() []ValidationResult {
	return []ValidationResult{
		v.CheckEnvFile(),
		v.CheckEmbeddingsURL(),
		v.CheckDataDirectory(),
		v.CheckWorkerConfig(),
	}
}

// GetFirstError returns the first failing check's error, or nil if no check failed.
func (v *ConfigValidator) GetFirstError() error {
	for _, result := range v.ValidateAll() {
		if result.Status == StepFailed {
			if result.Error != nil {
				return result.Error
			}
			return fmt.Errorf("%s", result.Message)
		}
	}
	return nil
}

// IsValid returns true if no configuration check fails. Warnings are allowed.
func (v *ConfigValidator) IsValid() bool {
	return v.GetFirstError() == nil
}

// envOrDefault returns the value of an environment variable or a default.
func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
