package core

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigError_Error(t *testing.T) {
	tests := []struct {
		name         string
		err          *ConfigError
		wantContains []string
	}{
		{
			name:         "message with action",
			err:          &ConfigError{Code: "X", Message: "something broke", Action: "fix it"},
			wantContains: []string{"something broke", "fix it"},
		},
		{
			name:         "message without action",
			err:          &ConfigError{Code: "X", Message: "something broke"},
			wantContains: []string{"something broke"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Error() = %q, want it to contain %q", got, want)
				}
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigError
		wantCode string
	}{
		{"env file missing", ErrEnvFileMissing(".env"), ErrCodeEnvFileMissing},
		{"invalid embeddings url", ErrInvalidEmbeddingsURL("ftp://x", "bad scheme"), ErrCodeInvalidEmbeddingsURL},
		{"embeddings unreachable", ErrEmbeddingsUnreachable("http://127.0.0.1:1337/v1", "refused"), ErrCodeEmbeddingsUnreachable},
		{"missing config", ErrMissingConfig("DATA_DIR"), ErrCodeMissingConfig},
		{"invalid worker count", ErrInvalidWorkerCount(0), ErrCodeInvalidWorkerCount},
		{"data dir unavailable", ErrDataDirUnavailable("/nope", "permission denied"), ErrCodeDataDirUnavailable},
		{"thresholds invalid", ErrThresholdsInvalid("custom.yaml", "bad yaml"), ErrCodeThresholdsInvalid},
		{"ocr unavailable", ErrOCRUnavailable("tesseract not found"), ErrCodeOCRUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.Message == "" {
				t.Error("Message is empty")
			}
			if tt.err.Action == "" {
				t.Error("Action is empty")
			}
		})
	}
}

func TestIsConfigError(t *testing.T) {
	configErr := ErrMissingConfig("PORT")

	got, ok := IsConfigError(configErr)
	if !ok {
		t.Fatal("IsConfigError() = false for a ConfigError")
	}
	if got.Code != ErrCodeMissingConfig {
		t.Errorf("Code = %q, want %q", got.Code, ErrCodeMissingConfig)
	}

	_, ok = IsConfigError(errors.New("plain error"))
	if ok {
		t.Error("IsConfigError() = true for a plain error")
	}

	_, ok = IsConfigError(nil)
	if ok {
		t.Error("IsConfigError() = true for nil")
	}
}

func TestGetErrorCode(t *testing.T) {
	if code := GetErrorCode(ErrInvalidWorkerCount(99)); code != ErrCodeInvalidWorkerCount {
		t.Errorf("GetErrorCode() = %q, want %q", code, ErrCodeInvalidWorkerCount)
	}
	if code := GetErrorCode(errors.New("plain")); code != "" {
		t.Errorf("GetErrorCode() = %q for plain error, want empty", code)
	}
}
