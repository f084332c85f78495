package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder is the string used to replace sensitive data
const RedactedPlaceholder = "[REDACTED]"

// sensitivePatterns contains compiled regex patterns for detecting sensitive
// data in log values. The embedder talks to an OpenAI-compatible endpoint, so
// the common OpenAI-style key shapes matter most here; the rest guard against
// secrets leaking through pasted URLs or error strings.
var sensitivePatterns = []*regexp.Regexp{
	// OpenAI API keys: sk-... (legacy) or sk-proj-... (project-scoped)
	regexp.MustCompile(`(?i)(sk-[a-zA-Z0-9_-]{20,})`),
	// Bearer tokens in echoed request headers
	regexp.MustCompile(`(?i)(bearer\s+[a-zA-Z0-9._-]{20,})`),
	// Generic secret assignments
	regexp.MustCompile(`(?i)(password\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(secret\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(token\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(api_key\s*[:=]\s*[^\s,;]{8,})`),
	regexp.MustCompile(`(?i)(apikey\s*[:=]\s*[^\s,;]{8,})`),
}

// sensitiveFieldNames are field/env name fragments that indicate sensitive data
var sensitiveFieldNames = []string{
	"OPENAI_API_KEY",
	"EMBEDDINGS_API_KEY",
	"PASSWORD",
	"SECRET",
	"TOKEN",
	"API_KEY",
	"APIKEY",
}

// RedactSensitiveData scans a string value and redacts any detected sensitive data.
//
// Example:
//
//	input := "API key is sk-abc123def456..."
//	output := RedactSensitiveData(input)
//	// output: "API key is [REDACTED]"
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}

	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// RedactField redacts a field value if the field name indicates sensitive data,
// and otherwise scans the value itself for secret patterns.
//
// Example:
//
//	value := RedactField("OPENAI_API_KEY", "sk-secret123")
//	// value: "[REDACTED]"
//
//	value := RedactField("filename", "report.pdf")
//	// value: "report.pdf" (unchanged)
func RedactField(fieldName, fieldValue string) string {
	if IsSensitiveField(fieldName) {
		return RedactedPlaceholder
	}
	return RedactSensitiveData(fieldValue)
}

// IsSensitiveField returns true if the field name indicates sensitive data.
// Only the name is checked, not the value.
func IsSensitiveField(fieldName string) bool {
	upperName := strings.ToUpper(fieldName)

	for _, fragment := range sensitiveFieldNames {
		if strings.Contains(upperName, fragment) {
			return true
		}
	}
	return false
}

// ContainsSensitiveData returns true if the value matches any sensitive data pattern.
func ContainsSensitiveData(value string) bool {
	if value == "" {
		return false
	}

	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
