package validation

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"jandocs/core"
)

// OCRResult represents the result of an OCR runtime check.
type OCRResult struct {
	Available bool
	Version   string
	Message   string
	Error     error
}

// OCRChecker verifies that a tesseract binary is installed and runnable.
// This is a molecule that probes the binary the document processor will
// invoke for scanned pages.
type OCRChecker struct {
	binaryPath string
	timeout    time.Duration
}

// NewOCRChecker creates a new OCRChecker with default settings.
// The binary is resolved from TESSERACT_PATH or falls back to "tesseract" on PATH.
func NewOCRChecker() *OCRChecker {
	return &OCRChecker{
		binaryPath: envOrDefault("TESSERACT_PATH", "tesseract"),
		timeout:    10 * time.Second,
	}
}

// WithBinaryPath overrides the tesseract binary location.
func (c *OCRChecker) WithBinaryPath(path string) *OCRChecker {
	c.binaryPath = path
	return c
}

// WithTimeout sets the timeout for the version probe.
func (c *OCRChecker) WithTimeout(timeout time.Duration) *OCRChecker {
	c.timeout = timeout
	return c
}

// Check runs "tesseract --version" and reports whether the binary works.
// A missing binary is reported as unavailable, not as a hard error, because
// ingestion of text-native documents works without OCR.
func (c *OCRChecker) Check() OCRResult {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binaryPath, "--version")
	out, err := cmd.Output()
	if err != nil {
		return OCRResult{
			Available: false,
			Message:   "tesseract not found (" + c.binaryPath + ")",
			Error:     core.ErrOCRUnavailable(err.Error()),
		}
	}

	// First line looks like "tesseract 5.3.4"
	version := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	if version == "" {
		version = "unknown version"
	}

	return OCRResult{
		Available: true,
		Version:   version,
		Message:   version,
	}
}
