// Package docprocessor extracts, chunks, embeds, and indexes documents
// for the jandocs document scheduler.
//
// tesseract.go runs the Tesseract binary. OCR happens out of process so a
// crash in the OCR engine can never take the scheduler down with it.
package docprocessor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// runTesseract OCRs a single image file and returns the cleaned text.
// The caller is responsible for checking OCRAvailable first.
func (e *Extractor) runTesseract(ctx context.Context, imagePath string) (string, error) {
	args := make([]string, 0, 4+len(e.cfg.TesseractArgs))
	args = append(args, imagePath, "stdout", "-l", e.cfg.OCRLanguage)
	args = append(args, e.cfg.TesseractArgs...)

	cmd := exec.CommandContext(ctx, e.cfg.TesseractPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w (%s)", err, firstLine(stderr.String()))
	}

	return CleanOCRText(stdout.String()), nil
}

// firstLine trims subprocess stderr to its first non-empty line so command
// failures stay readable in wrapped errors.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return "no error output"
}
