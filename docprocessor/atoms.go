// Package docprocessor extracts, chunks, embeds, and indexes documents
// for the jandocs document scheduler.
//
// atoms.go holds the pure helpers of the package: token estimation and the
// supported-format tables shared by the extractor and the type detector.
package docprocessor

import (
	"sort"

	"jandocs/core"
)

// charsPerTokenDefault is the extraction-side token heuristic: roughly 4
// characters per token for English text with GPT-style tokenizers.
const charsPerTokenDefault = 4.0

// imageExtensions lists raster formats routed through OCR.
var imageExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"tiff": true,
	"bmp":  true,
	"gif":  true,
	"webp": true,
}

// documentExtensions lists text-bearing formats with native extractors.
var documentExtensions = map[string]bool{
	"pdf":  true,
	"docx": true,
	"doc":  true,
	"xlsx": true,
	"xls":  true,
	"txt":  true,
	"md":   true,
	"csv":  true,
}

// EstimateTokenCount provides a rough estimate of tokens in a text using an
// average of 4 characters per token.
//
// This is a pure function with no dependencies.
//
// Example:
//
//	tokens := EstimateTokenCount("Hello, world!") // Returns 3
//	tokens := EstimateTokenCount("")              // Returns 0
func EstimateTokenCount(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text)) / charsPerTokenDefault)
}

// SupportedExtensions returns every extension the extractor accepts,
// lowercase without the leading dot, sorted for stable output.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(imageExtensions)+len(documentExtensions))
	for ext := range imageExtensions {
		exts = append(exts, ext)
	}
	for ext := range documentExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsSupportedPath reports whether the file at path has an extension the
// extractor can handle.
func IsSupportedPath(path string) bool {
	ext := core.NormalizeExtension(path)
	return imageExtensions[ext] || documentExtensions[ext]
}
