// Package docprocessor extracts, chunks, embeds, and indexes documents
// for the jandocs document scheduler.
//
// image.go OCRs raster images. Every format is normalized to PNG before
// the Tesseract run so formats its build may lack (webp, gif) work the
// same as the natively supported ones.
package docprocessor

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	"jandocs/core"

	_ "image/gif"  // register GIF decoding for image.Decode
	_ "image/jpeg" // register JPEG decoding for image.Decode

	_ "golang.org/x/image/bmp"  // register BMP decoding for image.Decode
	_ "golang.org/x/image/tiff" // register TIFF decoding for image.Decode
	_ "golang.org/x/image/webp" // register WebP decoding for image.Decode
)

// extractImage OCRs one image file. Images always count as a single OCR
// page.
func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	if !e.OCRAvailable() {
		return ExtractionResult{}, fmt.Errorf("%w: install Tesseract to process images", ErrOCRUnavailable)
	}

	pngPath, cleanup, err := normalizeToPNG(path)
	if err != nil {
		return ExtractionResult{}, err
	}
	defer cleanup()

	text, err := e.runTesseract(ctx, pngPath)
	if err != nil {
		return ExtractionResult{}, err
	}

	return ExtractionResult{Text: text, OCRUsed: true, OCRPages: 1}, nil
}

// normalizeToPNG returns a PNG rendition of the image at path plus a
// cleanup func for any temp file created. PNG inputs are passed through
// untouched.
func normalizeToPNG(path string) (string, func(), error) {
	if core.NormalizeExtension(path) == "png" {
		return path, func() {}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open image %q: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode image %q: %w", path, err)
	}

	tmp, err := os.CreateTemp("", "jandocs-ocr-*.png")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp image: %w", err)
	}

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to encode %q as PNG: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to finalize temp image: %w", err)
	}

	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}
