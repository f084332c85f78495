// Package docprocessor extracts, chunks, embeds, and indexes documents
// for the jandocs document scheduler.
//
// extractor.go implements the Extractor molecule that routes a file to the
// extraction strategy for its format. It composes:
//   - pdf.go: native PDF text with per-page OCR fallback
//   - office.go: DOCX and XLSX extraction
//   - text.go: plain text, Markdown, and CSV
//   - image.go: raster images through Tesseract
//   - ocr.go: OCR output cleanup
package docprocessor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"jandocs/core"
	"jandocs/logging"

	"go.uber.org/zap"
)

// Common extraction errors.
var (
	// ErrDocumentNotFound indicates the source file does not exist.
	ErrDocumentNotFound = errors.New("docprocessor: document not found")

	// ErrUnsupportedType indicates the file extension has no extractor.
	ErrUnsupportedType = errors.New("docprocessor: unsupported file type")

	// ErrLegacyDoc indicates a legacy .doc file, which has no extractor.
	ErrLegacyDoc = errors.New("docprocessor: legacy .doc format requires conversion")

	// ErrOCRUnavailable indicates an OCR-only format was submitted but the
	// Tesseract binary is not installed.
	ErrOCRUnavailable = errors.New("docprocessor: tesseract OCR not available")
)

// ExtractorConfig holds configuration for text extraction.
type ExtractorConfig struct {
	// TesseractPath is the Tesseract binary name or absolute path
	TesseractPath string

	// PDFToPPMPath is the pdftoppm binary used to rasterize scanned PDF
	// pages before OCR. Scanned-page OCR is skipped when it is missing.
	PDFToPPMPath string

	// OCRLanguage is the Tesseract language code
	OCRLanguage string

	// TesseractArgs are extra arguments passed to every Tesseract run
	TesseractArgs []string

	// PDFTextThreshold is the minimum characters of native text a PDF page
	// must yield before the page is considered scanned and sent to OCR
	PDFTextThreshold int

	// PDFRenderDPI is the rasterization resolution for scanned pages
	PDFRenderDPI int

	// MaxPDFPages caps how many pages are extracted per PDF (0 = all)
	MaxPDFPages int

	// CSVMaxRows caps how many rows are read from a CSV file
	CSVMaxRows int
}

// DefaultExtractorConfig returns sensible default configuration.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		TesseractPath:    "tesseract",
		PDFToPPMPath:     "pdftoppm",
		OCRLanguage:      "eng",
		TesseractArgs:    []string{"--oem", "3", "--psm", "6"},
		PDFTextThreshold: 50,
		PDFRenderDPI:     200,
		MaxPDFPages:      0,
		CSVMaxRows:       1000,
	}
}

// ExtractionResult is the outcome of extracting one document.
type ExtractionResult struct {
	// Text is the full extracted text
	Text string

	// OCRUsed reports whether any content went through OCR
	OCRUsed bool

	// OCRPages counts pages (or whole images) that went through OCR
	OCRPages int
}

// Extractor routes documents to per-format extraction strategies.
//
// Thread-Safety:
//   - Extractor is safe for concurrent use; the cached binary probes are
//     resolved once under sync.Once, everything else is stateless
type Extractor struct {
	cfg    ExtractorConfig
	logger *logging.Logger

	ocrOnce  sync.Once
	ocrOK    bool
	ocrProbe func() bool

	rasterOnce  sync.Once
	rasterOK    bool
	rasterProbe func() bool
}

// NewExtractor creates an Extractor with the given configuration.
// Zero-value config fields are filled from DefaultExtractorConfig.
// The logger must not be nil.
func NewExtractor(cfg ExtractorConfig, logger *logging.Logger) *Extractor {
	def := DefaultExtractorConfig()
	if cfg.TesseractPath == "" {
		cfg.TesseractPath = def.TesseractPath
	}
	if cfg.PDFToPPMPath == "" {
		cfg.PDFToPPMPath = def.PDFToPPMPath
	}
	if cfg.OCRLanguage == "" {
		cfg.OCRLanguage = def.OCRLanguage
	}
	if cfg.TesseractArgs == nil {
		cfg.TesseractArgs = def.TesseractArgs
	}
	if cfg.PDFTextThreshold <= 0 {
		cfg.PDFTextThreshold = def.PDFTextThreshold
	}
	if cfg.PDFRenderDPI <= 0 {
		cfg.PDFRenderDPI = def.PDFRenderDPI
	}
	if cfg.CSVMaxRows <= 0 {
		cfg.CSVMaxRows = def.CSVMaxRows
	}

	e := &Extractor{
		cfg:    cfg,
		logger: logger.Named("extractor"),
	}
	e.ocrProbe = func() bool {
		_, err := exec.LookPath(cfg.TesseractPath)
		return err == nil
	}
	e.rasterProbe = func() bool {
		_, err := exec.LookPath(cfg.PDFToPPMPath)
		return err == nil
	}
	return e
}

// WithOCRProbe replaces the Tesseract availability probe. Intended for
// tests; call before first use, not concurrently with it.
func (e *Extractor) WithOCRProbe(probe func() bool) *Extractor {
	e.ocrProbe = probe
	return e
}

// WithRasterizerProbe replaces the pdftoppm availability probe. Intended
// for tests; call before first use, not concurrently with it.
func (e *Extractor) WithRasterizerProbe(probe func() bool) *Extractor {
	e.rasterProbe = probe
	return e
}

// OCRAvailable reports whether the Tesseract binary can be executed.
// The probe runs once and the result is cached for the extractor lifetime.
//
// This method is thread-safe.
func (e *Extractor) OCRAvailable() bool {
	e.ocrOnce.Do(func() {
		e.ocrOK = e.ocrProbe()
		if !e.ocrOK {
			e.logger.Warn("tesseract not available, OCR disabled",
				zap.String("binary", e.cfg.TesseractPath))
		}
	})
	return e.ocrOK
}

// rasterizerAvailable reports whether pdftoppm can be executed, cached the
// same way as the Tesseract probe.
func (e *Extractor) rasterizerAvailable() bool {
	e.rasterOnce.Do(func() {
		e.rasterOK = e.rasterProbe()
		if !e.rasterOK {
			e.logger.Warn("pdftoppm not available, scanned PDF pages will not be OCRed",
				zap.String("binary", e.cfg.PDFToPPMPath))
		}
	})
	return e.rasterOK
}

// Extract extracts text from the document at path, routed by extension.
//
// Parameters:
//   - ctx: context for cancellation of OCR subprocesses
//   - path: path to the document
//
// Returns the extraction result, or an error when the file is missing,
// its format is unsupported, or the format-specific extractor fails.
//
// Example:
//
//	extractor := NewExtractor(DefaultExtractorConfig(), logger)
//	result, err := extractor.Extract(ctx, "/docs/report.pdf")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Text)
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ExtractionResult{}, fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
		}
		return ExtractionResult{}, fmt.Errorf("failed to stat %q: %w", path, err)
	}

	ext := core.NormalizeExtension(path)
	switch {
	case ext == "pdf":
		return e.extractPDF(ctx, path)
	case ext == "docx":
		text, err := extractDOCX(path)
		return ExtractionResult{Text: text}, err
	case ext == "doc":
		return ExtractionResult{}, fmt.Errorf("%w: save %q as .docx", ErrLegacyDoc, filepath.Base(path))
	case ext == "xlsx" || ext == "xls":
		text, err := extractXLSX(path)
		return ExtractionResult{Text: text}, err
	case ext == "txt" || ext == "md":
		text, err := extractTextFile(path)
		return ExtractionResult{Text: text}, err
	case ext == "csv":
		text, err := extractCSV(path, e.cfg.CSVMaxRows)
		return ExtractionResult{Text: text}, err
	case imageExtensions[ext]:
		return e.extractImage(ctx, path)
	default:
		return ExtractionResult{}, fmt.Errorf("%w: .%s", ErrUnsupportedType, ext)
	}
}
