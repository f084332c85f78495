// Package docprocessor extracts, chunks, embeds, and indexes documents
// for the jandocs document scheduler.
//
// pdf.go extracts PDF text with the ledongthuc/pdf reader and falls back
// to OCR for scanned pages: a page yielding less native text than the
// configured threshold is rasterized with pdftoppm and sent through
// Tesseract. It also provides the Inspector used by the resource monitor
// to sample PDFs when classifying batches.
package docprocessor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"jandocs/resourcemonitor"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// extractPDF extracts text page by page, marking each page with a
// "[Page N]" header. Pages below the native-text threshold are OCRed when
// both Tesseract and pdftoppm are installed; OCRed content is prefixed
// with an "[OCR]" marker so downstream consumers can tell the source.
func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("failed to open PDF %q: %w", path, err)
	}
	defer f.Close()

	totalPages := r.NumPage()
	pagesToProcess := totalPages
	if e.cfg.MaxPDFPages > 0 && e.cfg.MaxPDFPages < totalPages {
		pagesToProcess = e.cfg.MaxPDFPages
	}

	canOCR := e.OCRAvailable() && e.rasterizerAvailable()

	var tempDir string
	defer func() {
		if tempDir != "" {
			os.RemoveAll(tempDir)
		}
	}()

	var parts []string
	ocrUsed := false
	ocrPages := 0

	for pageIndex := 1; pageIndex <= pagesToProcess; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return ExtractionResult{}, err
		}

		text := e.pdfPageText(r, pageIndex)

		if utf8.RuneCountInString(strings.TrimSpace(text)) < e.cfg.PDFTextThreshold && canOCR {
			ocrText, ocrErr := e.ocrPDFPage(ctx, path, pageIndex, &tempDir)
			switch {
			case ocrErr != nil:
				e.logger.Warn("OCR failed for PDF page",
					zap.String("file", filepath.Base(path)),
					zap.Int("page", pageIndex),
					zap.Error(ocrErr))
			case strings.TrimSpace(ocrText) != "":
				text = "[OCR]\n" + ocrText
				ocrUsed = true
				ocrPages++
				e.logger.Debug("OCR applied to PDF page",
					zap.String("file", filepath.Base(path)),
					zap.Int("page", pageIndex))
			}
		}

		if trimmed := strings.TrimSpace(text); trimmed != "" {
			parts = append(parts, fmt.Sprintf("[Page %d]\n%s", pageIndex, trimmed))
		}
	}

	return ExtractionResult{
		Text:     strings.Join(parts, "\n\n"),
		OCRUsed:  ocrUsed,
		OCRPages: ocrPages,
	}, nil
}

// pdfPageText reads the native text of one page, swallowing per-page
// failures so a single bad page cannot sink the whole document.
// ledongthuc/pdf panics on some malformed content streams, hence the
// recover.
func (e *Extractor) pdfPageText(r *pdf.Reader, pageIndex int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Warn("PDF page text extraction panicked",
				zap.Int("page", pageIndex),
				zap.Any("panic", rec))
			text = ""
		}
	}()

	p := r.Page(pageIndex)
	if p.V.IsNull() {
		return ""
	}

	t, err := p.GetPlainText(nil)
	if err != nil {
		e.logger.Warn("PDF page text extraction failed",
			zap.Int("page", pageIndex),
			zap.Error(err))
		return ""
	}
	return t
}

// ocrPDFPage rasterizes one page and runs it through Tesseract. The shared
// temp directory is created on first use and cleaned up by extractPDF.
func (e *Extractor) ocrPDFPage(ctx context.Context, pdfPath string, pageIndex int, tempDir *string) (string, error) {
	if *tempDir == "" {
		dir, err := os.MkdirTemp("", "jandocs-pdf-ocr-")
		if err != nil {
			return "", fmt.Errorf("failed to create OCR temp dir: %w", err)
		}
		*tempDir = dir
	}

	imagePath, err := e.rasterizePDFPage(ctx, pdfPath, pageIndex, *tempDir)
	if err != nil {
		return "", err
	}
	defer os.Remove(imagePath)

	return e.runTesseract(ctx, imagePath)
}

// rasterizePDFPage renders a single page to a PNG via pdftoppm and returns
// the output path.
func (e *Extractor) rasterizePDFPage(ctx context.Context, pdfPath string, pageIndex int, dir string) (string, error) {
	prefix := filepath.Join(dir, fmt.Sprintf("page-%d", pageIndex))
	page := strconv.Itoa(pageIndex)

	cmd := exec.CommandContext(ctx, e.cfg.PDFToPPMPath,
		"-f", page, "-l", page,
		"-r", strconv.Itoa(e.cfg.PDFRenderDPI),
		"-png", "-singlefile",
		pdfPath, prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftoppm failed for page %d: %w (%s)", pageIndex, err, firstLine(stderr.String()))
	}

	out := prefix + ".png"
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("pdftoppm produced no output for page %d", pageIndex)
	}
	return out, nil
}

// Inspector adapts the ledongthuc/pdf reader to the page-sampling
// interface the resource monitor uses to classify PDFs as scanned or
// text-based. The monitor only reads a few pages per file, so documents
// are opened on demand and closed by the caller.
type Inspector struct{}

var _ resourcemonitor.PDFInspector = (*Inspector)(nil)

// NewInspector returns an Inspector for wiring into the resource monitor.
//
// Example:
//
//	monitor := resourcemonitor.NewMonitor(cfg, logger).
//	    WithPDFInspector(docprocessor.NewInspector())
func NewInspector() *Inspector {
	return &Inspector{}
}

// Open opens a PDF for page sampling. The returned document must be
// closed by the caller.
func (i *Inspector) Open(path string) (doc resourcemonitor.PDFDocument, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = fmt.Errorf("PDF reader panicked opening %q: %v", path, rec)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %q: %w", path, err)
	}
	return &inspectedDocument{file: f, reader: r}, nil
}

// inspectedDocument is the Inspector's view of one open PDF.
type inspectedDocument struct {
	file   *os.File
	reader *pdf.Reader
}

// PageCount returns the number of pages in the document.
func (d *inspectedDocument) PageCount() int {
	return d.reader.NumPage()
}

// PageText returns the native text of a zero-based page. Empty pages
// yield "" without error; reader panics are converted to errors.
func (d *inspectedDocument) PageText(page int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("PDF reader panicked on page %d: %v", page, rec)
		}
	}()

	p := d.reader.Page(page + 1)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

// Close releases the underlying file handle.
func (d *inspectedDocument) Close() error {
	return d.file.Close()
}
