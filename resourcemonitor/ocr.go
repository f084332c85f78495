package resourcemonitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"jandocs/core"
)

// PDFInspector opens PDF files for page-level text sampling. The
// production implementation lives in the document processor; the
// monitor only depends on this interface so OCR analysis can run
// without pulling in extraction code.
type PDFInspector interface {
	Open(path string) (PDFDocument, error)
}

// PDFDocument is an open PDF handle used during scanned-page sampling.
type PDFDocument interface {
	// PageCount returns the number of pages in the document.
	PageCount() int
	// PageText returns the extractable text of a zero-based page.
	PageText(page int) (string, error)
	// Close releases the underlying file handle.
	Close() error
}

// imageExtensions always require OCR; an image is treated as one page.
var imageExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "tiff": true,
	"tif": true, "bmp": true, "gif": true, "webp": true,
}

// textExtensions never need OCR.
var textExtensions = map[string]bool{
	"txt": true, "md": true, "csv": true, "json": true,
	"xml": true, "html": true, "htm": true,
}

// officeExtensions carry embedded text, so extraction skips OCR even
// though the analyzer does not verify the contents per file.
var officeExtensions = map[string]bool{
	"docx": true, "xlsx": true, "xls": true, "doc": true,
}

// FileOCRAnalysis is the OCR classification of a single file. Computed
// once per file per batch and never mutated afterwards.
type FileOCRAnalysis struct {
	// Path is the full input path, used to match the analysis back to
	// its file during plan ordering. Not part of the JSON output.
	Path string
	// Filename is the base name for display
	Filename string
	// SizeMB is the file size in megabytes (0 when the file is missing)
	SizeMB float64
	// OCRRequirement is the classification result
	OCRRequirement OCRRequirement
	// EstimatedOCRPages is how many pages OCR would have to process
	EstimatedOCRPages int
	// Reason is a human-readable explanation of the classification
	Reason string
}

// MarshalJSON renders the analysis for transport, with the size rounded
// to two decimal places.
func (a FileOCRAnalysis) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Filename          string         `json:"filename"`
		SizeMB            float64        `json:"size_mb"`
		OCRRequirement    OCRRequirement `json:"ocr_requirement"`
		EstimatedOCRPages int            `json:"estimated_ocr_pages"`
		Reason            string         `json:"reason"`
	}{
		Filename:          a.Filename,
		SizeMB:            round2(a.SizeMB),
		OCRRequirement:    a.OCRRequirement,
		EstimatedOCRPages: a.EstimatedOCRPages,
		Reason:            a.Reason,
	})
}

// BatchOCRAnalysis aggregates per-file OCR classifications for one
// batch.
type BatchOCRAnalysis struct {
	// TotalFiles is the number of files analyzed
	TotalFiles int
	// FilesNeedingOCR counts REQUIRED and LIKELY files together
	FilesNeedingOCR int
	// FilesNoOCR counts files classified NONE
	FilesNoOCR int
	// EstimatedOCRPages is the summed page estimate across the batch
	EstimatedOCRPages int
	// OCRPercentage is FilesNeedingOCR over TotalFiles, as 0-100
	OCRPercentage float64
	// IsOCRHeavy is true when the percentage exceeds the heavy threshold
	IsOCRHeavy bool
	// Files holds the per-file analyses in input order
	Files []FileOCRAnalysis
	// Recommendation is a human-readable summary for the UI
	Recommendation string
}

// MarshalJSON renders the aggregate for transport, with the percentage
// rounded to one decimal place.
func (b BatchOCRAnalysis) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalFiles        int               `json:"total_files"`
		FilesNeedingOCR   int               `json:"files_needing_ocr"`
		FilesNoOCR        int               `json:"files_no_ocr"`
		EstimatedOCRPages int               `json:"estimated_ocr_pages"`
		OCRPercentage     float64           `json:"ocr_percentage"`
		IsOCRHeavy        bool              `json:"is_ocr_heavy"`
		Recommendation    string            `json:"recommendation"`
		Files             []FileOCRAnalysis `json:"files"`
	}{
		TotalFiles:        b.TotalFiles,
		FilesNeedingOCR:   b.FilesNeedingOCR,
		FilesNoOCR:        b.FilesNoOCR,
		EstimatedOCRPages: b.EstimatedOCRPages,
		OCRPercentage:     round1(b.OCRPercentage),
		IsOCRHeavy:        b.IsOCRHeavy,
		Recommendation:    b.Recommendation,
		Files:             b.Files,
	})
}

// AnalyzeFileOCR classifies one file's OCR requirement by extension,
// sampling PDF pages when needed. It never returns an error: files that
// cannot be inspected are classified LIKELY with a size-based page
// estimate, so planning fails toward caution instead of treating an
// unreadable file as OCR-free.
func (m *Monitor) AnalyzeFileOCR(path string) FileOCRAnalysis {
	ext := core.NormalizeExtension(path)
	filename := filepath.Base(path)

	var sizeMB float64
	if info, err := os.Stat(path); err == nil {
		sizeMB = core.BytesToMB(info.Size())
	}

	switch {
	case imageExtensions[ext]:
		return FileOCRAnalysis{
			Path:              path,
			Filename:          filename,
			SizeMB:            sizeMB,
			OCRRequirement:    OCRRequired,
			EstimatedOCRPages: 1,
			Reason:            "Image file - OCR required",
		}
	case textExtensions[ext]:
		return FileOCRAnalysis{
			Path:           path,
			Filename:       filename,
			SizeMB:         sizeMB,
			OCRRequirement: OCRNone,
			Reason:         "Text-based format",
		}
	case officeExtensions[ext]:
		return FileOCRAnalysis{
			Path:           path,
			Filename:       filename,
			SizeMB:         sizeMB,
			OCRRequirement: OCRNone,
			Reason:         "Office document with embedded text",
		}
	case ext == "pdf":
		return m.analyzePDF(path, filename, sizeMB)
	default:
		return FileOCRAnalysis{
			Path:              path,
			Filename:          filename,
			SizeMB:            sizeMB,
			OCRRequirement:    OCRLikely,
			EstimatedOCRPages: roughPageEstimate(sizeMB, 10),
			Reason:            "Unknown format - may need OCR",
		}
	}
}

// analyzePDF samples up to three pages (first, middle, last) and counts
// how many lack extractable text. Sampling keeps planning O(1) in the
// page count while still catching scanned cover pages and appendices
// that a first-page-only check would miss.
func (m *Monitor) analyzePDF(path, filename string, sizeMB float64) FileOCRAnalysis {
	if m.inspector == nil {
		return FileOCRAnalysis{
			Path:              path,
			Filename:          filename,
			SizeMB:            sizeMB,
			OCRRequirement:    OCRLikely,
			EstimatedOCRPages: roughPageEstimate(sizeMB, 5),
			Reason:            "Cannot analyze PDF (no inspector available)",
		}
	}

	doc, err := m.inspector.Open(path)
	if err != nil {
		return m.pdfErrorAnalysis(path, filename, sizeMB, err)
	}
	defer doc.Close()

	totalPages := doc.PageCount()
	samples := samplePageIndices(totalPages)

	scanned := 0
	for _, idx := range samples {
		if idx >= totalPages {
			continue
		}
		text, err := doc.PageText(idx)
		if err != nil {
			return m.pdfErrorAnalysis(path, filename, sizeMB, err)
		}
		if utf8.RuneCountInString(strings.TrimSpace(text)) < m.cfg.Thresholds.ScannedPDFTextThreshold {
			scanned++
		}
	}

	var scannedRatio float64
	if len(samples) > 0 {
		scannedRatio = float64(scanned) / float64(len(samples))
	}

	switch {
	case scannedRatio > 0.5:
		return FileOCRAnalysis{
			Path:              path,
			Filename:          filename,
			SizeMB:            sizeMB,
			OCRRequirement:    OCRRequired,
			EstimatedOCRPages: totalPages,
			Reason:            fmt.Sprintf("Scanned PDF detected (%d/%d sampled pages lack text)", scanned, len(samples)),
		}
	case scannedRatio > 0:
		estimated := int(float64(totalPages) * scannedRatio)
		return FileOCRAnalysis{
			Path:              path,
			Filename:          filename,
			SizeMB:            sizeMB,
			OCRRequirement:    OCRLikely,
			EstimatedOCRPages: estimated,
			Reason:            fmt.Sprintf("Mixed PDF - some pages may need OCR (%d of %d)", estimated, totalPages),
		}
	default:
		return FileOCRAnalysis{
			Path:           path,
			Filename:       filename,
			SizeMB:         sizeMB,
			OCRRequirement: OCRNone,
			Reason:         fmt.Sprintf("Text-based PDF (%d pages)", totalPages),
		}
	}
}

// pdfErrorAnalysis is the shared fallback for PDFs the inspector could
// not read.
func (m *Monitor) pdfErrorAnalysis(path, filename string, sizeMB float64, err error) FileOCRAnalysis {
	m.logger.Warn("error analyzing PDF",
		zap.String("filename", filename),
		zap.Error(err))
	return FileOCRAnalysis{
		Path:              path,
		Filename:          filename,
		SizeMB:            sizeMB,
		OCRRequirement:    OCRLikely,
		EstimatedOCRPages: roughPageEstimate(sizeMB, 5),
		Reason:            "Error analyzing PDF: " + truncate(err.Error(), 50),
	}
}

// AnalyzeBatchOCR classifies every file in the batch and aggregates the
// results, including the OCR-heavy flag and a recommendation string for
// the UI.
func (m *Monitor) AnalyzeBatchOCR(paths []string) BatchOCRAnalysis {
	analyses := make([]FileOCRAnalysis, 0, len(paths))
	for _, path := range paths {
		analyses = append(analyses, m.AnalyzeFileOCR(path))
	}

	needing := 0
	totalPages := 0
	for _, a := range analyses {
		if a.OCRRequirement.NeedsOCR() {
			needing++
		}
		totalPages += a.EstimatedOCRPages
	}

	var percentage float64
	if len(analyses) > 0 {
		percentage = float64(needing) / float64(len(analyses)) * 100
	}
	heavy := percentage > m.cfg.Thresholds.OCRHeavyThreshold*100

	return BatchOCRAnalysis{
		TotalFiles:        len(analyses),
		FilesNeedingOCR:   needing,
		FilesNoOCR:        len(analyses) - needing,
		EstimatedOCRPages: totalPages,
		OCRPercentage:     percentage,
		IsOCRHeavy:        heavy,
		Files:             analyses,
		Recommendation:    m.batchRecommendation(needing, totalPages, heavy),
	}
}

// batchRecommendation builds the human-readable summary for a batch's
// OCR load.
func (m *Monitor) batchRecommendation(needing, totalPages int, heavy bool) string {
	switch {
	case !m.OCRAvailable():
		if needing > 0 {
			return fmt.Sprintf(
				"⚠️ %d file(s) may need OCR but Tesseract is not installed. Install Tesseract for best results.",
				needing)
		}
		return "All files can be processed without OCR."
	case heavy:
		estimated := float64(totalPages) * m.cfg.Thresholds.OCRPageTimeSeconds
		return fmt.Sprintf(
			"OCR-heavy batch: %d files (%d pages) need OCR. Estimated OCR time: %.1f minutes. Using sequential processing to manage CPU load.",
			needing, totalPages, estimated/60)
	case needing > 0:
		return fmt.Sprintf("%d file(s) need OCR. Mixed batch - will use limited parallelism.", needing)
	default:
		return "No OCR needed - full parallel processing available."
	}
}

// samplePageIndices picks the zero-based pages to inspect: first,
// middle, and last, deduplicated by construction for short documents.
func samplePageIndices(totalPages int) []int {
	indices := []int{0}
	if totalPages > 2 {
		indices = append(indices, totalPages/2)
	}
	if totalPages > 1 {
		indices = append(indices, totalPages-1)
	}
	return indices
}

// roughPageEstimate guesses a page count from file size when the pages
// cannot be counted, at a floor of one page.
func roughPageEstimate(sizeMB float64, pagesPerMB int) int {
	pages := int(sizeMB * float64(pagesPerMB))
	if pages < 1 {
		return 1
	}
	return pages
}

// truncate caps a string at n bytes for compact error reasons.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
