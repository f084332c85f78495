package resourcemonitor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakePDFDocument returns canned page text for OCR sampling tests.
type fakePDFDocument struct {
	pages   []string
	pageErr error
}

func (f *fakePDFDocument) PageCount() int { return len(f.pages) }

func (f *fakePDFDocument) PageText(page int) (string, error) {
	if f.pageErr != nil {
		return "", f.pageErr
	}
	if page < 0 || page >= len(f.pages) {
		return "", fmt.Errorf("page %d out of range", page)
	}
	return f.pages[page], nil
}

func (f *fakePDFDocument) Close() error { return nil }

// fakeInspector serves fake PDF documents by path.
type fakeInspector struct {
	docs    map[string]*fakePDFDocument
	openErr error
}

func (f *fakeInspector) Open(path string) (PDFDocument, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	doc, ok := f.docs[path]
	if !ok {
		return nil, fmt.Errorf("no such document: %s", path)
	}
	return doc, nil
}

// textPage is comfortably above the 100-character scanned threshold.
var textPage = strings.Repeat("The quarterly report covers revenue, expenses, and outlook. ", 4)

func TestMonitor_AnalyzeFileOCR_ByExtension(t *testing.T) {
	tests := []struct {
		name            string
		path            string
		wantRequirement OCRRequirement
		wantPages       int
		wantReason      string
	}{
		{
			name:            "png image requires OCR",
			path:            "scan.png",
			wantRequirement: OCRRequired,
			wantPages:       1,
			wantReason:      "Image file - OCR required",
		},
		{
			name:            "uppercase extension is normalized",
			path:            "photo.JPG",
			wantRequirement: OCRRequired,
			wantPages:       1,
			wantReason:      "Image file - OCR required",
		},
		{
			name:            "plain text never needs OCR",
			path:            "notes.txt",
			wantRequirement: OCRNone,
			wantPages:       0,
			wantReason:      "Text-based format",
		},
		{
			name:            "markdown never needs OCR",
			path:            "README.md",
			wantRequirement: OCRNone,
			wantPages:       0,
			wantReason:      "Text-based format",
		},
		{
			name:            "docx has embedded text",
			path:            "report.docx",
			wantRequirement: OCRNone,
			wantPages:       0,
			wantReason:      "Office document with embedded text",
		},
		{
			name:            "xlsx has embedded text",
			path:            "sheet.xlsx",
			wantRequirement: OCRNone,
			wantPages:       0,
			wantReason:      "Office document with embedded text",
		},
		{
			name:            "unknown extension assumed likely",
			path:            "archive.zzz",
			wantRequirement: OCRLikely,
			wantPages:       1,
			wantReason:      "Unknown format - may need OCR",
		},
	}

	monitor := newTestMonitor(t, true)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := monitor.AnalyzeFileOCR(tt.path)

			if got.OCRRequirement != tt.wantRequirement {
				t.Errorf("OCRRequirement = %q, want %q", got.OCRRequirement, tt.wantRequirement)
			}
			if got.EstimatedOCRPages != tt.wantPages {
				t.Errorf("EstimatedOCRPages = %d, want %d", got.EstimatedOCRPages, tt.wantPages)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
			if got.Path != tt.path {
				t.Errorf("Path = %q, want %q", got.Path, tt.path)
			}
			if got.Filename != filepath.Base(tt.path) {
				t.Errorf("Filename = %q, want %q", got.Filename, filepath.Base(tt.path))
			}
		})
	}
}

func TestMonitor_AnalyzeFileOCR_SizeBasedEstimates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.dat")
	if err := os.WriteFile(path, make([]byte, 2*1024*1024), 0600); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	monitor := newTestMonitor(t, true)
	got := monitor.AnalyzeFileOCR(path)

	if got.SizeMB != 2.0 {
		t.Errorf("SizeMB = %g, want 2.0", got.SizeMB)
	}
	// Unknown formats estimate roughly 10 pages per megabyte.
	if got.EstimatedOCRPages != 20 {
		t.Errorf("EstimatedOCRPages = %d, want 20", got.EstimatedOCRPages)
	}
}

func TestMonitor_AnalyzePDF(t *testing.T) {
	tests := []struct {
		name            string
		doc             *fakePDFDocument
		wantRequirement OCRRequirement
		wantPages       int
		wantReason      string
	}{
		{
			name:            "fully scanned PDF",
			doc:             &fakePDFDocument{pages: []string{"", " ", ""}},
			wantRequirement: OCRRequired,
			wantPages:       3,
			wantReason:      "Scanned PDF detected (3/3 sampled pages lack text)",
		},
		{
			name:            "mixed PDF with scanned first page",
			doc:             &fakePDFDocument{pages: []string{"", textPage, textPage, textPage, textPage, textPage, textPage, textPage, textPage, textPage}},
			wantRequirement: OCRLikely,
			wantPages:       3,
			wantReason:      "Mixed PDF - some pages may need OCR (3 of 10)",
		},
		{
			name:            "text-based PDF",
			doc:             &fakePDFDocument{pages: []string{textPage, textPage}},
			wantRequirement: OCRNone,
			wantPages:       0,
			wantReason:      "Text-based PDF (2 pages)",
		},
		{
			name:            "single text page",
			doc:             &fakePDFDocument{pages: []string{textPage}},
			wantRequirement: OCRNone,
			wantPages:       0,
			wantReason:      "Text-based PDF (1 pages)",
		},
		{
			name:            "single scanned page",
			doc:             &fakePDFDocument{pages: []string{"just a stamp"}},
			wantRequirement: OCRRequired,
			wantPages:       1,
			wantReason:      "Scanned PDF detected (1/1 sampled pages lack text)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monitor := newTestMonitor(t, true).WithPDFInspector(&fakeInspector{
				docs: map[string]*fakePDFDocument{"doc.pdf": tt.doc},
			})

			got := monitor.AnalyzeFileOCR("doc.pdf")

			if got.OCRRequirement != tt.wantRequirement {
				t.Errorf("OCRRequirement = %q, want %q", got.OCRRequirement, tt.wantRequirement)
			}
			if got.EstimatedOCRPages != tt.wantPages {
				t.Errorf("EstimatedOCRPages = %d, want %d", got.EstimatedOCRPages, tt.wantPages)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}

func TestMonitor_AnalyzePDF_NoInspector(t *testing.T) {
	monitor := newTestMonitor(t, true)

	got := monitor.AnalyzeFileOCR("doc.pdf")

	if got.OCRRequirement != OCRLikely {
		t.Errorf("OCRRequirement = %q, want %q (fail toward caution)", got.OCRRequirement, OCRLikely)
	}
	if got.EstimatedOCRPages != 1 {
		t.Errorf("EstimatedOCRPages = %d, want floor of 1", got.EstimatedOCRPages)
	}
	if got.Reason != "Cannot analyze PDF (no inspector available)" {
		t.Errorf("Reason = %q", got.Reason)
	}
}

func TestMonitor_AnalyzePDF_OpenError(t *testing.T) {
	monitor := newTestMonitor(t, true).WithPDFInspector(&fakeInspector{
		openErr: errors.New("encrypted document"),
	})

	got := monitor.AnalyzeFileOCR("locked.pdf")

	if got.OCRRequirement != OCRLikely {
		t.Errorf("OCRRequirement = %q, want %q", got.OCRRequirement, OCRLikely)
	}
	if got.Reason != "Error analyzing PDF: encrypted document" {
		t.Errorf("Reason = %q", got.Reason)
	}
}

func TestMonitor_AnalyzePDF_LongErrorIsTruncated(t *testing.T) {
	long := strings.Repeat("x", 80)
	monitor := newTestMonitor(t, true).WithPDFInspector(&fakeInspector{
		openErr: errors.New(long),
	})

	got := monitor.AnalyzeFileOCR("broken.pdf")

	want := "Error analyzing PDF: " + long[:50]
	if got.Reason != want {
		t.Errorf("Reason = %q, want %q", got.Reason, want)
	}
}

func TestMonitor_AnalyzePDF_PageReadError(t *testing.T) {
	monitor := newTestMonitor(t, true).WithPDFInspector(&fakeInspector{
		docs: map[string]*fakePDFDocument{
			"doc.pdf": {pages: []string{textPage, textPage}, pageErr: errors.New("damaged xref")},
		},
	})

	got := monitor.AnalyzeFileOCR("doc.pdf")

	if got.OCRRequirement != OCRLikely {
		t.Errorf("OCRRequirement = %q, want %q", got.OCRRequirement, OCRLikely)
	}
	if !strings.HasPrefix(got.Reason, "Error analyzing PDF: ") {
		t.Errorf("Reason = %q, want an analysis error", got.Reason)
	}
}

func TestSamplePageIndices(t *testing.T) {
	tests := []struct {
		totalPages int
		want       []int
	}{
		{totalPages: 0, want: []int{0}},
		{totalPages: 1, want: []int{0}},
		{totalPages: 2, want: []int{0, 1}},
		{totalPages: 3, want: []int{0, 1, 2}},
		{totalPages: 10, want: []int{0, 5, 9}},
		{totalPages: 101, want: []int{0, 50, 100}},
	}

	for _, tt := range tests {
		got := samplePageIndices(tt.totalPages)
		if len(got) != len(tt.want) {
			t.Errorf("samplePageIndices(%d) = %v, want %v", tt.totalPages, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("samplePageIndices(%d) = %v, want %v", tt.totalPages, got, tt.want)
				break
			}
		}
	}
}

func TestMonitor_AnalyzeBatchOCR_Aggregation(t *testing.T) {
	monitor := newTestMonitor(t, true)

	// One image among four files: 25% needing OCR, below the 30% bar.
	got := monitor.AnalyzeBatchOCR([]string{"a.txt", "b.md", "c.csv", "scan.png"})

	if got.TotalFiles != 4 {
		t.Errorf("TotalFiles = %d, want 4", got.TotalFiles)
	}
	if got.FilesNeedingOCR != 1 {
		t.Errorf("FilesNeedingOCR = %d, want 1", got.FilesNeedingOCR)
	}
	if got.FilesNoOCR != 3 {
		t.Errorf("FilesNoOCR = %d, want 3", got.FilesNoOCR)
	}
	if got.EstimatedOCRPages != 1 {
		t.Errorf("EstimatedOCRPages = %d, want 1", got.EstimatedOCRPages)
	}
	if got.OCRPercentage != 25.0 {
		t.Errorf("OCRPercentage = %g, want 25.0", got.OCRPercentage)
	}
	if got.IsOCRHeavy {
		t.Error("IsOCRHeavy = true, want false at 25%")
	}
	if len(got.Files) != 4 {
		t.Errorf("len(Files) = %d, want 4", len(got.Files))
	}
	want := "1 file(s) need OCR. Mixed batch - will use limited parallelism."
	if got.Recommendation != want {
		t.Errorf("Recommendation = %q, want %q", got.Recommendation, want)
	}
}

func TestMonitor_AnalyzeBatchOCR_Recommendations(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		ocr   bool
		want  string
	}{
		{
			name:  "no OCR needed with engine installed",
			paths: []string{"a.txt", "b.md"},
			ocr:   true,
			want:  "No OCR needed - full parallel processing available.",
		},
		{
			name:  "no OCR needed without engine",
			paths: []string{"a.txt", "b.md"},
			ocr:   false,
			want:  "All files can be processed without OCR.",
		},
		{
			name:  "OCR needed without engine",
			paths: []string{"a.txt", "scan.png"},
			ocr:   false,
			want:  "⚠️ 1 file(s) may need OCR but Tesseract is not installed. Install Tesseract for best results.",
		},
		{
			name:  "OCR-heavy batch reports minutes",
			paths: []string{"one.png", "two.png", "a.txt"},
			ocr:   true,
			want:  "OCR-heavy batch: 2 files (2 pages) need OCR. Estimated OCR time: 0.1 minutes. Using sequential processing to manage CPU load.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monitor := newTestMonitor(t, tt.ocr)

			got := monitor.AnalyzeBatchOCR(tt.paths)

			if got.Recommendation != tt.want {
				t.Errorf("Recommendation = %q, want %q", got.Recommendation, tt.want)
			}
		})
	}
}

func TestMonitor_AnalyzeBatchOCR_EmptyBatch(t *testing.T) {
	monitor := newTestMonitor(t, true)

	got := monitor.AnalyzeBatchOCR(nil)

	if got.TotalFiles != 0 {
		t.Errorf("TotalFiles = %d, want 0", got.TotalFiles)
	}
	if got.OCRPercentage != 0 {
		t.Errorf("OCRPercentage = %g, want 0", got.OCRPercentage)
	}
	if got.IsOCRHeavy {
		t.Error("IsOCRHeavy = true, want false for empty batch")
	}
}

func TestMonitor_AnalyzeBatchOCR_ScannedPDFMajority(t *testing.T) {
	// Four scanned PDFs out of five files.
	scanned := &fakePDFDocument{pages: []string{"", "", ""}}
	monitor := newTestMonitor(t, true).WithPDFInspector(&fakeInspector{
		docs: map[string]*fakePDFDocument{
			"s1.pdf": scanned, "s2.pdf": scanned, "s3.pdf": scanned, "s4.pdf": scanned,
		},
	})

	got := monitor.AnalyzeBatchOCR([]string{"s1.pdf", "s2.pdf", "s3.pdf", "s4.pdf", "notes.txt"})

	if got.FilesNeedingOCR != 4 {
		t.Errorf("FilesNeedingOCR = %d, want 4", got.FilesNeedingOCR)
	}
	if got.OCRPercentage != 80.0 {
		t.Errorf("OCRPercentage = %g, want 80.0", got.OCRPercentage)
	}
	if !got.IsOCRHeavy {
		t.Error("IsOCRHeavy = false, want true at 80%")
	}
}
