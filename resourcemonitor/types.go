package resourcemonitor

import "math"

// ProcessingMode selects the batch execution strategy for one plan.
// The worker count is the real throttle; the mode only distinguishes
// single-file execution from pooled execution and flags OCR-bound runs.
type ProcessingMode string

const (
	// ModeSequential processes one file at a time (constrained resources).
	ModeSequential ProcessingMode = "sequential"
	// ModeParallel processes multiple files through a bounded worker pool.
	ModeParallel ProcessingMode = "parallel"
	// ModeChunkedParallel is reserved for chunk-level parallelism on large
	// files. No plan currently selects it.
	ModeChunkedParallel ProcessingMode = "chunked"
	// ModeOCRSequential is sequential processing chosen because the batch
	// is dominated by CPU-bound OCR work.
	ModeOCRSequential ProcessingMode = "ocr_sequential"
)

// String returns the wire value of the mode.
func (m ProcessingMode) String() string {
	return string(m)
}

// IsSequential reports whether the mode runs files one at a time.
func (m ProcessingMode) IsSequential() bool {
	return m == ModeSequential || m == ModeOCRSequential
}

// OCRRequirement classifies how likely a file is to need OCR.
type OCRRequirement string

const (
	// OCRNone means the format carries embedded text and never needs OCR.
	OCRNone OCRRequirement = "none"
	// OCRLikely means the file probably needs OCR (scanned or unknown).
	OCRLikely OCRRequirement = "likely"
	// OCRRequired means the file definitely needs OCR (image formats).
	OCRRequired OCRRequirement = "required"
)

// String returns the wire value of the requirement.
func (r OCRRequirement) String() string {
	return string(r)
}

// NeedsOCR reports whether the requirement counts toward the batch's
// OCR load. LIKELY counts the same as REQUIRED so that planning errs
// toward caution.
func (r OCRRequirement) NeedsOCR() bool {
	return r == OCRLikely || r == OCRRequired
}

// round1 rounds to one decimal place for JSON output.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// round2 rounds to two decimal places for JSON output.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
