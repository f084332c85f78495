package resourcemonitor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"jandocs/core"
)

// Thresholds tune the capacity tiers and OCR heuristics. The defaults
// suit a mid-range desktop; machines dedicated to ingestion can raise
// the worker ceiling, low-memory laptops should lower it.
//
// A YAML file with any subset of the keys overrides the corresponding
// defaults, for example:
//
//	max_workers: 4
//	cpu_high: 70
//	ocr_max_parallel_workers: 1
type Thresholds struct {
	// CPUMedium is the utilization percent above which parallelism drops to 4 workers
	CPUMedium float64 `yaml:"cpu_medium"`
	// CPUHigh is the utilization percent above which parallelism drops to 2 workers
	CPUHigh float64 `yaml:"cpu_high"`
	// CPUCritical is the utilization percent above which only 1 worker runs
	CPUCritical float64 `yaml:"cpu_critical"`

	// MemoryHigh is the memory percent above which batches shrink to 3 files
	MemoryHigh float64 `yaml:"memory_high"`
	// MemoryCritical is the memory percent above which processing is sequential
	MemoryCritical float64 `yaml:"memory_critical"`
	// MemoryMinAvailableMB is the absolute free-memory floor in megabytes
	MemoryMinAvailableMB float64 `yaml:"memory_min_available_mb"`
	// MemoryComfortableMB is the free memory above which no memory limits apply
	MemoryComfortableMB float64 `yaml:"memory_comfortable_mb"`

	// DiskMinFreeMB is the free-disk floor below which file sizes are clamped
	DiskMinFreeMB float64 `yaml:"disk_min_free_mb"`

	// MaxWorkers is the parallelism ceiling when resources are healthy
	MaxWorkers int `yaml:"max_workers"`
	// MaxFileSizeMB is the recommended single-file size limit in megabytes
	MaxFileSizeMB int `yaml:"max_file_size_mb"`

	// OCRHeavyThreshold is the fraction of files needing OCR (0-1) above
	// which a batch counts as OCR-heavy
	OCRHeavyThreshold float64 `yaml:"ocr_heavy_threshold"`
	// OCRPageTimeSeconds is the estimated OCR cost per page
	OCRPageTimeSeconds float64 `yaml:"ocr_page_time_seconds"`
	// OCRMaxParallelWorkers caps workers for OCR-heavy batches. OCR is
	// CPU-bound and single-threaded per page, so more workers thrash.
	OCRMaxParallelWorkers int `yaml:"ocr_max_parallel_workers"`
	// ScannedPDFTextThreshold is the character count below which a sampled
	// PDF page counts as scanned
	ScannedPDFTextThreshold int `yaml:"scanned_pdf_text_threshold"`
}

// DefaultThresholds returns the built-in threshold table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPUMedium:   60,
		CPUHigh:     80,
		CPUCritical: 95,

		MemoryHigh:           80,
		MemoryCritical:       90,
		MemoryMinAvailableMB: 500,
		MemoryComfortableMB:  2000,

		DiskMinFreeMB: 500,

		MaxWorkers:    8,
		MaxFileSizeMB: 100,

		OCRHeavyThreshold:       0.3,
		OCRPageTimeSeconds:      2.0,
		OCRMaxParallelWorkers:   2,
		ScannedPDFTextThreshold: 100,
	}
}

// Validate checks the threshold table for values that would produce a
// nonsensical capacity resolution.
func (t Thresholds) Validate() error {
	if t.MaxWorkers < 1 || t.MaxWorkers > 64 {
		return fmt.Errorf("max_workers must be between 1 and 64, got %d", t.MaxWorkers)
	}
	if t.OCRMaxParallelWorkers < 1 {
		return fmt.Errorf("ocr_max_parallel_workers must be at least 1, got %d", t.OCRMaxParallelWorkers)
	}
	if t.CPUMedium <= 0 || t.CPUMedium >= t.CPUHigh || t.CPUHigh >= t.CPUCritical || t.CPUCritical > 100 {
		return fmt.Errorf("cpu thresholds must satisfy 0 < medium < high < critical <= 100, got %.0f/%.0f/%.0f",
			t.CPUMedium, t.CPUHigh, t.CPUCritical)
	}
	if t.MemoryHigh <= 0 || t.MemoryHigh >= t.MemoryCritical || t.MemoryCritical > 100 {
		return fmt.Errorf("memory thresholds must satisfy 0 < high < critical <= 100, got %.0f/%.0f",
			t.MemoryHigh, t.MemoryCritical)
	}
	if t.MemoryMinAvailableMB <= 0 || t.MemoryMinAvailableMB >= t.MemoryComfortableMB {
		return fmt.Errorf("memory_min_available_mb (%.0f) must be positive and below memory_comfortable_mb (%.0f)",
			t.MemoryMinAvailableMB, t.MemoryComfortableMB)
	}
	if t.DiskMinFreeMB <= 0 {
		return fmt.Errorf("disk_min_free_mb must be positive, got %.0f", t.DiskMinFreeMB)
	}
	if t.MaxFileSizeMB < 1 {
		return fmt.Errorf("max_file_size_mb must be at least 1, got %d", t.MaxFileSizeMB)
	}
	if t.OCRHeavyThreshold <= 0 || t.OCRHeavyThreshold > 1 {
		return fmt.Errorf("ocr_heavy_threshold must be in (0, 1], got %g", t.OCRHeavyThreshold)
	}
	if t.OCRPageTimeSeconds <= 0 {
		return fmt.Errorf("ocr_page_time_seconds must be positive, got %g", t.OCRPageTimeSeconds)
	}
	if t.ScannedPDFTextThreshold < 1 {
		return fmt.Errorf("scanned_pdf_text_threshold must be at least 1, got %d", t.ScannedPDFTextThreshold)
	}
	return nil
}

// LoadThresholds reads a YAML threshold file and merges it over the
// defaults. Keys absent from the file keep their default values, so a
// file may override a single threshold. The merged table is validated
// before being returned; on any error the defaults are returned
// alongside a *core.ConfigError describing the problem.
func LoadThresholds(path string) (Thresholds, error) {
	thresholds := DefaultThresholds()

	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultThresholds(), core.ErrThresholdsInvalid(path, err.Error())
	}

	if err := yaml.Unmarshal(data, &thresholds); err != nil {
		return DefaultThresholds(), core.ErrThresholdsInvalid(path, "not valid YAML: "+err.Error())
	}

	if err := thresholds.Validate(); err != nil {
		return DefaultThresholds(), core.ErrThresholdsInvalid(path, err.Error())
	}

	return thresholds, nil
}
