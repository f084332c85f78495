package resourcemonitor

import "fmt"

// LoadCapacity is the recommended processing envelope derived from one
// resource snapshot. It is a pure function of the snapshot and the
// threshold table; nothing in it is mutated after construction.
type LoadCapacity struct {
	// MaxConcurrentFiles is how many files may be in flight at once
	MaxConcurrentFiles int `json:"max_concurrent_files"`
	// MaxFileSizeMB is the recommended single-file size limit
	MaxFileSizeMB int `json:"max_file_size_mb"`
	// RecommendedMode is SEQUENTIAL when only one worker is advisable
	RecommendedMode ProcessingMode `json:"recommended_mode"`
	// RecommendedWorkers is the advised worker-pool size
	RecommendedWorkers int `json:"recommended_workers"`
	// Warnings describe which resource pressures constrained the result
	Warnings []string `json:"warnings"`
	// OCRAvailable reports whether the OCR engine is installed
	OCRAvailable bool `json:"ocr_available"`
}

// ResolveCapacity maps a resource snapshot to a load recommendation
// using the threshold table. CPU and memory are independent bottlenecks,
// so each is resolved to a worker count on its own and the final
// recommendation takes the minimum; the plan must never exceed either.
//
// This is a pure function: identical inputs always produce identical
// recommendations.
func ResolveCapacity(snap ResourceSnapshot, thresholds Thresholds, ocrAvailable bool) LoadCapacity {
	warnings := []string{}

	// CPU tier
	var cpuWorkers int
	switch {
	case snap.CPUPercent >= thresholds.CPUCritical:
		cpuWorkers = 1
		warnings = append(warnings, "CPU critically high - sequential processing only")
	case snap.CPUPercent >= thresholds.CPUHigh:
		cpuWorkers = 2
		warnings = append(warnings, "CPU usage high - limiting parallelism")
	case snap.CPUPercent >= thresholds.CPUMedium:
		cpuWorkers = 4
	default:
		cpuWorkers = thresholds.MaxWorkers
	}

	// Memory tier. Percent pressure is checked before absolute headroom
	// so a nearly-full small machine and a busy large machine both land
	// in the right tier.
	var memWorkers, memFiles int
	switch {
	case snap.MemoryPercent >= thresholds.MemoryCritical:
		memWorkers = 1
		memFiles = 1
		warnings = append(warnings, "Memory critically low - sequential processing only")
	case snap.MemoryPercent >= thresholds.MemoryHigh:
		memWorkers = 2
		memFiles = 3
		warnings = append(warnings, "Memory usage high - limiting batch size")
	case snap.MemoryAvailableMB < thresholds.MemoryMinAvailableMB:
		memWorkers = 1
		memFiles = 2
		warnings = append(warnings, fmt.Sprintf("Low available memory (%.0fMB)", snap.MemoryAvailableMB))
	case snap.MemoryAvailableMB < thresholds.MemoryComfortableMB:
		memWorkers = 3
		memFiles = 5
	default:
		memWorkers = thresholds.MaxWorkers
		memFiles = 20
	}

	// Disk only constrains file size, not parallelism.
	maxFileSize := thresholds.MaxFileSizeMB
	if snap.DiskFreeMB < thresholds.DiskMinFreeMB {
		warnings = append(warnings, fmt.Sprintf("Low disk space (%.0fMB free)", snap.DiskFreeMB))
		maxFileSize = 10
	}

	workers := cpuWorkers
	if memWorkers < workers {
		workers = memWorkers
	}
	maxConcurrent := cpuWorkers
	if memFiles < maxConcurrent {
		maxConcurrent = memFiles
	}

	mode := ModeParallel
	if workers <= 1 {
		mode = ModeSequential
	}

	return LoadCapacity{
		MaxConcurrentFiles: maxConcurrent,
		MaxFileSizeMB:      maxFileSize,
		RecommendedMode:    mode,
		RecommendedWorkers: workers,
		Warnings:           warnings,
		OCRAvailable:       ocrAvailable,
	}
}
