package resourcemonitor

import (
	"encoding/json"
	"testing"
	"time"
)

func TestResourceSnapshot_MarshalJSON_Rounding(t *testing.T) {
	snap := ResourceSnapshot{
		CPUPercent:        42.467,
		MemoryPercent:     61.04,
		MemoryAvailableMB: 1999.6,
		DiskFreeMB:        10000.4,
		Timestamp:         time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC),
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal() returned error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() returned error: %v", err)
	}

	if decoded["cpu_percent"] != 42.5 {
		t.Errorf("cpu_percent = %v, want 42.5", decoded["cpu_percent"])
	}
	if decoded["memory_percent"] != 61.0 {
		t.Errorf("memory_percent = %v, want 61.0", decoded["memory_percent"])
	}
	if decoded["memory_available_mb"] != float64(2000) {
		t.Errorf("memory_available_mb = %v, want 2000", decoded["memory_available_mb"])
	}
	if decoded["disk_free_mb"] != float64(10000) {
		t.Errorf("disk_free_mb = %v, want 10000", decoded["disk_free_mb"])
	}

	ts, ok := decoded["timestamp"].(string)
	if !ok || ts == "" {
		t.Errorf("timestamp = %v, want an RFC 3339 string", decoded["timestamp"])
	}
}

func TestFileOCRAnalysis_MarshalJSON(t *testing.T) {
	analysis := FileOCRAnalysis{
		Path:              "/data/uploads/scan.pdf",
		Filename:          "scan.pdf",
		SizeMB:            1.23456,
		OCRRequirement:    OCRRequired,
		EstimatedOCRPages: 12,
		Reason:            "Scanned PDF detected (3/3 sampled pages lack text)",
	}

	data, err := json.Marshal(analysis)
	if err != nil {
		t.Fatalf("Marshal() returned error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() returned error: %v", err)
	}

	if _, present := decoded["path"]; present {
		t.Error("path should not be part of the JSON output")
	}
	if decoded["filename"] != "scan.pdf" {
		t.Errorf("filename = %v, want %q", decoded["filename"], "scan.pdf")
	}
	if decoded["size_mb"] != 1.23 {
		t.Errorf("size_mb = %v, want 1.23", decoded["size_mb"])
	}
	if decoded["ocr_requirement"] != "required" {
		t.Errorf("ocr_requirement = %v, want %q", decoded["ocr_requirement"], "required")
	}
	if decoded["estimated_ocr_pages"] != float64(12) {
		t.Errorf("estimated_ocr_pages = %v, want 12", decoded["estimated_ocr_pages"])
	}
}

func TestBatchOCRAnalysis_MarshalJSON(t *testing.T) {
	batch := BatchOCRAnalysis{
		TotalFiles:        3,
		FilesNeedingOCR:   1,
		FilesNoOCR:        2,
		EstimatedOCRPages: 5,
		OCRPercentage:     33.333333,
		IsOCRHeavy:        true,
		Files: []FileOCRAnalysis{
			{Filename: "a.png", OCRRequirement: OCRRequired, EstimatedOCRPages: 1},
		},
		Recommendation: "1 file(s) need OCR. Mixed batch - will use limited parallelism.",
	}

	data, err := json.Marshal(batch)
	if err != nil {
		t.Fatalf("Marshal() returned error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() returned error: %v", err)
	}

	if decoded["ocr_percentage"] != 33.3 {
		t.Errorf("ocr_percentage = %v, want 33.3", decoded["ocr_percentage"])
	}
	if decoded["is_ocr_heavy"] != true {
		t.Errorf("is_ocr_heavy = %v, want true", decoded["is_ocr_heavy"])
	}
	files, ok := decoded["files"].([]interface{})
	if !ok || len(files) != 1 {
		t.Fatalf("files = %v, want one entry", decoded["files"])
	}
}

func TestSampleSnapshot_BadDiskPathDegradesToFallback(t *testing.T) {
	snap, degraded := sampleSnapshot("/definitely-not-a-mount-point-zz")

	if !degraded {
		t.Error("degraded = false, want true for an unreadable disk path")
	}
	if snap.DiskFreeMB != fallbackDiskFreeMB {
		t.Errorf("DiskFreeMB = %g, want fallback %g", snap.DiskFreeMB, fallbackDiskFreeMB)
	}
	// CPU and memory sampling still return live readings.
	if snap.MemoryAvailableMB <= 0 {
		t.Errorf("MemoryAvailableMB = %g, want a live positive reading", snap.MemoryAvailableMB)
	}
	if snap.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}

func TestProcessingMode_IsSequential(t *testing.T) {
	tests := []struct {
		mode ProcessingMode
		want bool
	}{
		{ModeSequential, true},
		{ModeOCRSequential, true},
		{ModeParallel, false},
		{ModeChunkedParallel, false},
	}

	for _, tt := range tests {
		if got := tt.mode.IsSequential(); got != tt.want {
			t.Errorf("%q.IsSequential() = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestOCRRequirement_NeedsOCR(t *testing.T) {
	tests := []struct {
		requirement OCRRequirement
		want        bool
	}{
		{OCRNone, false},
		{OCRLikely, true},
		{OCRRequired, true},
	}

	for _, tt := range tests {
		if got := tt.requirement.NeedsOCR(); got != tt.want {
			t.Errorf("%q.NeedsOCR() = %v, want %v", tt.requirement, got, tt.want)
		}
	}
}
