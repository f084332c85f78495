package resourcemonitor

import (
	"strings"
	"testing"
	"time"
)

// healthySnapshot describes a machine with plenty of headroom.
func healthySnapshot() ResourceSnapshot {
	return ResourceSnapshot{
		CPUPercent:        20,
		MemoryPercent:     30,
		MemoryAvailableMB: 4000,
		DiskFreeMB:        20000,
		Timestamp:         time.Now(),
	}
}

func TestResolveCapacity_Tiers(t *testing.T) {
	tests := []struct {
		name           string
		snap           ResourceSnapshot
		wantWorkers    int
		wantFiles      int
		wantFileSizeMB int
		wantMode       ProcessingMode
		wantWarning    string
	}{
		{
			name:           "healthy machine gets full parallelism",
			snap:           healthySnapshot(),
			wantWorkers:    8,
			wantFiles:      8,
			wantFileSizeMB: 100,
			wantMode:       ModeParallel,
		},
		{
			name: "critical CPU forces sequential",
			snap: ResourceSnapshot{
				CPUPercent: 97, MemoryPercent: 30,
				MemoryAvailableMB: 4000, DiskFreeMB: 20000,
			},
			wantWorkers:    1,
			wantFiles:      1,
			wantFileSizeMB: 100,
			wantMode:       ModeSequential,
			wantWarning:    "CPU critically high - sequential processing only",
		},
		{
			name: "high CPU limits parallelism",
			snap: ResourceSnapshot{
				CPUPercent: 85, MemoryPercent: 30,
				MemoryAvailableMB: 4000, DiskFreeMB: 20000,
			},
			wantWorkers:    2,
			wantFiles:      2,
			wantFileSizeMB: 100,
			wantMode:       ModeParallel,
			wantWarning:    "CPU usage high - limiting parallelism",
		},
		{
			name: "medium CPU halves the pool without warning",
			snap: ResourceSnapshot{
				CPUPercent: 65, MemoryPercent: 30,
				MemoryAvailableMB: 4000, DiskFreeMB: 20000,
			},
			wantWorkers:    4,
			wantFiles:      4,
			wantFileSizeMB: 100,
			wantMode:       ModeParallel,
		},
		{
			name: "critical memory forces sequential single file",
			snap: ResourceSnapshot{
				CPUPercent: 20, MemoryPercent: 95,
				MemoryAvailableMB: 4000, DiskFreeMB: 20000,
			},
			wantWorkers:    1,
			wantFiles:      1,
			wantFileSizeMB: 100,
			wantMode:       ModeSequential,
			wantWarning:    "Memory critically low - sequential processing only",
		},
		{
			name: "high memory shrinks the batch",
			snap: ResourceSnapshot{
				CPUPercent: 20, MemoryPercent: 85,
				MemoryAvailableMB: 4000, DiskFreeMB: 20000,
			},
			wantWorkers:    2,
			wantFiles:      3,
			wantFileSizeMB: 100,
			wantMode:       ModeParallel,
			wantWarning:    "Memory usage high - limiting batch size",
		},
		{
			name: "low absolute memory forces near-sequential",
			snap: ResourceSnapshot{
				CPUPercent: 20, MemoryPercent: 50,
				MemoryAvailableMB: 300, DiskFreeMB: 20000,
			},
			wantWorkers:    1,
			wantFiles:      2,
			wantFileSizeMB: 100,
			wantMode:       ModeSequential,
			wantWarning:    "Low available memory (300MB)",
		},
		{
			name: "modest free memory limits without warning",
			snap: ResourceSnapshot{
				CPUPercent: 20, MemoryPercent: 50,
				MemoryAvailableMB: 1500, DiskFreeMB: 20000,
			},
			wantWorkers:    3,
			wantFiles:      5,
			wantFileSizeMB: 100,
			wantMode:       ModeParallel,
		},
		{
			name: "low disk clamps file size only",
			snap: ResourceSnapshot{
				CPUPercent: 20, MemoryPercent: 30,
				MemoryAvailableMB: 4000, DiskFreeMB: 400,
			},
			wantWorkers:    8,
			wantFiles:      8,
			wantFileSizeMB: 10,
			wantMode:       ModeParallel,
			wantWarning:    "Low disk space (400MB free)",
		},
	}

	thresholds := DefaultThresholds()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveCapacity(tt.snap, thresholds, true)

			if got.RecommendedWorkers != tt.wantWorkers {
				t.Errorf("RecommendedWorkers = %d, want %d", got.RecommendedWorkers, tt.wantWorkers)
			}
			if got.MaxConcurrentFiles != tt.wantFiles {
				t.Errorf("MaxConcurrentFiles = %d, want %d", got.MaxConcurrentFiles, tt.wantFiles)
			}
			if got.MaxFileSizeMB != tt.wantFileSizeMB {
				t.Errorf("MaxFileSizeMB = %d, want %d", got.MaxFileSizeMB, tt.wantFileSizeMB)
			}
			if got.RecommendedMode != tt.wantMode {
				t.Errorf("RecommendedMode = %q, want %q", got.RecommendedMode, tt.wantMode)
			}

			if tt.wantWarning == "" {
				if len(got.Warnings) != 0 {
					t.Errorf("Warnings = %v, want none", got.Warnings)
				}
				return
			}
			found := false
			for _, w := range got.Warnings {
				if w == tt.wantWarning {
					found = true
				}
			}
			if !found {
				t.Errorf("Warnings = %v, want one equal to %q", got.Warnings, tt.wantWarning)
			}
		})
	}
}

func TestResolveCapacity_CombinesIndependentConstraints(t *testing.T) {
	// High CPU (2 workers) plus high memory (2 workers, 3 files): the
	// result takes the minimum of each dimension independently.
	snap := ResourceSnapshot{
		CPUPercent:        85,
		MemoryPercent:     85,
		MemoryAvailableMB: 4000,
		DiskFreeMB:        20000,
	}

	got := ResolveCapacity(snap, DefaultThresholds(), true)

	if got.RecommendedWorkers != 2 {
		t.Errorf("RecommendedWorkers = %d, want 2", got.RecommendedWorkers)
	}
	if got.MaxConcurrentFiles != 2 {
		t.Errorf("MaxConcurrentFiles = %d, want 2 (min of cpu workers and memory files)", got.MaxConcurrentFiles)
	}
	if len(got.Warnings) != 2 {
		t.Errorf("Warnings = %v, want both a CPU and a memory warning", got.Warnings)
	}
}

func TestResolveCapacity_DegradationMonotonicity(t *testing.T) {
	// Each snapshot is under strictly more pressure than the previous.
	// Recommended workers must never increase along the sequence.
	snapshots := []ResourceSnapshot{
		{CPUPercent: 10, MemoryPercent: 20, MemoryAvailableMB: 8000, DiskFreeMB: 50000},
		{CPUPercent: 50, MemoryPercent: 55, MemoryAvailableMB: 3000, DiskFreeMB: 20000},
		{CPUPercent: 65, MemoryPercent: 70, MemoryAvailableMB: 1800, DiskFreeMB: 5000},
		{CPUPercent: 85, MemoryPercent: 82, MemoryAvailableMB: 900, DiskFreeMB: 1000},
		{CPUPercent: 96, MemoryPercent: 92, MemoryAvailableMB: 300, DiskFreeMB: 200},
	}

	thresholds := DefaultThresholds()
	prev := thresholds.MaxWorkers + 1
	for i, snap := range snapshots {
		got := ResolveCapacity(snap, thresholds, true)
		if got.RecommendedWorkers > prev {
			t.Errorf("snapshot %d: RecommendedWorkers = %d, rose above %d under more pressure",
				i, got.RecommendedWorkers, prev)
		}
		prev = got.RecommendedWorkers
	}
}

func TestResolveCapacity_OCRAvailabilityPassesThrough(t *testing.T) {
	snap := healthySnapshot()

	if got := ResolveCapacity(snap, DefaultThresholds(), true); !got.OCRAvailable {
		t.Error("OCRAvailable = false, want true")
	}
	if got := ResolveCapacity(snap, DefaultThresholds(), false); got.OCRAvailable {
		t.Error("OCRAvailable = true, want false")
	}
}

func TestResolveCapacity_CustomMaxWorkers(t *testing.T) {
	thresholds := DefaultThresholds()
	thresholds.MaxWorkers = 4

	got := ResolveCapacity(healthySnapshot(), thresholds, true)

	if got.RecommendedWorkers != 4 {
		t.Errorf("RecommendedWorkers = %d, want the configured ceiling 4", got.RecommendedWorkers)
	}
}

func TestResolveCapacity_WarningsMentionTheResource(t *testing.T) {
	snap := ResourceSnapshot{
		CPUPercent:        97,
		MemoryPercent:     30,
		MemoryAvailableMB: 4000,
		DiskFreeMB:        20000,
	}

	got := ResolveCapacity(snap, DefaultThresholds(), true)

	if len(got.Warnings) == 0 {
		t.Fatal("Warnings is empty, want a CPU warning")
	}
	if !strings.Contains(got.Warnings[0], "CPU") {
		t.Errorf("Warnings[0] = %q, want it to mention CPU", got.Warnings[0])
	}
}
