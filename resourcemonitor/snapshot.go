package resourcemonitor

import (
	"encoding/json"
	"math"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Conservative estimates substituted when a metric cannot be sampled.
// They describe a moderately loaded machine so that capacity planning
// degrades to cautious parallelism instead of blocking uploads.
const (
	fallbackCPUPercent        = 50.0
	fallbackMemoryPercent     = 60.0
	fallbackMemoryAvailableMB = 2000.0
	fallbackDiskFreeMB        = 10000.0
)

// ResourceSnapshot is a point-in-time reading of host resource usage.
// Snapshots are immutable once taken; the monitor retains a bounded
// rolling history of them for averaging.
type ResourceSnapshot struct {
	// CPUPercent is total CPU utilization across all cores (0-100)
	CPUPercent float64
	// MemoryPercent is physical memory utilization (0-100)
	MemoryPercent float64
	// MemoryAvailableMB is memory available to new work, in megabytes
	MemoryAvailableMB float64
	// DiskFreeMB is free space on the monitored mount, in megabytes
	DiskFreeMB float64
	// Timestamp is when the reading was taken
	Timestamp time.Time
}

// MarshalJSON renders the snapshot with display rounding: percentages
// to one decimal place, megabyte figures to whole megabytes.
func (s ResourceSnapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CPUPercent        float64   `json:"cpu_percent"`
		MemoryPercent     float64   `json:"memory_percent"`
		MemoryAvailableMB float64   `json:"memory_available_mb"`
		DiskFreeMB        float64   `json:"disk_free_mb"`
		Timestamp         time.Time `json:"timestamp"`
	}{
		CPUPercent:        round1(s.CPUPercent),
		MemoryPercent:     round1(s.MemoryPercent),
		MemoryAvailableMB: math.Round(s.MemoryAvailableMB),
		DiskFreeMB:        math.Round(s.DiskFreeMB),
		Timestamp:         s.Timestamp,
	})
}

// sampleSnapshot reads current usage from the OS. Each metric degrades
// independently to its fallback value so one unsupported probe does not
// discard the readings that succeeded. The second return value reports
// whether any fallback was used.
func sampleSnapshot(diskPath string) (ResourceSnapshot, bool) {
	snap := ResourceSnapshot{Timestamp: time.Now()}
	degraded := false

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	} else {
		snap.CPUPercent = fallbackCPUPercent
		degraded = true
	}

	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		snap.MemoryPercent = vm.UsedPercent
		snap.MemoryAvailableMB = float64(vm.Available) / (1024 * 1024)
	} else {
		snap.MemoryPercent = fallbackMemoryPercent
		snap.MemoryAvailableMB = fallbackMemoryAvailableMB
		degraded = true
	}

	if du, err := disk.Usage(diskPath); err == nil && du != nil {
		snap.DiskFreeMB = float64(du.Free) / (1024 * 1024)
	} else {
		snap.DiskFreeMB = fallbackDiskFreeMB
		degraded = true
	}

	return snap, degraded
}
