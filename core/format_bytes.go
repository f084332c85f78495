package core

import (
	"fmt"
	"strings"
)

// Byte size constants for human-readable formatting.
// Using binary units (1024 base) as is standard for file sizes.
const (
	BytesPerKB int64 = 1024
	BytesPerMB int64 = 1024 * BytesPerKB
	BytesPerGB int64 = 1024 * BytesPerMB
	BytesPerTB int64 = 1024 * BytesPerGB
)

// FormatBytes converts a byte count to a human-readable string.
// Uses binary units (KiB = 1024 bytes) but displays as KB/MB/GB/TB for familiarity.
// Examples:
//   - FormatBytes(0) returns "0 B"
//   - FormatBytes(1536) returns "1.50 KB"
//   - FormatBytes(1073741824) returns "1.00 GB"
//
// This is a pure function with no side effects.
func FormatBytes(bytes int64) string {
	// Handle negative values by treating as 0
	if bytes < 0 {
		bytes = 0
	}

	switch {
	case bytes >= BytesPerTB:
		return fmt.Sprintf("%.2f TB", float64(bytes)/float64(BytesPerTB))
	case bytes >= BytesPerGB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(BytesPerGB))
	case bytes >= BytesPerMB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(BytesPerMB))
	case bytes >= BytesPerKB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(BytesPerKB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatMegabytes renders a size already expressed in megabytes, the unit
// the scheduler works in. Values under 1 MB display in KB and values of
// 1024 MB and above display in GB.
// Examples:
//   - FormatMegabytes(0.5) returns "512 KB"
//   - FormatMegabytes(12.5) returns "12.5 MB"
//   - FormatMegabytes(2048) returns "2.00 GB"
func FormatMegabytes(mb float64) string {
	if mb < 0 {
		mb = 0
	}

	switch {
	case mb >= 1024:
		return fmt.Sprintf("%.2f GB", mb/1024)
	case mb < 1:
		return fmt.Sprintf("%.0f KB", mb*1024)
	default:
		return fmt.Sprintf("%.1f MB", mb)
	}
}

// ParseBytes converts a human-readable size string to bytes.
// Supported formats: "100B", "10KB", "5MB", "2GB", "1TB" (case-insensitive).
// Whitespace between number and unit is allowed.
// Examples:
//   - ParseBytes("1KB") returns 1024, nil
//   - ParseBytes("1.5 MB") returns 1572864, nil
//
// This is a pure function with no side effects.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	// Find where the number ends and the unit begins
	var numEnd int
	for i, c := range s {
		if (c < '0' || c > '9') && c != '.' && c != '-' {
			numEnd = i
			break
		}
		numEnd = i + 1
	}

	if numEnd == 0 {
		return 0, fmt.Errorf("invalid size format: no number found in %q", s)
	}

	var value float64
	if _, err := fmt.Sscanf(s[:numEnd], "%f", &value); err != nil {
		return 0, fmt.Errorf("invalid number in size %q: %w", s, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative sizes not allowed: %q", s)
	}

	var multiplier int64
	switch strings.ToUpper(strings.TrimSpace(s[numEnd:])) {
	case "", "B":
		multiplier = 1
	case "KB", "K":
		multiplier = BytesPerKB
	case "MB", "M":
		multiplier = BytesPerMB
	case "GB", "G":
		multiplier = BytesPerGB
	case "TB", "T":
		multiplier = BytesPerTB
	default:
		return 0, fmt.Errorf("unknown size unit in %q", s)
	}

	return int64(value * float64(multiplier)), nil
}
