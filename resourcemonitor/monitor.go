// Package resourcemonitor watches host CPU, memory, and disk pressure
// and turns the readings into batch scheduling decisions: how many
// workers to run, how many files to keep in flight, and whether OCR
// load calls for sequential processing.
//
// The package is built from small pieces:
//   - snapshot atoms sample the OS (with conservative fallbacks)
//   - the capacity resolver maps one snapshot to a load recommendation
//   - the OCR analyzer classifies files by extension and PDF sampling
//   - the plan builder combines both into one immutable ProcessingPlan
//
// Monitor is the organism that composes them. Construct one at wiring
// time and pass it to the batch processor; there is no package-level
// instance.
package resourcemonitor

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"jandocs/logging"
)

// Defaults for MonitorConfig fields left at their zero values.
const (
	// DefaultHistorySize bounds the rolling snapshot history.
	DefaultHistorySize = 60
	// DefaultSampleInterval is the background sampling period.
	DefaultSampleInterval = 1 * time.Second
	// DefaultAverageWindow is how many recent snapshots feed an average.
	DefaultAverageWindow = 10
)

// MonitorConfig controls sampling and planning behavior.
type MonitorConfig struct {
	// Thresholds is the capacity and OCR threshold table
	Thresholds Thresholds
	// HistorySize bounds the rolling snapshot history (default 60)
	HistorySize int
	// SampleInterval is the background sampling period (default 1s)
	SampleInterval time.Duration
	// TesseractPath is the OCR binary probed for availability
	TesseractPath string
	// DiskPath is the mount point measured for free space (default "/";
	// point it at the data directory so the reading matches where
	// documents are written)
	DiskPath string
}

// DefaultMonitorConfig returns a config with the built-in thresholds
// and defaults filled in.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Thresholds:     DefaultThresholds(),
		HistorySize:    DefaultHistorySize,
		SampleInterval: DefaultSampleInterval,
		TesseractPath:  "tesseract",
		DiskPath:       "/",
	}
}

// Monitor samples host resources and produces scheduling
// recommendations. This is the organism composing the snapshot,
// capacity, OCR analysis, and planning pieces.
//
// All methods are safe for concurrent use.
type Monitor struct {
	mu sync.RWMutex

	cfg    MonitorConfig
	logger *logging.Logger

	// inspector samples PDF page text; nil degrades PDFs to LIKELY
	inspector PDFInspector
	// probe reports whether the OCR engine is installed
	probe func() bool

	// ocrOnce caches the probe result for the monitor's lifetime
	ocrOnce      sync.Once
	ocrAvailable bool

	// degradedOnce limits the sampling-fallback warning to one log line
	degradedOnce sync.Once

	// history is the bounded rolling snapshot history, oldest first
	history []ResourceSnapshot
}

// NewMonitor creates a resource monitor. Zero-valued config fields fall
// back to the package defaults, so NewMonitor(MonitorConfig{}, logger)
// is a working conservative setup.
//
// Example:
//
//	cfg := resourcemonitor.DefaultMonitorConfig()
//	cfg.DiskPath = dataDir
//	monitor := resourcemonitor.NewMonitor(cfg, logger).
//	    WithPDFInspector(docprocessor.NewInspector())
func NewMonitor(cfg MonitorConfig, logger *logging.Logger) *Monitor {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = DefaultSampleInterval
	}
	if cfg.TesseractPath == "" {
		cfg.TesseractPath = "tesseract"
	}
	if cfg.DiskPath == "" {
		cfg.DiskPath = "/"
	}
	if (cfg.Thresholds == Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}

	m := &Monitor{
		cfg:    cfg,
		logger: logger.Named("resources"),
	}
	m.probe = func() bool {
		_, err := exec.LookPath(cfg.TesseractPath)
		return err == nil
	}
	return m
}

// WithPDFInspector sets the PDF page-text reader used for scanned-page
// sampling. Without one, every PDF is classified LIKELY. Returns the
// monitor for chaining; call before first use, not concurrently with it.
func (m *Monitor) WithPDFInspector(inspector PDFInspector) *Monitor {
	m.inspector = inspector
	return m
}

// WithOCRProbe replaces the OCR availability probe. Tests use this to
// pin availability without a Tesseract install. Returns the monitor for
// chaining; call before first use, not concurrently with it.
func (m *Monitor) WithOCRProbe(probe func() bool) *Monitor {
	m.probe = probe
	return m
}

// Thresholds returns the monitor's threshold table.
func (m *Monitor) Thresholds() Thresholds {
	return m.cfg.Thresholds
}

// OCRAvailable reports whether the OCR engine is installed. The probe
// runs once and the result is cached for the monitor's lifetime.
func (m *Monitor) OCRAvailable() bool {
	m.ocrOnce.Do(func() {
		m.ocrAvailable = m.probe()
		if m.ocrAvailable {
			m.logger.Info("tesseract OCR is available",
				zap.String("binary", m.cfg.TesseractPath))
		} else {
			m.logger.Warn("tesseract OCR not found - scanned content will not be recognized",
				zap.String("binary", m.cfg.TesseractPath))
		}
	})
	return m.ocrAvailable
}

// Snapshot takes a point-in-time resource reading. It never fails:
// metrics that cannot be sampled degrade to conservative estimates so
// capacity planning keeps working on unsupported platforms.
func (m *Monitor) Snapshot() ResourceSnapshot {
	snap, degraded := sampleSnapshot(m.cfg.DiskPath)
	if degraded {
		m.degradedOnce.Do(func() {
			m.logger.Warn("resource sampling unavailable, substituting conservative estimates")
		})
	}
	return snap
}

// LoadCapacity resolves the load recommendation for a given snapshot.
func (m *Monitor) LoadCapacity(snap ResourceSnapshot) LoadCapacity {
	return ResolveCapacity(snap, m.cfg.Thresholds, m.OCRAvailable())
}

// Capacity resolves the load recommendation for the current moment.
func (m *Monitor) Capacity() LoadCapacity {
	return m.LoadCapacity(m.Snapshot())
}

// Record appends a snapshot to the rolling history, evicting the oldest
// entries beyond the configured size. This method is thread-safe.
func (m *Monitor) Record(snap ResourceSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, snap)
	if len(m.history) > m.cfg.HistorySize {
		m.history = m.history[len(m.history)-m.cfg.HistorySize:]
	}
}

// History returns a copy of the most recent lastN snapshots, oldest
// first. lastN <= 0 returns the full history. This method is
// thread-safe.
func (m *Monitor) History(lastN int) []ResourceSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	if lastN > 0 && len(m.history) > lastN {
		start = len(m.history) - lastN
	}
	out := make([]ResourceSnapshot, len(m.history)-start)
	copy(out, m.history[start:])
	return out
}

// UsageAverage is the mean resource usage over recent history.
type UsageAverage struct {
	// CPUPercentAvg is the mean CPU utilization
	CPUPercentAvg float64 `json:"cpu_percent_avg"`
	// MemoryPercentAvg is the mean memory utilization
	MemoryPercentAvg float64 `json:"memory_percent_avg"`
	// Samples is how many snapshots fed the average
	Samples int `json:"samples"`
}

// AverageUsage averages the most recent lastN snapshots. With no
// history yet, it takes one fresh snapshot and averages that, so the
// result always describes something.
func (m *Monitor) AverageUsage(lastN int) UsageAverage {
	history := m.History(lastN)
	if len(history) == 0 {
		snap := m.Snapshot()
		return UsageAverage{
			CPUPercentAvg:    snap.CPUPercent,
			MemoryPercentAvg: snap.MemoryPercent,
			Samples:          1,
		}
	}

	var cpuSum, memSum float64
	for _, s := range history {
		cpuSum += s.CPUPercent
		memSum += s.MemoryPercent
	}
	return UsageAverage{
		CPUPercentAvg:    cpuSum / float64(len(history)),
		MemoryPercentAvg: memSum / float64(len(history)),
		Samples:          len(history),
	}
}

// Run samples resources into the history every SampleInterval until the
// context is canceled. Start it on its own goroutine at wiring time:
//
//	go monitor.Run(ctx)
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SampleInterval)
	defer ticker.Stop()

	m.logger.Info("background resource monitoring started",
		zap.Duration("interval", m.cfg.SampleInterval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("background resource monitoring stopped")
			return
		case <-ticker.C:
			snap := m.Snapshot()
			m.Record(snap)
			m.logger.Debug("resource snapshot",
				logging.ResourceFields(snap.CPUPercent, snap.MemoryPercent,
					snap.MemoryAvailableMB, snap.DiskFreeMB)...)
		}
	}
}
