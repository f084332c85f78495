package main

import (
	"jandocs/batchprocessor"
	"jandocs/core"
	"jandocs/docprocessor"
	"jandocs/resourcemonitor"
	"jandocs/server"
	"jandocs/vectorstore"
)

// monitorConfigFor derives the resource monitor configuration. When a
// thresholds file is configured it owns the whole threshold table,
// max_workers included; otherwise MAX_WORKERS sets the worker ceiling.
// A broken thresholds file falls back to the defaults and surfaces as
// the returned *core.ConfigError.
func monitorConfigFor(cfg *core.Config) (resourcemonitor.MonitorConfig, error) {
	mc := resourcemonitor.DefaultMonitorConfig()
	mc.SampleInterval = cfg.MonitorInterval
	mc.TesseractPath = cfg.TesseractPath
	// Measure free space where documents actually land
	mc.DiskPath = cfg.DataDir

	if cfg.ThresholdsFile != "" {
		thresholds, err := resourcemonitor.LoadThresholds(cfg.ThresholdsFile)
		mc.Thresholds = thresholds
		return mc, err
	}

	mc.Thresholds.MaxWorkers = cfg.MaxWorkers
	return mc, nil
}

// docConfigFor derives the document processor configuration.
func docConfigFor(cfg *core.Config) docprocessor.Config {
	dc := docprocessor.DefaultConfig()
	dc.Extractor.TesseractPath = cfg.TesseractPath
	dc.Extractor.OCRLanguage = cfg.OCRLanguage
	dc.Chunker.ChunkSize = cfg.ChunkSizeTokens
	dc.Chunker.ChunkOverlap = cfg.ChunkOverlapTokens
	return dc
}

// embedderConfigFor derives the embeddings client configuration. The
// HTTP client carries the embed timeout and the TLS settings.
func embedderConfigFor(cfg *core.Config) vectorstore.EmbedderConfig {
	ec := vectorstore.DefaultEmbedderConfig()
	ec.BaseURL = cfg.EmbeddingsURL
	ec.APIKey = cfg.EmbeddingsAPIKey
	ec.Model = cfg.EmbeddingsModel
	ec.HTTPClient = core.GetHTTPClient(cfg, cfg.EmbedTimeout)
	return ec
}

// batchConfigFor derives the batch engine configuration.
func batchConfigFor(cfg *core.Config) batchprocessor.Config {
	bc := batchprocessor.DefaultConfig()
	bc.CleanupMaxAge = cfg.BatchRetention
	return bc
}

// serverConfigFor derives the HTTP server configuration. Fields left at
// zero keep the server defaults (loopback host, generous upload
// timeouts, hourly registry sweep).
func serverConfigFor(cfg *core.Config) server.Config {
	return server.Config{
		Port:      cfg.Port,
		UploadDir: cfg.UploadsDir,
		Version:   buildVersion(),
	}
}

// buildVersion assembles the version info stamped into API responses
// from the build-time variables in core.
func buildVersion() server.VersionInfo {
	return server.VersionInfo{
		Version:   core.GetVersion(),
		BuildDate: core.BuildTime,
		GitCommit: core.GitCommit,
	}
}
