// Package logging provides structured logging for jandocs.
//
// core.go contains the encoder config atoms and the molecules that compose
// them into a zapcore.Core: a rotating file writer (lumberjack) and a
// multi-core that tees output to console + file.
package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Standard field names for structured logging.
// These constants define the JSON keys used in log output.
const (
	// FieldTimestamp is the key for the log entry timestamp
	FieldTimestamp = "timestamp"

	// FieldLevel is the key for the log level (debug, info, warn, error, fatal)
	FieldLevel = "level"

	// FieldSource is the key for the sub-logger name
	FieldSource = "source"

	// FieldMessage is the key for the log message
	FieldMessage = "message"

	// FieldStacktrace is the key for stack traces (on error/fatal)
	FieldStacktrace = "stacktrace"

	// FieldCaller is the key for the calling function name
	FieldCaller = "caller"
)

// Default file writer configuration values
const (
	// DefaultMaxSizeMB is the maximum size in megabytes before rotation
	DefaultMaxSizeMB = 100

	// DefaultMaxBackups is the number of old log files to retain
	DefaultMaxBackups = 5

	// DefaultMaxAgeDays is the maximum number of days to retain old log files
	DefaultMaxAgeDays = 30

	// DefaultCompress enables gzip compression of rotated files
	DefaultCompress = true
)

// FileWriterConfig holds configuration for the file writer with rotation.
// Zero values for the integer fields fall back to defaults.
type FileWriterConfig struct {
	// MaxSizeMB is the maximum size in megabytes of the log file before rotation.
	// Default: 100 MB
	MaxSizeMB int

	// MaxBackups is the maximum number of old log files to retain.
	// Default: 5 files
	MaxBackups int

	// MaxAgeDays is the maximum number of days to retain old log files.
	// Default: 30 days
	MaxAgeDays int

	// Compress determines if rotated log files should be compressed using gzip.
	Compress bool

	// LocalTime determines if the timestamps in backup file names use local time.
	// Default: false (uses UTC)
	LocalTime bool
}

// DefaultFileWriterConfig returns a FileWriterConfig with default values.
func DefaultFileWriterConfig() FileWriterConfig {
	return FileWriterConfig{
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAgeDays: DefaultMaxAgeDays,
		Compress:   DefaultCompress,
		LocalTime:  false,
	}
}

// NewEncoderConfig returns a zapcore.EncoderConfig with standardized field names
// for JSON log output.
//
// The config uses:
//   - ISO8601 timestamps
//   - Lowercase level names
//   - Short caller paths with line numbers
func NewEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       FieldTimestamp,
		LevelKey:      FieldLevel,
		NameKey:       FieldSource,
		CallerKey:     FieldCaller,
		MessageKey:    FieldMessage,
		StacktraceKey: FieldStacktrace,
		LineEnding:    zapcore.DefaultLineEnding,

		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// NewConsoleEncoderConfig returns a zapcore.EncoderConfig optimized for console
// output: colored levels and compact timestamps.
func NewConsoleEncoderConfig() zapcore.EncoderConfig {
	cfg := NewEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeTime = shortTimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

// shortTimeEncoder encodes time in a compact format for console output.
// Format: 15:04:05.000
func shortTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05.000"))
}

// NewFileWriter creates a zapcore.WriteSyncer that writes to a file with
// automatic size- and age-based rotation.
//
// This is a molecule that composes lumberjack.Logger into a zapcore.WriteSyncer.
//
// Example:
//
//	writer := NewFileWriter("/var/log/jandocs/jandocs.log", DefaultFileWriterConfig())
//	core := zapcore.NewCore(encoder, writer, level)
func NewFileWriter(path string, config FileWriterConfig) zapcore.WriteSyncer {
	if config.MaxSizeMB == 0 {
		config.MaxSizeMB = DefaultMaxSizeMB
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = DefaultMaxBackups
	}
	if config.MaxAgeDays == 0 {
		config.MaxAgeDays = DefaultMaxAgeDays
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    config.MaxSizeMB,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAgeDays,
		Compress:   config.Compress,
		LocalTime:  config.LocalTime,
	})
}

// NewMultiCore creates a zapcore.Core that tees output to both console and a
// rotating file.
//
// Parameters:
//   - level: The minimum log level for both outputs
//   - filePath: Path to the log file (created/appended, rotated by lumberjack)
//   - fileConfig: rotation settings for the file output
//   - isDev: When true, console uses colored human-readable format; when false,
//     both outputs use JSON
//
// The file output always uses JSON encoding for structured log processing.
//
// Example:
//
//	core, err := NewMultiCore(zapcore.InfoLevel, "jandocs.log", DefaultFileWriterConfig(), true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger := zap.New(core)
func NewMultiCore(level zapcore.Level, filePath string, fileConfig FileWriterConfig, isDev bool) (zapcore.Core, error) {
	fileWriter := NewFileWriter(filePath, fileConfig)
	consoleWriter, _, err := zap.Open("stdout")
	if err != nil {
		return nil, err
	}
	return NewMultiCoreWithWriters(level, consoleWriter, fileWriter, isDev), nil
}

// NewMultiCoreWithWriters creates a zapcore.Core that tees output to the
// provided writers. Useful for tests that capture log output in a buffer.
//
// Example:
//
//	var buf zaptest.Buffer
//	core := NewMultiCoreWithWriters(zapcore.DebugLevel, os.Stdout, &buf, true)
func NewMultiCoreWithWriters(level zapcore.Level, consoleWriter, fileWriter zapcore.WriteSyncer, isDev bool) zapcore.Core {
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(NewEncoderConfig()),
		fileWriter,
		level,
	)

	var consoleEncoder zapcore.Encoder
	if isDev {
		consoleEncoder = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(NewEncoderConfig())
	}

	consoleCore := zapcore.NewCore(consoleEncoder, consoleWriter, level)

	return zapcore.NewTee(consoleCore, fileCore)
}
