package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the main logging organism that wraps zap.Logger and provides
// structured logging with automatic sensitive data redaction.
//
// This organism composes:
//   - file writer molecule (log rotation via lumberjack)
//   - multi-core molecule (tee output to console + file)
//   - redaction atoms (API key filtering)
//
// Example:
//
//	logger, err := NewLogger(true, "jandocs.log")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("batch started", zap.String("batch_id", "batch_1712345678_1"))
//	logger.Infow("file ingested", "filename", "report.pdf", "chunks", 12)
type Logger struct {
	// zap is the underlying structured logger
	zap *zap.Logger

	// sugar is the sugared logger for printf-style logging
	sugar *zap.SugaredLogger

	// isDevelopment indicates if running in development mode
	isDevelopment bool

	// logFilePath is the path to the log file
	logFilePath string
}

// NewLogger creates a new Logger instance configured for the given environment.
//
// Parameters:
//   - isDevelopment: When true, uses colored console output with debug level.
//     When false, uses JSON output with info level.
//   - logFilePath: Path to the log file. File will be created if it doesn't exist.
//     Log rotation is automatically configured (100MB max, 5 backups, 30 days).
//
// Returns an error if the log file cannot be created or opened.
//
// Example:
//
//	// Development mode
//	devLogger, err := NewLogger(true, "jandocs.log")
//
//	// Production mode
//	prodLogger, err := NewLogger(false, "/var/log/jandocs/jandocs.log")
func NewLogger(isDevelopment bool, logFilePath string) (*Logger, error) {
	return NewLoggerWithConfig(isDevelopment, logFilePath, DefaultFileWriterConfig())
}

// NewLoggerWithConfig creates a Logger with custom file rotation configuration.
// For default rotation behavior, use NewLogger instead.
//
// Example:
//
//	config := FileWriterConfig{
//	    MaxSizeMB:  50,
//	    MaxBackups: 3,
//	    MaxAgeDays: 7,
//	    Compress:   true,
//	}
//	logger, err := NewLoggerWithConfig(true, "jandocs.log", config)
func NewLoggerWithConfig(isDevelopment bool, logFilePath string, fileConfig FileWriterConfig) (*Logger, error) {
	var level zapcore.Level
	if isDevelopment {
		level = zapcore.DebugLevel
	} else {
		level = zapcore.InfoLevel
	}

	core, err := NewMultiCore(level, logFilePath, fileConfig, isDevelopment)
	if err != nil {
		return nil, fmt.Errorf("failed to create log core: %w", err)
	}

	zapLogger := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1), // Skip this wrapper layer
	)

	return &Logger{
		zap:           zapLogger,
		sugar:         zapLogger.Sugar(),
		isDevelopment: isDevelopment,
		logFilePath:   logFilePath,
	}, nil
}

// NewFileLogger creates a Logger that writes only to the rotating log
// file, with no console core. CLI tools that own the terminal (progress
// bars, colored output) use this so log lines never tear the display.
// The file receives JSON at info level, the same as production mode.
//
// Example:
//
//	logger := NewFileLogger("jandocs.log", DefaultFileWriterConfig())
//	defer logger.Sync()
func NewFileLogger(logFilePath string, fileConfig FileWriterConfig) *Logger {
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(NewEncoderConfig()),
		NewFileWriter(logFilePath, fileConfig),
		zapcore.InfoLevel,
	)

	zapLogger := zap.New(fileCore,
		zap.AddCaller(),
		zap.AddCallerSkip(1), // Skip this wrapper layer
	)

	return &Logger{
		zap:         zapLogger,
		sugar:       zapLogger.Sugar(),
		logFilePath: logFilePath,
	}
}

// Sync flushes any buffered log entries.
// Applications should call Sync before exiting to ensure all logs are written.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

// Debug logs a message at DebugLevel with optional structured fields.
//
// Example:
//
//	logger.Debug("sampling resources",
//	    zap.Float64("cpu_percent", 42.5),
//	    zap.Float64("memory_percent", 61.0))
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, l.redactFields(fields)...)
}

// Info logs a message at InfoLevel with optional structured fields.
//
// Example:
//
//	logger.Info("processing plan created",
//	    zap.String("mode", "parallel"),
//	    zap.Int("workers", 4))
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, l.redactFields(fields)...)
}

// Warn logs a message at WarnLevel with optional structured fields.
//
// Example:
//
//	logger.Warn("high memory usage",
//	    zap.Float64("usage_percent", 85.5))
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, l.redactFields(fields)...)
}

// Error logs a message at ErrorLevel with optional structured fields.
//
// Example:
//
//	logger.Error("file ingestion failed",
//	    zap.Error(err),
//	    zap.String("filename", "scan.pdf"))
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, l.redactFields(fields)...)
}

// Fatal logs a message at FatalLevel then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, l.redactFields(fields)...)
}

// Panic logs a message at PanicLevel then panics.
func (l *Logger) Panic(msg string, fields ...zap.Field) {
	l.zap.Panic(msg, l.redactFields(fields)...)
}

// Debugw logs a message at DebugLevel with loosely-typed key-value pairs.
// Use this for printf-style logging when you don't need type safety.
//
// Example:
//
//	logger.Debugw("OCR sample", "path", path, "scanned_pages", 2)
func (l *Logger) Debugw(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, l.redactKeysAndValues(keysAndValues)...)
}

// Infow logs a message at InfoLevel with loosely-typed key-value pairs.
func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, l.redactKeysAndValues(keysAndValues)...)
}

// Warnw logs a message at WarnLevel with loosely-typed key-value pairs.
func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, l.redactKeysAndValues(keysAndValues)...)
}

// Errorw logs a message at ErrorLevel with loosely-typed key-value pairs.
func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, l.redactKeysAndValues(keysAndValues)...)
}

// Fatalw logs a message at FatalLevel then calls os.Exit(1).
func (l *Logger) Fatalw(msg string, keysAndValues ...interface{}) {
	l.sugar.Fatalw(msg, l.redactKeysAndValues(keysAndValues)...)
}

// Debugf logs a formatted message at DebugLevel.
func (l *Logger) Debugf(template string, args ...interface{}) {
	l.sugar.Debugf(template, args...)
}

// Infof logs a formatted message at InfoLevel.
//
// Example:
//
//	logger.Infof("processed %d of %d files", done, total)
func (l *Logger) Infof(template string, args ...interface{}) {
	l.sugar.Infof(template, args...)
}

// Warnf logs a formatted message at WarnLevel.
func (l *Logger) Warnf(template string, args ...interface{}) {
	l.sugar.Warnf(template, args...)
}

// Errorf logs a formatted message at ErrorLevel.
func (l *Logger) Errorf(template string, args ...interface{}) {
	l.sugar.Errorf(template, args...)
}

// Fatalf logs a formatted message at FatalLevel then calls os.Exit(1).
func (l *Logger) Fatalf(template string, args ...interface{}) {
	l.sugar.Fatalf(template, args...)
}

// With creates a child logger with additional fields that will be included
// in all log entries from the child.
//
// This is useful for adding context that applies to a subset of operations,
// such as batch IDs.
//
// Example:
//
//	batchLogger := logger.With(zap.String("batch_id", progress.BatchID))
//	batchLogger.Info("batch started")
//	batchLogger.Info("batch complete")
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		zap:           l.zap.With(l.redactFields(fields)...),
		sugar:         l.sugar.With(l.redactFieldsToInterface(fields)...),
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

// WithOptions creates a child logger with additional zap options.
func (l *Logger) WithOptions(opts ...zap.Option) *Logger {
	newZap := l.zap.WithOptions(opts...)
	return &Logger{
		zap:           newZap,
		sugar:         newZap.Sugar(),
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

// Named adds a sub-logger name. Logger names appear in log output and
// help identify the source of log entries.
//
// Example:
//
//	monitorLogger := logger.Named("resource-monitor")
//	batchLogger := logger.Named("batch-processor")
func (l *Logger) Named(name string) *Logger {
	newZap := l.zap.Named(name)
	return &Logger{
		zap:           newZap,
		sugar:         newZap.Sugar(),
		isDevelopment: l.isDevelopment,
		logFilePath:   l.logFilePath,
	}
}

// Sugar returns the underlying sugared logger for direct access to
// SugaredLogger methods not exposed by this wrapper.
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// Zap returns the underlying zap.Logger for direct access to
// Logger methods not exposed by this wrapper.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// IsDevelopment returns true if the logger is configured for development mode.
func (l *Logger) IsDevelopment() bool {
	return l.isDevelopment
}

// LogFilePath returns the path to the log file.
func (l *Logger) LogFilePath() string {
	return l.logFilePath
}

// redactFields filters sensitive data from zap.Field values.
// This is called before every log operation so API keys never reach the log.
func (l *Logger) redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}

	result := make([]zap.Field, len(fields))
	for i, field := range fields {
		result[i] = l.redactField(field)
	}
	return result
}

// redactField redacts a single zap.Field if it contains sensitive data.
func (l *Logger) redactField(field zap.Field) zap.Field {
	if IsSensitiveField(field.Key) {
		return zap.String(field.Key, RedactedPlaceholder)
	}

	if field.Type == zapcore.StringType {
		redacted := RedactSensitiveData(field.String)
		if redacted != field.String {
			return zap.String(field.Key, redacted)
		}
	}

	return field
}

// redactKeysAndValues filters sensitive data from key-value pairs used in sugared logging.
func (l *Logger) redactKeysAndValues(keysAndValues []interface{}) []interface{} {
	if len(keysAndValues) == 0 {
		return keysAndValues
	}

	result := make([]interface{}, len(keysAndValues))
	copy(result, keysAndValues)

	// Process pairs: even indices are keys, odd indices are values
	for i := 0; i < len(result)-1; i += 2 {
		key, ok := result[i].(string)
		if !ok {
			continue
		}

		if IsSensitiveField(key) {
			result[i+1] = RedactedPlaceholder
			continue
		}

		if value, ok := result[i+1].(string); ok {
			result[i+1] = RedactSensitiveData(value)
		}
	}

	return result
}

// redactFieldsToInterface converts zap.Fields to an interface slice for the sugared logger.
func (l *Logger) redactFieldsToInterface(fields []zap.Field) []interface{} {
	result := make([]interface{}, 0, len(fields)*2)
	for _, field := range fields {
		redacted := l.redactField(field)
		result = append(result, redacted.Key, redacted.String)
	}
	return result
}
