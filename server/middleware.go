// Package server exposes the document scheduler over a localhost JSON
// API for the Jan desktop client.
//
// middleware.go implements the LoggingMiddleware molecule for HTTP
// request logging. Every request gets a generated ID, returned in the
// X-Request-ID header and attached to the request context so handlers
// can correlate their own log lines.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"jandocs/logging"
)

// requestIDKey is the context key for the per-request ID.
type requestIDKey struct{}

// RequestIDFromContext returns the request ID attached by the logging
// middleware, or the empty string when the request did not pass
// through it.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// LoggingMiddleware is a molecule that logs every HTTP request with
// method, path, status code, duration, and response size.
//
// Thread-safe for concurrent HTTP requests.
type LoggingMiddleware struct {
	logger *logging.Logger

	// skipPaths are paths to skip logging (e.g. health checks)
	skipPaths map[string]bool
}

// NewLoggingMiddleware creates a LoggingMiddleware writing through the
// given logger. Requests to any of skipPaths are passed through
// unlogged.
func NewLoggingMiddleware(logger *logging.Logger, skipPaths []string) *LoggingMiddleware {
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}

	return &LoggingMiddleware{
		logger:    logger.Named("http"),
		skipPaths: skip,
	}
}

// Handler wraps an http.Handler with request logging.
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()

		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID))

		wrapped := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK, // Default if not explicitly set
		}

		next.ServeHTTP(wrapped, r)

		m.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.Int64("bytes", wrapped.bytesWritten),
			zap.String("remote", clientIP(r)))
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture the status
// code and response size.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

// WriteHeader captures the status code.
func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.statusCode = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

// Write captures the bytes written and ensures the header is written.
func (w *responseWriterWrapper) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += int64(n)
	return n, err
}

// Flush implements http.Flusher if the underlying writer supports it.
func (w *responseWriterWrapper) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// clientIP extracts the client IP from the request. X-Forwarded-For and
// X-Real-IP take precedence for proxied requests.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Use the first IP in the list
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}
