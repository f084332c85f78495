package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoggingMiddleware_Handler(t *testing.T) {
	t.Run("attaches a request ID", func(t *testing.T) {
		mw := NewLoggingMiddleware(newTestLogger(t), nil)

		var seenID string
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenID = RequestIDFromContext(r.Context())
			w.WriteHeader(http.StatusTeapot)
		}))

		req := httptest.NewRequest(http.MethodGet, "/documents", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		headerID := w.Header().Get("X-Request-ID")
		if headerID == "" {
			t.Fatal("expected an X-Request-ID header")
		}
		if seenID != headerID {
			t.Errorf("expected context ID '%s' to match header, got '%s'", headerID, seenID)
		}
		if w.Code != http.StatusTeapot {
			t.Errorf("expected status 418, got %d", w.Code)
		}
	})

	t.Run("generates a fresh ID per request", func(t *testing.T) {
		mw := NewLoggingMiddleware(newTestLogger(t), nil)
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/documents", nil))
		second := httptest.NewRecorder()
		handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/documents", nil))

		a := first.Header().Get("X-Request-ID")
		b := second.Header().Get("X-Request-ID")
		if a == "" || b == "" || a == b {
			t.Errorf("expected distinct request IDs, got '%s' and '%s'", a, b)
		}
	})

	t.Run("skips configured paths", func(t *testing.T) {
		mw := NewLoggingMiddleware(newTestLogger(t), []string{"/health"})

		var seenID string
		handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenID = RequestIDFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if got := w.Header().Get("X-Request-ID"); got != "" {
			t.Errorf("expected no request ID on a skipped path, got '%s'", got)
		}
		if seenID != "" {
			t.Errorf("expected empty context ID on a skipped path, got '%s'", seenID)
		}
	})
}

func TestResponseWriterWrapper(t *testing.T) {
	t.Run("defaults to 200 on write", func(t *testing.T) {
		rec := httptest.NewRecorder()
		wrapped := &responseWriterWrapper{ResponseWriter: rec, statusCode: http.StatusOK}

		if _, err := wrapped.Write([]byte("hi")); err != nil {
			t.Fatalf("Write() returned error: %v", err)
		}

		if wrapped.statusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", wrapped.statusCode)
		}
		if wrapped.bytesWritten != 2 {
			t.Errorf("expected 2 bytes written, got %d", wrapped.bytesWritten)
		}
	})

	t.Run("keeps the first status code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		wrapped := &responseWriterWrapper{ResponseWriter: rec, statusCode: http.StatusOK}

		wrapped.WriteHeader(http.StatusNotFound)
		wrapped.WriteHeader(http.StatusInternalServerError)

		if wrapped.statusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", wrapped.statusCode)
		}
	})

	t.Run("counts bytes across writes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		wrapped := &responseWriterWrapper{ResponseWriter: rec, statusCode: http.StatusOK}

		wrapped.Write([]byte("hello "))
		wrapped.Write([]byte("world"))

		if wrapped.bytesWritten != 11 {
			t.Errorf("expected 11 bytes written, got %d", wrapped.bytesWritten)
		}
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{
			name:       "prefers X-Forwarded-For",
			remoteAddr: "192.168.1.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "10.0.0.1"},
			expected:   "10.0.0.1",
		},
		{
			name:       "takes the first forwarded hop",
			remoteAddr: "192.168.1.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"},
			expected:   "10.0.0.1",
		},
		{
			name:       "falls back to X-Real-IP",
			remoteAddr: "192.168.1.1:1234",
			headers:    map[string]string{"X-Real-IP": "10.0.0.3"},
			expected:   "10.0.0.3",
		},
		{
			name:       "falls back to the remote address",
			remoteAddr: "192.168.1.1:1234",
			expected:   "192.168.1.1:1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}

			if got := clientIP(req); got != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}
