package validation

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jandocs/core"
)

// ConnectivityResult represents the result of a connectivity check.
type ConnectivityResult struct {
	Reachable  bool
	StatusCode int
	Message    string
	Latency    time.Duration
	Error      error
}

// ConnectivityChecker provides methods to verify network connectivity.
// This is a molecule that composes URL validation with HTTP connectivity tests.
type ConnectivityChecker struct {
	timeout              time.Duration
	allowSelfSignedCerts bool
}

// NewConnectivityChecker creates a new ConnectivityChecker with default settings.
// Default timeout is 10 seconds.
func NewConnectivityChecker() *ConnectivityChecker {
	return &ConnectivityChecker{
		timeout:              10 * time.Second,
		allowSelfSignedCerts: false,
	}
}

// WithTimeout sets the timeout for connectivity checks.
func (c *ConnectivityChecker) WithTimeout(timeout time.Duration) *ConnectivityChecker {
	c.timeout = timeout
	return c
}

// WithAllowSelfSignedCerts configures whether to allow self-signed certificates.
func (c *ConnectivityChecker) WithAllowSelfSignedCerts(allow bool) *ConnectivityChecker {
	c.allowSelfSignedCerts = allow
	return c
}

// CheckEndpoint tests if a server is reachable by requesting the given URL.
// The URL format is validated first, then a network connection is attempted.
// Any HTTP response, including 4xx and 5xx, counts as reachable.
//
// Returns a ConnectivityResult with detailed information about the check.
func (c *ConnectivityChecker) CheckEndpoint(rawURL string) ConnectivityResult {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.CheckEndpointWithContext(ctx, rawURL)
}

// CheckEndpointWithContext tests endpoint reachability with a caller-supplied context.
func (c *ConnectivityChecker) CheckEndpointWithContext(ctx context.Context, rawURL string) ConnectivityResult {
	// Validate the URL format before touching the network
	if err := ValidateBaseURL(rawURL); err != nil {
		return ConnectivityResult{
			Reachable: false,
			Message:   "Invalid URL format",
			Error:     core.ErrInvalidEmbeddingsURL(rawURL, err.Error()),
		}
	}

	client := c.createHTTPClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ConnectivityResult{
			Reachable: false,
			Message:   "Failed to create request",
			Error:     core.ErrEmbeddingsUnreachable(rawURL, err.Error()),
		}
	}

	startTime := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(startTime)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ConnectivityResult{
				Reachable: false,
				Message:   "Connection timed out",
				Latency:   latency,
				Error:     core.ErrEmbeddingsUnreachable(rawURL, fmt.Sprintf("connection timed out after %v", c.timeout)),
			}
		}
		return ConnectivityResult{
			Reachable: false,
			Message:   "Connection failed",
			Latency:   latency,
			Error:     core.ErrEmbeddingsUnreachable(rawURL, err.Error()),
		}
	}
	defer resp.Body.Close()

	return ConnectivityResult{
		Reachable:  true,
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("Server reachable (status: %d)", resp.StatusCode),
		Latency:    latency,
	}
}

// CheckEmbeddingsConnectivity checks connectivity to the embeddings server
// configured via EMBEDDINGS_URL, probing its models listing endpoint.
func (c *ConnectivityChecker) CheckEmbeddingsConnectivity() ConnectivityResult {
	baseURL := envOrDefault("EMBEDDINGS_URL", "http://127.0.0.1:1337/v1")
	return c.CheckEndpoint(strings.TrimSuffix(baseURL, "/") + "/models")
}

// IsReachable is a convenience function to check if an endpoint is reachable.
func (c *ConnectivityChecker) IsReachable(rawURL string) bool {
	return c.CheckEndpoint(rawURL).Reachable
}

// createHTTPClient creates an HTTP client with the configured TLS settings.
func (c *ConnectivityChecker) createHTTPClient() *http.Client {
	client := &http.Client{
		Timeout: c.timeout,
	}

	if c.allowSelfSignedCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}
