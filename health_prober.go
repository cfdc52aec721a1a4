package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HealthProber decides whether an OCR service is worth calling
type HealthProber interface {
	IsHealthy(ctx context.Context, target string) bool
}

// HttpHealthProber issues GET <root>/health with a short timeout
type HttpHealthProber struct {
	timeout    time.Duration
	httpClient *http.Client
}

func NewHttpHealthProber(timeout time.Duration) *HttpHealthProber {
	return &HttpHealthProber{
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// RootURL derives the service root from an extraction URL by dropping a
// trailing /extract and anything from the first /api path segment onwards.
func RootURL(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		// not an absolute URL, work on the raw string
		root := strings.TrimSuffix(target, "/extract")
		if i := strings.Index(root, "/api"); i >= 0 {
			root = root[:i]
		}
		return strings.TrimSuffix(root, "/")
	}

	path := strings.TrimSuffix(u.Path, "/extract")
	if i := strings.Index(path, "/api"); i >= 0 {
		path = path[:i]
	}
	u.Path = strings.TrimSuffix(path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// IsHealthy reports true only when the health endpoint answers 2xx in time
func (p *HttpHealthProber) IsHealthy(ctx context.Context, target string) bool {
	healthURL := RootURL(target) + "/health"

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		slog.Warn("Failed to create health check request", "url", healthURL, "error", err)
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		slog.Warn("OCR service health check failed", "url", healthURL, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("OCR service reported unhealthy", "url", healthURL, "status_code", resp.StatusCode)
		return false
	}

	slog.Debug("OCR service health check passed", "url", healthURL)
	return true
}
