package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
)

const requestIdHeader = "X-Request-Id"

type requestIdKey struct{}

// requestLog returns the default logger tagged with the request id, if any
func requestLog(ctx context.Context) *slog.Logger {
	if id, ok := ctx.Value(requestIdKey{}).(string); ok && id != "" {
		return slog.Default().With("request_id", id)
	}
	return slog.Default()
}

// logRequests assigns a request id and logs one line per handled request
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get(requestIdHeader)
		if requestId == "" {
			requestId = uuid.NewString()
		}
		w.Header().Set(requestIdHeader, requestId)
		r = r.WithContext(context.WithValue(r.Context(), requestIdKey{}, requestId))

		metrics := httpsnoop.CaptureMetrics(next, w, r)

		slog.Info("Handled request",
			"request_id", requestId,
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", metrics.Code,
			"bytes", metrics.Written,
			"duration", metrics.Duration,
		)
	})
}

// allowOrigins answers CORS preflights and tags responses for allowed origins.
// An empty list disables CORS entirely.
func allowOrigins(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", requestIdHeader}),
		handlers.ExposedHeaders([]string{requestIdHeader}),
		handlers.OptionStatusCode(http.StatusNoContent),
	)
}
