package httpadapter

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

type requestIDContextKey struct{}

func requestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey{}).(string)
	return requestID
}

// observeRequests tags every request with an id (minted unless the client
// sent one) and writes one access-log line when the handler returns. The line
// carries the path verbatim; aggregation happens on the metrics side.
func observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		r = r.WithContext(context.WithValue(r.Context(), requestIDContextKey{}, requestID))
		w.Header().Set(requestIDHeader, requestID)

		tracker := &responseTracker{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(tracker, r)

		logRequest(r, requestID, tracker, time.Since(start))
	})
}

func logRequest(r *http.Request, requestID string, tracker *responseTracker, elapsed time.Duration) {
	attrs := []any{
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"status", tracker.status,
		"duration_ms", float64(elapsed.Microseconds()) / 1000.0,
		"bytes", tracker.written,
		"remote_addr", clientIP(r),
	}
	if ua := r.UserAgent(); ua != "" {
		attrs = append(attrs, "user_agent", ua)
	}

	switch {
	case tracker.status >= 500:
		slog.Error("request_completed", attrs...)
	case tracker.status >= 400:
		slog.Warn("request_completed", attrs...)
	default:
		slog.Info("request_completed", attrs...)
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type responseTracker struct {
	http.ResponseWriter
	status  int
	written int
}

func (t *responseTracker) WriteHeader(status int) {
	t.status = status
	t.ResponseWriter.WriteHeader(status)
}

func (t *responseTracker) Write(b []byte) (int, error) {
	n, err := t.ResponseWriter.Write(b)
	t.written += n
	return n, err
}

func (t *responseTracker) Flush() {
	if flusher, ok := t.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (t *responseTracker) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := t.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
