package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"activitylog/internal/adapters/http/perf"
	"activitylog/internal/adapters/observability"
)

// DefaultSlowRequest is the default threshold for slow request warnings.
const DefaultSlowRequest = 200 * time.Millisecond

// requestIDCounter is an atomic counter for request IDs.
var requestIDCounter atomic.Uint64

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

// WriteHeader captures the status code and delegates to the underlying ResponseWriter.
// POST: first status stored, header written to underlying ResponseWriter
func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

// Write marks the implicit 200 before delegating.
func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.wroteHeader = true
	return sw.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

var statusWriterPool = sync.Pool{
	New: func() any {
		return &statusWriter{}
	},
}

// Timing returns middleware that logs request duration and exports it to prometheus.
// Normal requests log at DEBUG; requests at or above threshold log at WARN. /metrics and
// /healthz are not logged. collector may be nil.
func Timing(collector *perf.Collector, threshold time.Duration) func(http.Handler) http.Handler {
	if threshold <= 0 {
		threshold = DefaultSlowRequest
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "/metrics" || path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			reqID := requestIDCounter.Add(1)

			sw := statusWriterPool.Get().(*statusWriter)
			sw.ResponseWriter = w
			sw.status = http.StatusOK
			sw.wroteHeader = false
			defer func() {
				elapsed := time.Since(start)
				attrs := []any{
					"request_id", reqID,
					"method", r.Method,
					"path", path,
					"status", sw.status,
					"duration_ms", float64(elapsed.Microseconds()) / 1000.0,
				}
				if elapsed >= threshold {
					slog.Warn("slow_request", attrs...)
				} else {
					slog.Debug("request", attrs...)
				}

				observability.ObserveRequest(r.Method, sw.status, elapsed)
				if collector != nil {
					collector.RecordRequest(r.Method, path, sw.status, elapsed)
				}

				sw.ResponseWriter = nil
				statusWriterPool.Put(sw)
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
