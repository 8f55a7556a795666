package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/takraw/pkg/metrics"
)

// MetricsMiddleware records request count, latency and, for failed
// requests, the API error code under endpoint.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, float64(time.Since(start).Milliseconds()))
		if rec.status >= http.StatusBadRequest {
			metrics.RecordHTTPError(endpoint, r.Method, rec.errorCode(), severity(rec.status))
		}
	}
}

// severity buckets a failed status: rejected commands are routine during a
// live match, capacity and server faults are not.
func severity(status int) string {
	switch {
	case status >= http.StatusInternalServerError, status == http.StatusTooManyRequests:
		return "high"
	case status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return "low"
	default:
		return "medium"
	}
}

// statusRecorder captures the status and the error code written by writeFailure.
type statusRecorder struct {
	http.ResponseWriter
	status int
	code   string
}

func (rw *statusRecorder) errorCode() string {
	if rw.code != "" {
		return rw.code
	}
	if rw.status >= http.StatusInternalServerError {
		return "internal"
	}
	return "bad_request"
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
