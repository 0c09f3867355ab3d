// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/frc-emotion/nautilus-backend/internal/domain/model"
	"github.com/frc-emotion/nautilus-backend/pkg/metrics"
)

// roleHeader names the header the authenticating proxy sets after verifying
// the caller's token. Token issuance itself is outside this service.
const roleHeader = "X-Role"

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Milliseconds())
		metrics.RecordHTTPRequest(endpoint, r.Method, strconv.Itoa(wrapped.statusCode))
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, durationMs)
	}
}

// RequireRole rejects requests whose caller role is below min. Roles are
// explicit request parameters here; the core never reads ambient identity.
func RequireRole(min model.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := model.Role(r.Header.Get(roleHeader))
		if !role.AtLeast(min) {
			writeError(w, http.StatusForbidden, "forbidden", NewKind("api.role", ErrForbidden))
			return
		}
		next.ServeHTTP(w, r)
	}
}

// callerRole returns the verified role header value.
func callerRole(r *http.Request) model.Role {
	return model.Role(r.Header.Get(roleHeader))
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
