package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"frame-viewer/internal/logging"
)

// slowRequest flags API calls that block the viewer, like a frame render
// that missed the cache. Multipart streams are exempt.
const slowRequest = 500 * time.Millisecond

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	SkipPaths       []string
	LogHealthChecks bool
}

// DefaultLoggingConfig logs everything except /metrics scrapes and probes.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{SkipPaths: []string{"/metrics"}}
}

func (c LoggingConfig) filter() pathFilter {
	f := pathFilter{prefixes: c.SkipPaths}
	if !c.LogHealthChecks {
		f.exact = probePaths
	}
	return f
}

// Logger returns HTTP access logging middleware. One info line is written
// per request; non-streaming requests slower than slowRequest are also
// flagged at warn.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	filter := config.filter()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if filter.skip(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := newRecorder(w)
			next.ServeHTTP(rec, r)
			logRequest(r, rec, time.Since(start))
		})
	}
}

func logRequest(r *http.Request, rec *recorder, took time.Duration) {
	method := sanitizeLogField(r.Method)
	path := sanitizeLogField(r.URL.Path)
	query := sanitizeLogField(r.URL.RawQuery)
	if query == "" {
		query = "-"
	}

	logging.Info("http %s %s %s status=%d bytes=%d took=%v client=%s",
		method, path, query, rec.status, rec.written,
		took.Round(time.Microsecond), sanitizeLogField(getClientIP(r)))

	if took > slowRequest && !rec.streaming() {
		logging.Warn("slow request: %s %s (route %s) took %v", method, path, routeLabel(r), took)
	}
}

// sanitizeLogField strips control characters from client-supplied values so
// a request cannot forge extra log lines. Newlines become spaces; tabs stay.
func sanitizeLogField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
