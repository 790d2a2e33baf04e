package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/pipekit/logger"
)

// quietPaths are probed often enough that logging them is noise.
var quietPaths = map[string]bool{
	"/health":  true,
	"/version": true,
}

// RequestLogger returns middleware that logs every request with method,
// path, status code, and duration. Health probes are skipped.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			fields := logger.DurationFields(r.Method+" "+r.URL.Path, time.Since(start))
			fields[logger.FieldStatus] = sw.status
			if id := RequestIDFromContext(r.Context()); id != "" {
				fields[logger.FieldRequestID] = id
			}
			logByStatus(log, fields, sw.status)
		})
	}
}

func logByStatus(log *logger.Logger, fields map[string]any, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
