package middleware

import (
	"net/http"
	"time"

	"github.com/nogcio/wrkr/infrastructure/logging"
)

// Logging logs every stats-server request at debug level; this is a debug
// surface, not the run's own output (see internal/output), so it never
// writes to stdout.
func Logging(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			logger.WithContext(r.Context()).WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": wrapped.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
			}).Debug("stats server request")
		})
	}
}
