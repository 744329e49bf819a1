// Package middleware provides the HTTP middleware used by the optional
// stats server (§4.9): panic recovery, request timeout, request logging and
// Prometheus request metrics.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/nogcio/wrkr/infrastructure/httputil"
	"github.com/nogcio/wrkr/infrastructure/logging"
)

// Recovery recovers from panics in downstream handlers and logs them with a
// stack trace instead of crashing the stats server, which must never take
// down the run it is reporting on.
func Recovery(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.WithContext(r.Context()).WithFields(map[string]interface{}{
						"panic":  fmt.Sprintf("%v", rec),
						"stack":  string(debug.Stack()),
						"path":   r.URL.Path,
						"method": r.Method,
					}).Error("panic recovered in stats server")
					httputil.WriteErrorResponse(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
