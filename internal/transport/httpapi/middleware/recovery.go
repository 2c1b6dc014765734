package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/ledgerlink/ledgerlink/pkg/logger"
)

// Recovery returns a panic recovery middleware. A panicking handler yields a
// generic 500 body; the panic value and stack go to the log only.
func Recovery(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("Panic recovered",
						"error", fmt.Sprintf("%v", rec),
						"path", r.URL.Path,
						"method", r.Method,
						"request_id", GetRequestID(r.Context()),
						"stack", string(debug.Stack()),
					)

					writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
