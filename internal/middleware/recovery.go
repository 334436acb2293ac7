package middleware

import (
	"net/http"
	"runtime/debug"

	"FloodMonitorAPI/internal/logger"
	"FloodMonitorAPI/internal/metrics"
)

// Recovery turns a handler panic into a 500. The client only sees the request
// ID; the panic value and stack stay in the log under the same ID.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				route := routeTemplate(r)
				metrics.HTTPPanics.WithLabelValues(r.Method, route).Inc()
				log.Error("PANIC [%s] %s %s: %v\n%s", GetRequestID(r.Context()), r.Method, route, err, debug.Stack())

				writeError(w, r, http.StatusInternalServerError, "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
