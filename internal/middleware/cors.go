package middleware

import (
	"net/http"
	"slices"
	"strings"
)

const corsAllowedHeaders = "Content-Type, Authorization, " + RequestIDHeader

// CORS lets the dashboard read the API from another origin. A single "*"
// allows any origin. Only true preflights, which carry
// Access-Control-Request-Method, are answered here.
func CORS(allowedOrigins, allowedMethods []string) func(http.Handler) http.Handler {
	anyOrigin := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"
	methods := strings.Join(allowedMethods, ",")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()

			switch {
			case anyOrigin:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(allowedOrigins, origin):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			default:
				h.Add("Vary", "Origin")
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Expose-Headers", RequestIDHeader)

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			h.Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
