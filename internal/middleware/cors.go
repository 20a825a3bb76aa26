// Package middleware provides HTTP middleware for the intake API.
package middleware

import (
	"net/http"
	"strconv"
	"time"
)

const (
	corsMethods = "GET, POST, OPTIONS"
	corsHeaders = "Content-Type, X-Intake-User-ID"
	// The chat client preflights every POST; cache the answer.
	corsMaxAge = 10 * time.Minute
)

// CORS returns middleware that lets the listed origins call the chat API.
// "*" allows any origin, but credentials are only granted to origins listed
// explicitly. Preflight requests are answered without reaching next.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	explicit := make(map[string]bool, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		explicit[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")

			allowed := origin != "" && (wildcard || explicit[origin])
			if allowed {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				// A credentialed wildcard would let any site act as the student.
				if explicit[origin] {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if !allowed {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				h := w.Header()
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				h.Set("Access-Control-Max-Age", strconv.Itoa(int(corsMaxAge.Seconds())))
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
