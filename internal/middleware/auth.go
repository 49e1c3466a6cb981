package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKey guards caller-facing routes with the shared x-api-key header.
// Comparison is constant time so the key cannot be probed byte by byte.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("x-api-key")
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				denyUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// InternalToken guards the finalize callback route with the x-internal-token
// header shared between the API and the worker. Caller API keys do not work
// here and the internal token does not open caller routes.
func InternalToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("x-internal-token")
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				denyUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func denyUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
}
