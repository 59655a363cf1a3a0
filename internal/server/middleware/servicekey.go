package middleware

import (
	"crypto/subtle"
	"net/http"
)

// ServiceKeyHeader carries the shared secret of the host application.
const ServiceKeyHeader = "X-Beacon-Key"

// ServiceKey admits only requests carrying the configured shared secret.
func ServiceKey(key string) func(http.Handler) http.Handler {
	want := []byte(key)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(ServiceKeyHeader))
			if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
				http.Error(w, `{"title":"Unauthorized","status":401,"detail":"invalid service key"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
