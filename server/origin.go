package server

import (
	"net/http"
)

// originValidationMiddleware rejects requests whose Origin header is set and
// not in allowed. Requests without Origin (curl, scripts) pass.
func originValidationMiddleware(allowed []string) Middleware {
	policy := &Cors{AllowOrigins: allowed}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || policy.Allows(origin) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "origin not allowed", http.StatusForbidden)
		})
	}
}
