package middleware

import (
	"net/http"
	"runtime/debug"

	"ajopay/pkg/logger"
)

var securityHeaders = map[string]string{
	"Strict-Transport-Security":         "max-age=63072000; includeSubDomains; preload",
	"Content-Security-Policy":           "default-src 'none'; frame-ancestors 'none'; base-uri 'none'",
	"X-Content-Type-Options":            "nosniff",
	"X-Frame-Options":                   "DENY",
	"Referrer-Policy":                   "no-referrer",
	"Permissions-Policy":                "geolocation=(), microphone=(), camera=(), payment=()",
	"X-Permitted-Cross-Domain-Policies": "none",
	"Cross-Origin-Opener-Policy":        "same-origin",
	"Cache-Control":                     "no-store, max-age=0",
}

// SecurityHeaders applies the standard hardening headers to every response.
// The API serves JSON only, so the CSP denies everything.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name, value := range securityHeaders {
			w.Header().Set(name, value)
		}
		next.ServeHTTP(w, r)
	})
}

// BodyLimit caps the size of request bodies at n bytes.
func BodyLimit(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewRecovery converts panics into 500 responses and logs the stack.
func NewRecovery(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					fields := map[string]interface{}{
						"panic": rec,
						"path":  r.URL.Path,
						"stack": string(debug.Stack()),
					}
					if reqID, ok := RequestIDFromContext(r.Context()); ok {
						fields["request_id"] = reqID
					}
					log.Error("panic recovered", fields)
					jsonError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
