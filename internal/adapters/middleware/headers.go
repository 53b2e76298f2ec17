package middleware

import (
	"net/http"
)

// ResponseHeaders stamps the API version and the baseline security headers on every response.
type ResponseHeaders struct {
	version string
}

func NewResponseHeadersMiddleware(version string) ResponseHeaders {
	return ResponseHeaders{
		version: version,
	}
}

func (mw ResponseHeaders) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("API-Version", mw.version)
		header.Set("X-Content-Type-Options", "nosniff")
		header.Set("X-Frame-Options", "DENY")
		header.Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}
