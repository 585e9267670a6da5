package middleware

import (
	"fmt"
	"net/http"
)

// cacheWriter defers the Cache-Control header until the status is known so
// error responses are never marked cacheable.
type cacheWriter struct {
	http.ResponseWriter
	headerValue string
	wroteHeader bool
}

func (cw *cacheWriter) WriteHeader(status int) {
	if !cw.wroteHeader {
		cw.wroteHeader = true
		if status >= 200 && status < 300 {
			cw.Header().Set("Cache-Control", cw.headerValue)
		}
	}
	cw.ResponseWriter.WriteHeader(status)
}

func (cw *cacheWriter) Write(b []byte) (int, error) {
	if !cw.wroteHeader {
		cw.WriteHeader(http.StatusOK)
	}
	return cw.ResponseWriter.Write(b)
}

// CacheControl returns a middleware that marks successful GET responses
// publicly cacheable for maxAge seconds.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	headerValue := fmt.Sprintf("public, max-age=%d", maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(&cacheWriter{ResponseWriter: w, headerValue: headerValue}, r)
		})
	}
}
