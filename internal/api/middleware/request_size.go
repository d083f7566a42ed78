package middleware

import "net/http"

// DefaultMaxBodySize caps JSON and form bodies outside the upload route.
const DefaultMaxBodySize int64 = 1 << 20

// multipartOverhead leaves room for boundaries and part headers on uploads.
const multipartOverhead int64 = 64 << 10

// RequestSize wraps the body in http.MaxBytesReader. Handlers detect
// the overflow through *http.MaxBytesError.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UploadRequestSize allows a file of maxFile bytes plus multipart framing.
func UploadRequestSize(maxFile int64) func(http.Handler) http.Handler {
	return RequestSize(maxFile + multipartOverhead)
}
