package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/arm1-investment-group/rentzone-site/internal/constants"
)

// RequestSizeLimitMiddleware rejects declared bodies over maxRequestSize and
// caps undeclared (chunked) ones at the same size. GET and HEAD are never
// rejected up front since their handlers ignore the body; reads are still capped.
func RequestSizeLimitMiddleware(maxRequestSize int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxRequestSize <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > maxRequestSize && !bodyIgnored(r.Method) {
				w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   constants.ErrorCodeRequestTooLarge,
					"message": fmt.Sprintf("Request body too large, max size: %d bytes", maxRequestSize),
				})
				return
			}

			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bodyIgnored(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}
