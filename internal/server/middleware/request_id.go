package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/arm1-investment-group/rentzone-site/internal/constants"
	"github.com/google/uuid"
)

type requestIDKey struct{}

// validRequestID bounds what an upstream may hand us; anything else is replaced
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// RequestIDMiddleware tags every request with an ID, reusing a well-formed
// X-Request-ID from the caller and minting a UUID otherwise. The ID is echoed
// in the response and stored in the request context.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(constants.HeaderXRequestID)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}

		w.Header().Set(constants.HeaderXRequestID, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the request ID, or "" outside a request
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
