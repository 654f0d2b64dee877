// Package middleware provides HTTP middleware for the ApexGPS API.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// requestIDKey is the context key for the request ID.
type requestIDKey struct{}

// maxInheritedIDLength caps request IDs taken from the inbound header so a
// hostile client cannot inflate every log line of its calculation.
const maxInheritedIDLength = 64

// RequestID generates a unique request ID and adds it to the request context.
// An inbound X-Request-Id is honored (truncated if oversized) so IDs survive
// the load balancer; the ID is echoed in the X-Request-Id response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if len(requestID) > maxInheritedIDLength {
			requestID = requestID[:maxInheritedIDLength]
		}
		if requestID == "" {
			requestID = "req_" + uuid.New().String()[:22]
		}

		w.Header().Set("X-Request-Id", requestID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
