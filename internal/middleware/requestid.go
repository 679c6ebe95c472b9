package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"stashbot/internal/request"
)

// RequestIDHeader carries the request id on both request and response
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a request id to the context and echoes it on the
// response. An incoming header value is reused so ids can be traced
// across services.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.New().String()
			}

			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(request.WithRequestID(r.Context(), id)))
		})
	}
}
