package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"schoolpay/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with an ID for log correlation, honoring one
// supplied by the caller.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
