package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "schoolpay/pkg/domain-errors"
	"schoolpay/pkg/platform/httputil"
	"schoolpay/pkg/requestcontext"

	id "schoolpay/pkg/domain"
)

// TokenClaims are the identity facts middleware extracts from a bearer token.
type TokenClaims struct {
	UserID id.UserID
	Role   string
}

// TokenValidator validates a signed bearer token.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// RequireAuth rejects requests without a valid bearer token and stashes the
// authenticated identity in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx = requestcontext.WithUserID(ctx, claims.UserID)
			ctx = requestcontext.WithUserRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a subtree on the authenticated user's role. Must run
// after RequireAuth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return RequireAnyRole(role)
}

// RequireAnyRole gates a subtree on any of the given roles. Must run after
// RequireAuth.
func RequireAnyRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed[requestcontext.UserRole(r.Context())] {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient privileges"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
