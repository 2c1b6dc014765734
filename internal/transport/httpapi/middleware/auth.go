package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ledgerlink/ledgerlink/internal/apikey"
	"github.com/ledgerlink/ledgerlink/internal/shared/apperr"
	"github.com/ledgerlink/ledgerlink/pkg/logger"
)

// Authenticator resolves a raw API key to the caller's auth context.
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*apikey.AuthContext, error)
}

// ContextKey is the type for context keys
type ContextKey string

// AuthContextKey is the context key for the authenticated caller.
const AuthContextKey ContextKey = "auth_context"

// APIKeyHeader is the primary header carrying the API key.
const APIKeyHeader = "X-Api-Key"

// extractAPIKey pulls the raw key from X-Api-Key, falling back to a bearer
// token in the Authorization header.
func extractAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		return key
	}

	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}

	return ""
}

// APIKeyAuth creates a middleware that authenticates every request with an
// API key. The resolved auth context lands in the request context; the tenant
// ID also lands in the logging context so all downstream log lines carry it.
func APIKeyAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := auth.Authenticate(r.Context(), extractAPIKey(r))
			if err != nil {
				if appErr, ok := apperr.As(err); ok && appErr.Code == apperr.CodeUnauthorized {
					writeError(w, http.StatusUnauthorized, apperr.CodeUnauthorized, appErr.Message)
					return
				}
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), AuthContextKey, ac)
			ctx = context.WithValue(ctx, logger.TenantIDKey, ac.TenantID.String())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose auth context is not an admin. It must
// run below APIKeyAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := AuthFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, apperr.CodeUnauthorized, "API key is required")
			return
		}
		if ac.Role != apikey.RoleAdmin {
			writeError(w, http.StatusForbidden, apperr.CodeForbidden, "Admin role required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AuthFromContext extracts the authenticated caller from the request context.
func AuthFromContext(ctx context.Context) (*apikey.AuthContext, bool) {
	ac, ok := ctx.Value(AuthContextKey).(*apikey.AuthContext)
	return ac, ok
}

// WithAuthContext returns a context carrying the given auth context. Intended
// for tests and internal calls that bypass the HTTP middleware.
func WithAuthContext(ctx context.Context, ac *apikey.AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, ac)
}
