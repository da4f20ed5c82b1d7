package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/NickolasKemp/ordify/internal/domain"
)

type contextKey string

const (
	contextKeyRequestID   contextKey = "request_id"
	contextKeyClientToken contextKey = "client_token"
	contextKeyRole        contextKey = "role"
	contextKeyUser        contextKey = "user"
)

const headerClientToken = "x-client-token"

// AttachMetadata copies the request id and the client token header into
// typed context values for handlers and logs.
func AttachMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), contextKeyRequestID, middleware.GetReqID(r.Context()))
		ctx = context.WithValue(ctx, contextKeyClientToken, r.Header.Get(headerClientToken))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionResolver resolves a bearer access token to a user and a role.
type SessionResolver interface {
	Session(ctx context.Context, accessToken string) (*domain.User, error)
	Role(ctx context.Context, accessToken string) domain.Role
}

// ResolveSession derives the caller's role from the Authorization header.
// An absent or invalid token is a browsing customer, not an error.
func ResolveSession(auth SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			ctx := context.WithValue(r.Context(), contextKeyRole, auth.Role(r.Context(), token))
			if token != "" {
				if user, err := auth.Session(r.Context(), token); err == nil {
					ctx = context.WithValue(ctx, contextKeyUser, user)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole denies the request unless the resolved role matches.
// Missing sessions are 401, wrong role is 403.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := r.Context().Value(contextKeyRole).(domain.Role)
			if !ok || got == domain.RoleCustomer {
				writeError(w, http.StatusUnauthorized, "unauthorized", "a valid session is required")
				return
			}
			if got != role {
				writeError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

func clientToken(r *http.Request) string {
	if token, ok := r.Context().Value(contextKeyClientToken).(string); ok && token != "" {
		return token
	}
	return r.Header.Get(headerClientToken)
}

// refreshCookie carries the refresh token between login and refresh for
// browser callers; API callers send it in the body instead.
const refreshCookie = "refreshToken"

func setRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Path:     "/auth",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
