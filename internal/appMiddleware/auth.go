package appMiddleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"WorkBridge/server/internal/auth"

	"github.com/samber/lo"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller as established by the auth middleware.
// Handlers trust it unconditionally.
type Identity struct {
	UserID   int
	UserType string
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

// Auth validates the Bearer access token and puts the caller's identity into
// the request context.
func Auth(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Missing token", http.StatusUnauthorized)
				return
			}

			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenStr == authHeader {
				log.Printf("Invalid Authorization header format")
				http.Error(w, "Invalid token format", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Parse(tokenStr, auth.TokenTypeAccess)
			if err != nil {
				log.Printf("Invalid token: %v", err)
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, Identity{
				UserID:   claims.UserID,
				UserType: claims.UserType,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUserType gates a route on the caller's role. It must run after Auth.
func RequireUserType(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !lo.Contains(allowed, identity.UserType) {
				http.Error(w, "Access denied for this user type", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
