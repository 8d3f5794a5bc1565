package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKeyType string

const identityKey contextKeyType = "identity"

// AccessTokenCookie is the cookie carrying the access token for browser
// clients.
const AccessTokenCookie = "accessToken"

// Identity is the authenticated account attached to a request.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// IdentityResolver resolves an access token into the account it belongs to.
// This lets the service inject its own validation and lookup logic.
type IdentityResolver func(ctx context.Context, token string) (*Identity, error)

// TokenFromRequest extracts the access token. The accessToken cookie wins
// over the Authorization header when both are present.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// Auth middleware rejects requests without a resolvable access token and
// injects the identity into context.
func Auth(resolve IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				writeAuthError(w, "missing access token")
				return
			}

			identity, err := resolve(r.Context(), token)
			if err != nil {
				writeAuthError(w, "invalid or expired access token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalAuth attaches an identity when a valid token is present and lets
// the request through anonymously otherwise.
func OptionalAuth(resolve IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := TokenFromRequest(r); token != "" {
				if identity, err := resolve(r.Context(), token); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), identity))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext extracts the authenticated identity, or nil for
// anonymous requests.
func IdentityFromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey).(*Identity); ok {
		return id
	}
	return nil
}

// UserIDFromContext extracts the authenticated user ID from the request
// context, or "" when anonymous.
func UserIDFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.UserID
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "UNAUTHENTICATED",
			"message": message,
		},
	})
}
