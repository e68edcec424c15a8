package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/peerlink/backend/internal/auth"
	"github.com/peerlink/backend/pkg/response"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	EmailKey  contextKey = "email"

	userSlotKey contextKey = "user_slot"
)

// AuthMiddleware authenticates the bearer token with the configured verifier
func AuthMiddleware(verifier auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				response.Unauthorized(w, "missing or malformed authorization header")
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					response.Unauthorized(w, "token has expired")
					return
				}
				response.Unauthorized(w, "invalid token")
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken reads the Authorization header, falling back to the token query
// parameter for WebSocket clients that cannot set headers.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if t := r.URL.Query().Get("token"); t != "" {
			return t, true
		}
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// WithIdentity stores the caller in ctx
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	if slot, ok := ctx.Value(userSlotKey).(*string); ok {
		*slot = identity.UserID
	}
	ctx = context.WithValue(ctx, UserIDKey, identity.UserID)
	return context.WithValue(ctx, EmailKey, identity.Email)
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// GetEmail extracts email from context
func GetEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	return email, ok
}
