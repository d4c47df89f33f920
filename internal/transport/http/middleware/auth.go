package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"lumagram/internal/auth"
	"lumagram/internal/httputil"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey contextKey = "user_id"
)

// Token API error codes (used in HTTP responses)
const (
	CodeTokenMissing = "TOKEN_MISSING"
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeTokenExpired = "TOKEN_EXPIRED"
)

// TokenVerifier verifies a raw bearer token and returns the caller's user id.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// extractBearer pulls the token out of an "Authorization: Bearer <token>" header.
func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// RequireAuth validates the bearer token and puts the resolved user id into
// the request context. It trusts the token's claims and performs no database
// lookup.
//
// Status contract: a missing token is 401, a present-but-invalid token is
// 403. The asymmetry is deliberate and documented API behavior.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractBearer(r)
			if tokenString == "" {
				httputil.WriteUnauthorizedWithCode(w, CodeTokenMissing, "Missing authentication token")
				return
			}

			userID, err := verifier.Verify(tokenString)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					httputil.WriteForbiddenWithCode(w, CodeTokenExpired, "Access token has expired")
					return
				}
				httputil.WriteForbiddenWithCode(w, CodeTokenInvalid, "Invalid authentication token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves the user id when a valid token is present and
// proceeds unauthenticated otherwise. Used on public endpoints that enrich
// responses for logged-in viewers (is_following, is_liked).
func OptionalAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractBearer(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := verifier.Verify(tokenString)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the user ID from the request context
// Returns the user ID and true if found, or 0 and false if not found
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}
