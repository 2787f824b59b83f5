package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lorrc/reviewhub-realtime/internal/auth"
	"github.com/lorrc/reviewhub-realtime/internal/core/domain"
	apperrors "github.com/lorrc/reviewhub-realtime/internal/core/errors"
	"github.com/lorrc/reviewhub-realtime/internal/infrastructure/logging"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// UserClaimsKey is the key used to store user claims in the request context.
const UserClaimsKey contextKey = "userClaims"

// TokenQueryParam carries the token for clients that cannot set headers,
// such as the browser EventSource API.
const TokenQueryParam = "token"

// JWTMiddleware validates the JWT token from the Authorization header.
func JWTMiddleware(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return jwtMiddleware(tm, false)
}

// StreamJWTMiddleware is JWTMiddleware that also accepts ?token= when no
// Authorization header is present. Use it on long-lived stream routes only.
func StreamJWTMiddleware(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return jwtMiddleware(tm, true)
}

func jwtMiddleware(tm *auth.TokenManager, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, msg := extractToken(r, allowQuery)
			if tokenString == "" {
				writeAppError(w, apperrors.NewUnauthorizedError(msg))
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				writeAppError(w, apperrors.NewUnauthorizedError("Invalid or expired token"))
				return
			}

			// Add the claims to the context for downstream handlers to use.
			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			ctx = logging.WithUserID(ctx, claims.UserID)
			ctx = logging.WithRole(ctx, claims.Role.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request, allowQuery bool) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if allowQuery {
			if token := r.URL.Query().Get(TokenQueryParam); token != "" {
				return token, ""
			}
		}
		return "", "Authorization header is required"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "Authorization header format must be Bearer {token}"
	}
	return parts[1], ""
}

// GetClaims returns the authenticated claims stored by JWTMiddleware.
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// WithClaims stores claims in ctx. Handlers tests use it to skip token parsing.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, UserClaimsKey, claims)
}

// RequireRole rejects authenticated callers whose role is not in roles.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				writeAppError(w, apperrors.NewUnauthorizedError("Authentication required"))
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeAppError(w, apperrors.NewForbiddenError("You do not have permission to perform this action"))
		})
	}
}

// writeAppError renders err the way the HTTP ErrorHandler does. Middleware
// cannot depend on that package, so the body shape is repeated here.
func writeAppError(w http.ResponseWriter, err *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": err.Message,
		"code":  err.Code,
	})
}
