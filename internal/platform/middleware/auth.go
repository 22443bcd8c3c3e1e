package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"trailguard/pkg/platform/httputil"
	"trailguard/pkg/requestcontext"

	dErrors "trailguard/pkg/domain-errors"
)

// JWTValidator defines the interface for validating operator bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	OperatorID string
	Role       string
}

// RequireAuth rejects requests without a valid operator bearer token and
// stores the operator identity in the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "token validation failed",
					"request_id", requestcontext.RequestID(ctx),
					"error", err.Error(),
				)
				httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
				return
			}

			ctx = requestcontext.WithOperatorID(ctx, claims.OperatorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
