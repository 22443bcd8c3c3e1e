// Package token validates operator bearer tokens. Token issuance lives in
// the external identity system; this service only verifies HS256 signatures
// against the shared signing key.
package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"trailguard/internal/platform/middleware"
	dErrors "trailguard/pkg/domain-errors"
)

// Claims represents the JWT claims carried by operator access tokens.
type Claims struct {
	OperatorID string `json:"operator_id"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// Service handles JWT validation for the operator surface.
type Service struct {
	signingKey []byte
}

func NewService(signingKey string) *Service {
	return &Service{signingKey: []byte(signingKey)}
}

// ValidateToken implements middleware.JWTValidator.
func (s *Service) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return &middleware.JWTClaims{
		OperatorID: claims.OperatorID,
		Role:       claims.Role,
	}, nil
}
