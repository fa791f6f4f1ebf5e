package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/labhub-api/internal/models"
	"github.com/noah-isme/labhub-api/pkg/config"
	appErrors "github.com/noah-isme/labhub-api/pkg/errors"
)

// TokenService verifies session tokens issued by the identity service.
// This API never mints tokens; it only checks signatures and registered
// claims on what the identity service produced.
type TokenService struct {
	cfg config.JWTConfig
}

// NewTokenService constructs the verifier.
func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{cfg: cfg}
}

// Verify parses and validates a token, returning its claims.
func (s *TokenService) Verify(tokenString string) (*models.JWTClaims, error) {
	options := []jwt.ParserOption{}
	if s.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.cfg.Issuer))
	}
	if len(s.cfg.Audience) > 0 {
		options = append(options, jwt.WithAudience(s.cfg.Audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, options...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}
