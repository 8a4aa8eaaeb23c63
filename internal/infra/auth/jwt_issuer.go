// File: internal/infra/auth/jwt_issuer.go
package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pclink-backend/internal/domain/ports/adapter"
)

var _ adapter.TokenIssuer = (*JWTIssuer)(nil)

// JWTIssuer mints HS256 device tokens. It stands in for an external token
// issuer; minting can fail (key misconfiguration) and a failure never implies
// a token exists.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), ttl: ttl}
}

type deviceClaims struct {
	Extra map[string]any `json:"extra,omitempty"`
	jwt.RegisteredClaims
}

func (i *JWTIssuer) Mint(ctx context.Context, userID string, claims map[string]any) (string, error) {
	now := time.Now()
	c := deviceClaims{
		Extra: claims,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(i.secret)
}
