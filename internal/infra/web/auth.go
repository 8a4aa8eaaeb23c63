package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ===== Caller identity extraction =====

// Identity is the authenticated caller as carried by its bearer token.
type Identity struct {
	UserID    string
	Email     string
	Anonymous bool
}

type callerClaims struct {
	Email     string `json:"email,omitempty"`
	Anonymous bool   `json:"anonymous,omitempty"`
	jwt.RegisteredClaims
}

// AuthManager verifies caller bearer tokens (HS256, shared secret).
type AuthManager struct {
	secret []byte
}

func NewAuthManager(secret string) *AuthManager {
	return &AuthManager{secret: []byte(secret)}
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*Identity, error) {
	hdr := r.Header.Get("Authorization")
	if hdr == "" || !strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
		return nil, errors.New("missing token")
	}
	return a.parse(strings.TrimSpace(hdr[7:]))
}

func (a *AuthManager) parse(tok string) (*Identity, error) {
	claims := &callerClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return &Identity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Anonymous: claims.Anonymous,
	}, nil
}

type identityKey struct{}

func withIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func identityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
