package identity

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Sabit205/chat-app-serve/internal/models"
	"github.com/Sabit205/chat-app-serve/internal/repositories"
)

var ErrInvalidCredential = errors.New("invalid credential")

// Resolver maps an opaque credential to a verified user identity.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (models.User, error)
}

// Claims is the JWT payload issued by the auth service.
type Claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenResolver validates an HS256 JWT and loads the user it names.
// Any parse, signature, expiry or lookup failure resolves to
// ErrInvalidCredential; the caller is expected to fail closed.
type TokenResolver struct {
	secret []byte
	users  repositories.UserRepository
}

// NewTokenResolver constructs a TokenResolver.
func NewTokenResolver(secret string, users repositories.UserRepository) *TokenResolver {
	return &TokenResolver{secret: []byte(secret), users: users}
}

// Resolve implements Resolver.
func (r *TokenResolver) Resolve(ctx context.Context, credential string) (models.User, error) {
	if credential == "" {
		return models.User{}, ErrInvalidCredential
	}

	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCredential
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return models.User{}, ErrInvalidCredential
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == 0 {
		return models.User{}, ErrInvalidCredential
	}

	user, err := r.users.GetUser(ctx, claims.UserID)
	if err != nil {
		return models.User{}, ErrInvalidCredential
	}
	return user, nil
}
