package utils

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the acting worker as seen by the ledger and audit log
type Identity struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// GenerateIdentityToken signs an identity for scanner devices. Issuing tokens
// belongs to the login service; this exists for devices provisioned by hand
// and for tests.
func GenerateIdentityToken(id Identity, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("empty signing secret")
	}
	claims := jwt.MapClaims{
		"username": id.Username,
		"name":     id.Name,
		"exp":      time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and validates a token
func ValidateToken(tokenString string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// IdentityFromClaims reads the username/name claims
func IdentityFromClaims(claims jwt.MapClaims) Identity {
	var id Identity
	if v, ok := claims["username"].(string); ok {
		id.Username = v
	}
	if v, ok := claims["name"].(string); ok {
		id.Name = v
	}
	return id
}

type identityKey struct{}

// WithIdentity stores the acting worker on the context
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the acting worker, zero when anonymous
func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}
