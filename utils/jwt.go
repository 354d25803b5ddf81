package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Claims is the payload the external identity provider is expected to
// have signed; the admission controller only verifies it, it never
// issues one on the core's own behalf.
type Claims struct {
	UserExternalID string `json:"sub"`
	Email          string `json:"email"`
	DisplayName    string `json:"name"`
	jwt.RegisteredClaims
}

// VerifyToken parses and validates a bearer token against secret. It
// is the entirety of the core's authentication surface: it consumes
// the identity provider's verdict, it does not produce one.
func VerifyToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserExternalID == "" {
		return nil, errors.New("token missing subject")
	}
	return claims, nil
}

// GenerateTestToken signs a token with the given secret; it exists
// purely so tests and local development can mint a principal without
// standing up a real identity provider.
func GenerateTestToken(secret, externalID, email, displayName string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserExternalID: externalID,
		Email:          email,
		DisplayName:    displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
