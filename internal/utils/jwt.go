package utils // package utils provides token parsing helpers

import (
	"errors"

	"github.com/golang-jwt/jwt/v5" // JWT library for validating signed tokens
)

// ErrInvalidToken is returned when a token fails validation or carries no
// usable subject claim.
var ErrInvalidToken = errors.New("invalid token")

// ParseSubject validates an HS256 access token issued by the account
// service and returns its subject claim. This service never issues tokens;
// it only reads them to label connections with the authenticated user.
func ParseSubject(secret, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
