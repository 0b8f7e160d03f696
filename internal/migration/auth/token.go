package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "hrmigrate"

// GenerateToken issues a signed HS256 bearer token for the given user,
// valid for 24 hours. The middleware only verifies signature and expiry;
// the issuer claim identifies this service in downstream logs.
func GenerateToken(userID string, secret string) (string, error) {
	claims := jwt.MapClaims{
		"iss": issuer,
		"sub": userID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
