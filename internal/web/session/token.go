package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenUsable reports whether an access token is worth sending upstream.
// When the token is a JWT, a passed exp claim means the API would reject it
// anyway, so the holder is treated as unauthenticated without a round trip.
// Opaque tokens can't be inspected and count as usable; the API stays the
// sole authority on signatures and revocation either way.
func TokenUsable(token string) bool {
	if token == "" {
		return false
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		// Not a JWT. Presence is all we can check.
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.After(time.Now())
}
