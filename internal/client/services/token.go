package services

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenUsable reports whether a bearer token is still worth presenting to the
// server. Expiry is read from the JWT exp claim without verifying the
// signature; verification is the server's job. Tokens that do not parse as
// JWTs, or carry no expiry, are passed through and left for the server to
// judge.
func tokenUsable(token string, now time.Time) bool {
	if token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.After(now)
}
