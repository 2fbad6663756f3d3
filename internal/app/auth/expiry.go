package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dkeye/castlink/internal/domain"
)

// TokenExpiry reads the exp claim without verifying the signature; the
// service is the only party that can verify it. ok is false for opaque
// or exp-less tokens.
func TokenExpiry(t domain.Token) (time.Time, bool) {
	if t.Empty() {
		return time.Time{}, false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(t.Token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
