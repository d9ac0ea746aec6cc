package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "storefront/pkg/domain-errors"
)

// TokenExpiry reads the exp claim of a bearer token without verifying its
// signature. The backend owns the signing keys and verifies on every call;
// the storefront only needs to know when to sign the shopper out.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "token is not a decodable JWT")
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "token has no exp claim")
	}
	return claims.ExpiresAt.Time.UTC(), nil
}
