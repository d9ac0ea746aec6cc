package testutil

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "storefront/pkg/domain"
)

// TestIDs provides deterministic identifiers for tests.
var TestIDs = struct {
	UserID1     id.UserID
	UserID2     id.UserID
	CartItemID1 id.CartItemID
	CartItemID2 id.CartItemID
	CartItemID3 id.CartItemID
	ProductID1  id.ProductID
	ProductID2  id.ProductID
	ProductID3  id.ProductID
}{
	UserID1:     "42",
	UserID2:     "77",
	CartItemID1: 101,
	CartItemID2: 102,
	CartItemID3: 103,
	ProductID1:  9001,
	ProductID2:  9002,
	ProductID3:  9003,
}

var fixtureSigningKey = []byte("storefront-test-signing-key")

// TokenExpiringAt returns an HS256 bearer token for subject whose exp claim is
// exp. The storefront never verifies signatures, so the key is arbitrary.
func TokenExpiringAt(subject string, exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString(fixtureSigningKey)
	if err != nil {
		panic(err)
	}
	return signed
}

// TokenWithoutExpiry returns a signed token that carries no exp claim.
func TokenWithoutExpiry(subject string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: subject})
	signed, err := token.SignedString(fixtureSigningKey)
	if err != nil {
		panic(err)
	}
	return signed
}
