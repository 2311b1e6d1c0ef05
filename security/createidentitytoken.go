package security

import (
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TimedockIdentity struct {
	Id        int
	UserName  string
	CompanyID string
	Email     string
}

// IdentityClaims includes Identity and standard JWT claims

type Identity struct {
	ID         int    `json:"nameid"`
	UniqueName string `json:"unique_name"`
	Email      string `json:"email"`
	CompanyID  string `json:"company_id"`
}
type IdentityClaims struct {
	Identity
	jwt.RegisteredClaims
}

func CreateIdentityToken(identity *TimedockIdentity, base64Secret string, expiresInSeconds int64) (string, error) {
	secretBytes, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return "", err
	}
	claims := IdentityClaims{
		Identity: Identity{
			ID:         identity.Id,
			UniqueName: identity.UserName,
			Email:      identity.Email,
			CompanyID:  identity.CompanyID,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "timedock",
			Audience:  []string{"*.timedock.com"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expiresInSeconds) * time.Second)),
		},
	}

	// Use HS256 signing method (symmetric key)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secretBytes))
}
