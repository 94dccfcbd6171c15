package model

import "github.com/golang-jwt/jwt/v5"

// Identity is an already-resolved user from the identity provider
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`

	UserAgent string `json:"-"`
}

// IdentityClaims are the JWT claims issued by the identity provider.
// The subject carries the user id.
type IdentityClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}
