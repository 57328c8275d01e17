package service

import (
	"identity/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
)

// Claims defines the claim set carried by access tokens. The subject and the
// email claim both hold the user's email address, and Role holds the user's
// first assigned role only.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService defines the interface for issuing token pairs and reading
// subjects back out of presented access tokens.
// This abstracts the details of token creation from the use cases.
type TokenService interface {
	// IssueTokenPair creates a signed access token and an opaque refresh
	// token for the given user.
	IssueTokenPair(user *entity.User) (*entity.TokenPair, error)

	// ExtractSubject verifies the signature and algorithm of an access token
	// and returns its subject. Expiry is deliberately not checked: an expired
	// token is still a valid proof of subject during refresh.
	ExtractSubject(tokenString string) (string, error)
}
