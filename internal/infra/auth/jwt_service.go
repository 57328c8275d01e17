// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"identity/config"
	"identity/internal/domain/entity"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/service"
)

// refreshTokenBytes is the entropy of an opaque refresh token before encoding.
const refreshTokenBytes = 32

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	signingKey []byte        // Symmetric HMAC secret for signing and verifying access tokens.
	issuer     string        // Value of the iss claim, also used as the audience.
	accessTTL  time.Duration // Time-to-live for access tokens.
}

// NewJWTService is the constructor for jwtService.
// It takes configuration values to create a new token service instance.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg.JWT.SigningKey == "" {
		return nil, errors.New("jwt signing key must be provided")
	}

	return &jwtService{
		signingKey: []byte(cfg.JWT.SigningKey),
		issuer:     cfg.JWT.Issuer,
		accessTTL:  cfg.JWT.AccessTokenLifetime(),
	}, nil
}

// IssueTokenPair creates a signed access token and an opaque refresh token for a user.
// The access token carries the user's email as subject and the user's first
// role only; the refresh token is random bytes with no structure at all.
func (s *jwtService) IssueTokenPair(user *entity.User) (*entity.TokenPair, error) {
	role, ok := user.Roles.Primary()
	if !ok {
		return nil, domainerrors.ErrNoRoleAssigned
	}

	now := time.Now()
	claims := &service.Claims{
		Email: user.Email,
		Name:  user.Email,
		Role:  role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.issuer},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign access token")
	}

	refreshToken, err := newOpaqueToken()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate refresh token")
	}

	return &entity.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// ExtractSubject verifies the token's signature and algorithm and returns the
// sub claim. Expiry is intentionally not enforced: the refresh flow accepts
// an expired access token as proof of subject, so only the signature and the
// HS256 requirement gate acceptance here.
func (s *jwtService) ExtractSubject(tokenString string) (string, error) {
	claims := &service.Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			return s.signingKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse access token")
	}

	if claims.Subject == "" {
		return "", errors.New("access token carries no subject")
	}

	return claims.Subject, nil
}

// newOpaqueToken returns a base64-encoded random token.
func newOpaqueToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}
