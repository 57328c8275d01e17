package entity

import (
	"time"

	"github.com/google/uuid"
)

// Token provider and purpose values for the per-user token slots. Each user
// holds at most one token per (provider, purpose) pair; issuing a new one
// overwrites the previous value.
const (
	// TokenProviderSelf marks tokens issued by this service itself.
	TokenProviderSelf = "identity"

	// TokenPurposeAccess is the slot for the most recently issued access token.
	TokenPurposeAccess = "access"
	// TokenPurposeRefresh is the slot for the currently valid refresh token.
	TokenPurposeRefresh = "refresh"
)

// TokenPair is the result of a successful login or refresh: a signed JWT
// access token and an opaque refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UserToken is a stored token slot for a user. The (UserID, Provider, Purpose)
// triple is unique; Generation increments on every rotation of the slot and
// guards concurrent refresh attempts.
type UserToken struct {
	UserID     uuid.UUID
	Provider   string
	Purpose    string
	Value      string
	Generation int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
