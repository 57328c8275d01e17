package repository

import (
	"context"
	"errors"

	"identity/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrTokenNotFound is returned when a user has no stored token for the
// requested provider/purpose slot.
var ErrTokenNotFound = errors.New("user token not found")

// ErrTokenConflict is returned by ReplaceTokenIfMatch when the stored token
// no longer matches the expected value, meaning another rotation won.
var ErrTokenConflict = errors.New("user token was rotated concurrently")

// UserTokenRepository manages the per-user token slots. A user holds at most
// one token per (provider, purpose) pair.
type UserTokenRepository interface {
	// FindToken retrieves the token stored in the given slot.
	// Returns ErrTokenNotFound when the slot is empty.
	FindToken(ctx context.Context, userID uuid.UUID, provider, purpose string) (*entity.UserToken, error)

	// UpsertToken stores value in the slot, overwriting any previous token
	// and bumping the slot's generation.
	UpsertToken(ctx context.Context, userID uuid.UUID, provider, purpose, value string) error

	// ReplaceTokenIfMatch atomically swaps the slot's value from expected to
	// next. The swap only succeeds when the stored row still carries the
	// expected value and generation; otherwise ErrTokenConflict is returned
	// and the row is left untouched.
	ReplaceTokenIfMatch(ctx context.Context, current *entity.UserToken, next string) error
}
