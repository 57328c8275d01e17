// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"identity/internal/domain/entity"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a new account.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// LoginInput defines the data required for a user to log in.
type LoginInput struct {
	Email    string
	Password string
}

// RefreshInput carries the token pair presented for rotation: the (possibly
// expired) access token proving the subject, and the refresh token to match
// against the stored slot.
type RefreshInput struct {
	AccessToken  string
	RefreshToken string
}

// ChangePasswordInput defines the data required to change a password.
// Email identifies the authenticated account, taken from the token subject.
type ChangePasswordInput struct {
	Email           string
	CurrentPassword string
	NewPassword     string
}

// --- Output DTOs ---

// RegisterOutput returns the newly created user's basic information.
type RegisterOutput struct {
	User *entity.User
}

// TokenOutput returns the issued token pair after a successful login or refresh.
type TokenOutput struct {
	Tokens *entity.TokenPair
	User   *entity.User
}

// AccountUsecase defines the interface for account and token operations.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AccountUsecase interface {
	Register(ctx context.Context, input RegisterInput) (*RegisterOutput, error)
	Login(ctx context.Context, input LoginInput) (*TokenOutput, error)
	Refresh(ctx context.Context, input RefreshInput) (*TokenOutput, error)
	ChangePassword(ctx context.Context, input ChangePasswordInput) error
	CurrentUser(ctx context.Context, userEmail string) (*entity.User, error)
}
