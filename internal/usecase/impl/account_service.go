// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"crypto/subtle"
	"log/slog"

	deliverycontext "identity/internal/delivery/context"
	"identity/internal/domain/entity"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/repository"
	"identity/internal/domain/service"
	"identity/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// accountService implements the AccountUsecase interface.
type accountService struct {
	txManager     repository.TransactionManager
	userRepo      repository.UserRepository
	userTokenRepo repository.UserTokenRepository
	hasher        service.PasswordHasher
	tokenService  service.TokenService
	logger        *slog.Logger
}

// AccountServiceParams holds dependencies for accountService, injected by Fx.
type AccountServiceParams struct {
	fx.In

	TxManager     repository.TransactionManager
	UserRepo      repository.UserRepository
	UserTokenRepo repository.UserTokenRepository
	Hasher        service.PasswordHasher
	TokenService  service.TokenService
	Logger        *slog.Logger
}

// NewAccountService is the constructor for accountService. It receives all dependencies as interfaces.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	return &accountService{
		txManager:     params.TxManager,
		userRepo:      params.UserRepo,
		userTokenRepo: params.UserTokenRepo,
		hasher:        params.Hasher,
		tokenService:  params.TokenService,
		logger:        params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates a new account with the default role.
func (srv *accountService) Register(ctx context.Context, input usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	srv.log(ctx).Info("Starting registration", slog.String("email", input.Email))

	if err := srv.hasher.ValidatePasswordStrength(input.Password); err != nil {
		srv.log(ctx).Warn("Password validation failed during registration", slog.String("email", input.Email), slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "password does not meet security requirements")
	}

	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during registration", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to hash password during registration")
	}

	name := input.Name
	if name == "" {
		name = input.Email
	}
	newUser := &entity.User{
		Email:          input.Email,
		Name:           name,
		PasswordHash:   hashedPassword,
		EmailConfirmed: true,
		Roles:          entity.Roles{entity.RoleUser},
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.NewUserRepository().Create(ctx, newUser)
	})
	if err != nil {
		srv.log(ctx).Error("Failed to execute registration transaction", slog.String("email", input.Email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute registration transaction")
	}

	srv.log(ctx).Debug("Registration completed", slog.Any("userID", newUser.ID))

	return &usecase.RegisterOutput{User: newUser}, nil
}

// Login verifies credentials and issues a fresh token pair. The new access and
// refresh tokens land in the user's token slots before the pair is returned,
// so a pair the caller holds is always one the store has seen.
func (srv *accountService) Login(ctx context.Context, input usecase.LoginInput) (*usecase.TokenOutput, error) {
	srv.log(ctx).Debug("Starting login", slog.String("email", input.Email))

	user, err := srv.loadUserByEmail(ctx, input.Email)
	if err != nil {
		srv.log(ctx).Warn("Login failed", slog.String("email", input.Email), slog.Any("error", err))

		return nil, err
	}

	// Check password outside the transaction (bcrypt is CPU-bound).
	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.log(ctx).Warn("Login failed", slog.String("email", input.Email), slog.Any("error", domainerrors.ErrInvalidCredentials))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	if !user.CanSignIn() {
		srv.log(ctx).Warn("Login blocked", slog.String("email", input.Email))

		return nil, errors.Wrap(domainerrors.ErrSignInNotAllowed, "login failed")
	}

	pair, err := srv.tokenService.IssueTokenPair(user)
	if err != nil {
		srv.log(ctx).Error("Failed to issue token pair", slog.Any("userID", user.ID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to issue token pair")
	}

	// Overwrite both slots in one transaction: a login always displaces any
	// previously issued pair.
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		tokenRepo := repoFactory.NewUserTokenRepository()

		if err := tokenRepo.UpsertToken(ctx, user.ID, entity.TokenProviderSelf, entity.TokenPurposeAccess, pair.AccessToken); err != nil {
			return errors.Wrap(err, "failed to store access token")
		}

		return errors.Wrap(
			tokenRepo.UpsertToken(ctx, user.ID, entity.TokenProviderSelf, entity.TokenPurposeRefresh, pair.RefreshToken),
			"failed to store refresh token",
		)
	})
	if err != nil {
		srv.log(ctx).Error("Failed to persist token pair", slog.Any("userID", user.ID), slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrIssuanceFailed, "failed to persist token pair")
	}

	srv.log(ctx).Debug("Login completed", slog.Any("userID", user.ID))

	return &usecase.TokenOutput{Tokens: pair, User: user}, nil
}

// Refresh rotates a token pair. The presented access token only has to carry a
// valid signature; it may be expired. The presented refresh token must match
// the stored slot exactly, and the rotation is a conditional swap so that when
// two refreshes race only one of them wins.
func (srv *accountService) Refresh(ctx context.Context, input usecase.RefreshInput) (*usecase.TokenOutput, error) {
	srv.log(ctx).Debug("Starting token refresh")

	subject, err := srv.tokenService.ExtractSubject(input.AccessToken)
	if err != nil {
		srv.log(ctx).Warn("Refresh rejected: bad access token", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrInvalidToken, "refresh failed")
	}

	var output *usecase.TokenOutput
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.NewUserRepository()
		tokenRepo := repoFactory.NewUserTokenRepository()

		user, err := userRepo.FindByEmail(ctx, subject)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return errors.Wrap(domainerrors.ErrRefreshSubjectUnknown, "refresh failed")
			}

			return errors.Wrap(err, "failed to resolve token subject")
		}

		stored, err := tokenRepo.FindToken(ctx, user.ID, entity.TokenProviderSelf, entity.TokenPurposeRefresh)
		if err != nil {
			if errors.Is(err, repository.ErrTokenNotFound) {
				return errors.Wrap(domainerrors.ErrRefreshMismatch, "no refresh token on record")
			}

			return errors.Wrap(err, "failed to load stored refresh token")
		}

		if subtle.ConstantTimeCompare([]byte(stored.Value), []byte(input.RefreshToken)) != 1 {
			return errors.Wrap(domainerrors.ErrRefreshMismatch, "presented refresh token does not match")
		}

		pair, err := srv.tokenService.IssueTokenPair(user)
		if err != nil {
			return errors.Wrap(err, "failed to issue token pair")
		}

		// Conditional swap pinned to the value and generation read above.
		// A concurrent refresh that already rotated the slot makes this
		// fail, and the whole transaction rolls back.
		if err := tokenRepo.ReplaceTokenIfMatch(ctx, stored, pair.RefreshToken); err != nil {
			if errors.Is(err, repository.ErrTokenConflict) {
				return errors.Wrap(domainerrors.ErrRefreshMismatch, "refresh token was rotated concurrently")
			}

			return errors.Wrap(err, "failed to rotate refresh token")
		}

		if err := tokenRepo.UpsertToken(ctx, user.ID, entity.TokenProviderSelf, entity.TokenPurposeAccess, pair.AccessToken); err != nil {
			return errors.Wrap(err, "failed to store access token")
		}

		output = &usecase.TokenOutput{Tokens: pair, User: user}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Refresh failed", slog.Any("error", err))

		return nil, err
	}

	srv.log(ctx).Debug("Refresh completed", slog.Any("userID", output.User.ID))

	return output, nil
}

// ChangePassword verifies the current password and swaps in a new hash.
func (srv *accountService) ChangePassword(ctx context.Context, input usecase.ChangePasswordInput) error {
	srv.log(ctx).Info("Changing password", slog.String("email", input.Email))

	if err := srv.hasher.ValidatePasswordStrength(input.NewPassword); err != nil {
		return errors.Wrap(domainerrors.ErrValidationFailed, "new password does not meet security requirements")
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.NewUserRepository()

		user, err := userRepo.FindByEmail(ctx, input.Email)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return errors.Wrap(domainerrors.ErrUserNotFound, "change password failed")
			}

			return errors.Wrap(err, "failed to load user")
		}

		if !srv.hasher.Check(input.CurrentPassword, user.PasswordHash) {
			return errors.Wrap(domainerrors.ErrInvalidCredentials, "current password mismatch")
		}

		newHash, err := srv.hasher.Hash(input.NewPassword)
		if err != nil {
			return errors.Wrap(err, "failed to hash new password")
		}
		user.PasswordHash = newHash

		return errors.Wrap(userRepo.Update(ctx, user), "failed to update password")
	})
	if err != nil {
		srv.log(ctx).Warn("Change password failed", slog.String("email", input.Email), slog.Any("error", err))

		return err
	}

	srv.log(ctx).Info("Password changed", slog.String("email", input.Email))

	return nil
}

// CurrentUser loads the account behind an authenticated request.
func (srv *accountService) CurrentUser(ctx context.Context, userEmail string) (*entity.User, error) {
	user, err := srv.userRepo.FindByEmail(ctx, userEmail)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errors.Wrap(domainerrors.ErrUserNotFound, "current user lookup failed")
		}

		return nil, errors.Wrap(err, "failed to load current user")
	}

	return user, nil
}

// loadUserByEmail reads the user from the primary in a short transaction to
// avoid stale reads on replicas during login.
func (srv *accountService) loadUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user *entity.User

	if err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var findErr error
		user, findErr = repoFactory.NewUserRepository().FindByEmail(ctx, email)
		if findErr != nil {
			if errors.Is(findErr, repository.ErrUserNotFound) {
				return errors.Wrap(domainerrors.ErrUserNotFound, "login failed")
			}

			return errors.Wrap(findErr, "failed to find user by email")
		}

		return nil
	}); err != nil {
		return nil, err
	}

	return user, nil
}
