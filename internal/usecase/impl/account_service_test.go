package impl

import (
	"context"
	"testing"

	"identity/internal/domain/entity"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// accountServiceFixtures holds all test dependencies for account service tests.
type accountServiceFixtures struct {
	service      usecase.AccountUsecase
	store        *fakeStore
	tokenService *fakeTokenService
}

func createTestAccountService(t *testing.T) accountServiceFixtures {
	t.Helper()

	store := newFakeStore()
	tokenService := &fakeTokenService{}

	service := NewAccountService(AccountServiceParams{
		TxManager:     &fakeTxManager{store: store},
		UserRepo:      &fakeUserRepo{store: store},
		UserTokenRepo: &fakeTokenRepo{store: store},
		Hasher:        fakePlainHasher{},
		TokenService:  tokenService,
		Logger:        newDiscardLogger(),
	})

	return accountServiceFixtures{
		service:      service,
		store:        store,
		tokenService: tokenService,
	}
}

func seedUser(fx accountServiceFixtures, email, password string, roles entity.Roles) *entity.User {
	return fx.store.addUser(&entity.User{
		Email:          email,
		Name:           email,
		PasswordHash:   "hash:" + password,
		EmailConfirmed: true,
		Roles:          roles,
	})
}

func TestAccountService_Register_Success(t *testing.T) {
	fx := createTestAccountService(t)

	output, err := fx.service.Register(context.Background(), usecase.RegisterInput{
		Email:    "new@example.com",
		Password: "Secret1.",
	})

	require.NoError(t, err)
	assert.Equal(t, "new@example.com", output.User.Email)
	assert.Equal(t, "new@example.com", output.User.Name, "name falls back to email")
	assert.Equal(t, entity.Roles{entity.RoleUser}, output.User.Roles)
	assert.Equal(t, "hash:Secret1.", output.User.PasswordHash)
	assert.NotNil(t, fx.store.usersByEmail["new@example.com"])
}

func TestAccountService_Register_WeakPassword(t *testing.T) {
	fx := createTestAccountService(t)

	_, err := fx.service.Register(context.Background(), usecase.RegisterInput{
		Email:    "new@example.com",
		Password: "abc",
	})

	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
	assert.Empty(t, fx.store.usersByEmail)
}

func TestAccountService_Login_Success(t *testing.T) {
	fx := createTestAccountService(t)
	user := seedUser(fx, "a@b.com", "Secret1.", entity.Roles{entity.RoleAdmin})

	output, err := fx.service.Login(context.Background(), usecase.LoginInput{
		Email:    "a@b.com",
		Password: "Secret1.",
	})

	require.NoError(t, err)
	assert.Equal(t, "access:1:a@b.com", output.Tokens.AccessToken)
	assert.Equal(t, "refresh:1", output.Tokens.RefreshToken)

	accessSlot := fx.store.token(user.ID, entity.TokenPurposeAccess)
	refreshSlot := fx.store.token(user.ID, entity.TokenPurposeRefresh)
	require.NotNil(t, accessSlot)
	require.NotNil(t, refreshSlot)
	assert.Equal(t, output.Tokens.AccessToken, accessSlot.Value)
	assert.Equal(t, output.Tokens.RefreshToken, refreshSlot.Value)
}

func TestAccountService_Login_OverwritesPreviousPair(t *testing.T) {
	fx := createTestAccountService(t)
	user := seedUser(fx, "a@b.com", "Secret1.", entity.Roles{entity.RoleAdmin})

	ctx := context.Background()
	input := usecase.LoginInput{Email: "a@b.com", Password: "Secret1."}

	first, err := fx.service.Login(ctx, input)
	require.NoError(t, err)
	second, err := fx.service.Login(ctx, input)
	require.NoError(t, err)

	assert.NotEqual(t, first.Tokens.RefreshToken, second.Tokens.RefreshToken)

	refreshSlot := fx.store.token(user.ID, entity.TokenPurposeRefresh)
	assert.Equal(t, second.Tokens.RefreshToken, refreshSlot.Value, "second login displaces the first pair")
	assert.Equal(t, int64(1), refreshSlot.Generation)
}

func TestAccountService_Login_UserNotFound(t *testing.T) {
	fx := createTestAccountService(t)

	_, err := fx.service.Login(context.Background(), usecase.LoginInput{
		Email:    "nobody@example.com",
		Password: "Secret1.",
	})

	assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
}

func TestAccountService_Login_WrongPassword(t *testing.T) {
	fx := createTestAccountService(t)
	user := seedUser(fx, "a@b.com", "Secret1.", entity.Roles{entity.RoleAdmin})

	_, err := fx.service.Login(context.Background(), usecase.LoginInput{
		Email:    "a@b.com",
		Password: "wrong-password",
	})

	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	assert.Nil(t, fx.store.token(user.ID, entity.TokenPurposeRefresh), "no tokens stored on failed login")
}

func TestAccountService_Login_UnconfirmedEmail(t *testing.T) {
	fx := createTestAccountService(t)
	user := seedUser(fx, "a@b.com", "Secret1.", entity.Roles{entity.RoleAdmin})
	user.EmailConfirmed = false

	_, err := fx.service.Login(context.Background(), usecase.LoginInput{
		Email:    "a@b.com",
		Password: "Secret1.",
	})

	assert.ErrorIs(t, err, domainerrors.ErrSignInNotAllowed)
}

func TestAccountService_Login_NoRoleAssigned(t *testing.T) {
	fx := createTestAccountService(t)
	user := seedUser(fx, "a@b.com", "Secret1.", nil)

	_, err := fx.service.Login(context.Background(), usecase.LoginInput{
		Email:    "a@b.com",
		Password: "Secret1.",
	})

	assert.ErrorIs(t, err, domainerrors.ErrNoRoleAssigned)
	assert.Nil(t, fx.store.token(user.ID, entity.TokenPurposeRefresh))
}

func loginFor(t *testing.T, fx accountServiceFixtures, email, password string) *usecase.TokenOutput {
	t.Helper()

	output, err := fx.service.Login(context.Background(), usecase.LoginInput{Email: email, Password: password})
	require.NoError(t, err)

	return output
}

func TestAccountService_Refresh_Success(t *testing.T) {
	fx := createTestAccountService(t)
	user := seedUser(fx, "a@b.com", "Secret1.", entity.Roles{entity.RoleAdmin})
	login := loginFor(t, fx, "a@b.com", "Secret1.")

	output, err := fx.service.Refresh(context.Background(), usecase.RefreshInput{
		AccessToken:  login.Tokens.AccessToken,
		RefreshToken: login.Tokens.RefreshToken,
	})

	require.NoError(t, err)
	assert.NotEqual(t, login.Tokens.RefreshToken, output.Tokens.RefreshToken, "refresh token rotates on every use")
	assert.NotEqual(t, login.Tokens.AccessToken, output.Tokens.AccessToken)

	refreshSlot := fx.store.token(user.ID, entity.TokenPurposeRefresh)
	assert.Equal(t, output.Tokens.RefreshToken, refreshSlot.Value)
	assert.Equal(t, int64(1), refreshSlot.Generation, "rotation bumps the slot generation")
	assert.Equal(t, output.Tokens.AccessToken, fx.store.token(user.ID, entity.TokenPurposeAccess).Value)
}

func TestAccountService_Refresh_ReplayRejected(t *testing.T) {
	fx := createTestAccountService(t)
	seedUser(fx, "a@b.com", "Secret1.", entity.Roles{entity.RoleAdmin})
	login := loginFor(t, fx, "a@b.com", "Secret1.")

	ctx := context.Background()
	input := usecase.RefreshInput{
		AccessToken:  login.Tokens.AccessToken,
		RefreshToken: login.Tokens.RefreshToken,
	}

	_, err := fx.service.Refresh(ctx, input)
	require.NoError(t, err)

	// Presenting the consumed refresh token again must fail.
	_, err = fx.service.Refresh(ctx, input)
	assert.ErrorIs(t, err, domainerrors.ErrRefreshMismatch)
}

func TestAccountService_Refresh_BadAccessToken(t *testing.T) {
	fx := createTestAccountService(t)
	user := seedUser(fx, "a@b.com", "Secret1.", entity.Roles{entity.RoleAdmin})
	login := loginFor(t, fx, "a@b.com", "Secret1.")

	before := *fx.store.token(user.ID, entity.TokenPurposeRefresh)

	_, err := fx.service.Refresh(context.Background(), usecase.RefreshInput{
		AccessToken:  "garbage",
		RefreshToken: login.Tokens.RefreshToken,
	})

	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
	assert.Equal(t, before, *fx.store.token(user.ID, entity.TokenPurposeRefresh), "store untouched on rejected refresh")
}

func TestAccountService_Refresh_UnknownSubject(t *testing.T) {
	fx := createTestAccountService(t)

	_, err := fx.service.Refresh(context.Background(), usecase.RefreshInput{
		AccessToken:  "access:1:ghost@example.com",
		RefreshToken: "refresh:1",
	})

	assert.ErrorIs(t, err, domainerrors.ErrRefreshSubjectUnknown)
}

func TestAccountService_Refresh_NoStoredToken(t *testing.T) {
	fx := createTestAccountService(t)
	seedUser(fx, "a@b.com", "Secret1.", entity.Roles{entity.RoleAdmin})

	_, err := fx.service.Refresh(context.Background(), usecase.RefreshInput{
		AccessToken:  "access:1:a@b.com",
		RefreshToken: "refresh:1",
	})

	assert.ErrorIs(t, err, domainerrors.ErrRefreshMismatch)
}

func TestAccountService_Refresh_MismatchedRefreshToken(t *testing.T) {
	fx := createTestAccountService(t)
	user := seedUser(fx, "a@b.com", "Secret1.", entity.Roles{entity.RoleAdmin})
	login := loginFor(t, fx, "a@b.com", "Secret1.")

	_, err := fx.service.Refresh(context.Background(), usecase.RefreshInput{
		AccessToken:  login.Tokens.AccessToken,
		RefreshToken: "refresh:stale",
	})

	assert.ErrorIs(t, err, domainerrors.ErrRefreshMismatch)
	assert.Equal(t, login.Tokens.RefreshToken, fx.store.token(user.ID, entity.TokenPurposeRefresh).Value)
}

func TestAccountService_Refresh_ConcurrentRotationLoses(t *testing.T) {
	fx := createTestAccountService(t)
	user := seedUser(fx, "a@b.com", "Secret1.", entity.Roles{entity.RoleAdmin})
	login := loginFor(t, fx, "a@b.com", "Secret1.")

	// Interleave a competing rotation between this request's read and its swap.
	fx.store.rotateHook = func() {
		slot := fx.store.token(user.ID, entity.TokenPurposeRefresh)
		slot.Value = "refresh:winner"
		slot.Generation++
	}

	_, err := fx.service.Refresh(context.Background(), usecase.RefreshInput{
		AccessToken:  login.Tokens.AccessToken,
		RefreshToken: login.Tokens.RefreshToken,
	})

	assert.ErrorIs(t, err, domainerrors.ErrRefreshMismatch)
	assert.Equal(t, "refresh:winner", fx.store.token(user.ID, entity.TokenPurposeRefresh).Value,
		"the competing rotation's token survives")
}

func TestAccountService_ChangePassword_Success(t *testing.T) {
	fx := createTestAccountService(t)
	user := seedUser(fx, "a@b.com", "Secret1.", entity.Roles{entity.RoleAdmin})

	err := fx.service.ChangePassword(context.Background(), usecase.ChangePasswordInput{
		Email:           "a@b.com",
		CurrentPassword: "Secret1.",
		NewPassword:     "Another2!",
	})

	require.NoError(t, err)
	assert.Equal(t, "hash:Another2!", fx.store.usersByID[user.ID].PasswordHash)
}

func TestAccountService_ChangePassword_WrongCurrentPassword(t *testing.T) {
	fx := createTestAccountService(t)
	user := seedUser(fx, "a@b.com", "Secret1.", entity.Roles{entity.RoleAdmin})

	err := fx.service.ChangePassword(context.Background(), usecase.ChangePasswordInput{
		Email:           "a@b.com",
		CurrentPassword: "wrong",
		NewPassword:     "Another2!",
	})

	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	assert.Equal(t, "hash:Secret1.", fx.store.usersByID[user.ID].PasswordHash)
}

func TestAccountService_CurrentUser(t *testing.T) {
	fx := createTestAccountService(t)
	seedUser(fx, "a@b.com", "Secret1.", entity.Roles{entity.RoleAdmin})

	user, err := fx.service.CurrentUser(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)

	_, err = fx.service.CurrentUser(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
}
