package impl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"identity/internal/domain/entity"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/repository"
	"identity/internal/domain/service"

	"github.com/google/uuid"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- in-memory repositories ---

type tokenSlotKey struct {
	userID   uuid.UUID
	provider string
	purpose  string
}

type fakeStore struct {
	usersByID    map[uuid.UUID]*entity.User
	usersByEmail map[string]*entity.User
	tokens       map[tokenSlotKey]*entity.UserToken

	// rotateHook runs just before ReplaceTokenIfMatch evaluates its condition,
	// letting tests interleave a concurrent rotation.
	rotateHook func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		usersByID:    make(map[uuid.UUID]*entity.User),
		usersByEmail: make(map[string]*entity.User),
		tokens:       make(map[tokenSlotKey]*entity.UserToken),
	}
}

func (s *fakeStore) addUser(user *entity.User) *entity.User {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.usersByID[user.ID] = user
	s.usersByEmail[user.Email] = user

	return user
}

func (s *fakeStore) token(userID uuid.UUID, purpose string) *entity.UserToken {
	return s.tokens[tokenSlotKey{userID: userID, provider: entity.TokenProviderSelf, purpose: purpose}]
}

type fakeUserRepo struct{ store *fakeStore }

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	user, ok := r.store.usersByID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return user, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	user, ok := r.store.usersByEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return user, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	if _, exists := r.store.usersByEmail[user.Email]; exists {
		return fmt.Errorf("duplicate email %s", user.Email)
	}
	r.store.addUser(user)

	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *entity.User) error {
	if _, ok := r.store.usersByID[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	r.store.usersByID[user.ID] = user
	r.store.usersByEmail[user.Email] = user

	return nil
}

type fakeTokenRepo struct{ store *fakeStore }

func (r *fakeTokenRepo) FindToken(_ context.Context, userID uuid.UUID, provider, purpose string) (*entity.UserToken, error) {
	token, ok := r.store.tokens[tokenSlotKey{userID: userID, provider: provider, purpose: purpose}]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}

	copied := *token

	return &copied, nil
}

func (r *fakeTokenRepo) UpsertToken(_ context.Context, userID uuid.UUID, provider, purpose, value string) error {
	key := tokenSlotKey{userID: userID, provider: provider, purpose: purpose}
	if existing, ok := r.store.tokens[key]; ok {
		existing.Value = value
		existing.Generation++
		existing.UpdatedAt = time.Now()

		return nil
	}

	r.store.tokens[key] = &entity.UserToken{
		UserID:    userID,
		Provider:  provider,
		Purpose:   purpose,
		Value:     value,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	return nil
}

func (r *fakeTokenRepo) ReplaceTokenIfMatch(_ context.Context, current *entity.UserToken, next string) error {
	if r.store.rotateHook != nil {
		hook := r.store.rotateHook
		r.store.rotateHook = nil
		hook()
	}

	key := tokenSlotKey{userID: current.UserID, provider: current.Provider, purpose: current.Purpose}
	stored, ok := r.store.tokens[key]
	if !ok || stored.Value != current.Value || stored.Generation != current.Generation {
		return repository.ErrTokenConflict
	}

	stored.Value = next
	stored.Generation++
	stored.UpdatedAt = time.Now()

	return nil
}

type fakeFactory struct{ store *fakeStore }

func (f *fakeFactory) NewUserRepository() repository.UserRepository {
	return &fakeUserRepo{store: f.store}
}

func (f *fakeFactory) NewUserTokenRepository() repository.UserTokenRepository {
	return &fakeTokenRepo{store: f.store}
}

// fakeTxManager runs the callback against the shared store without any real
// transaction semantics; rollback behavior is covered by postgres tests.
type fakeTxManager struct{ store *fakeStore }

func (m *fakeTxManager) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	return fn(&fakeFactory{store: m.store})
}

// --- fake domain services ---

// fakePlainHasher treats hashes as "hash:<password>" so tests stay fast.
type fakePlainHasher struct{}

func (fakePlainHasher) Hash(password string) (string, error) { return "hash:" + password, nil }

func (fakePlainHasher) Check(password, hash string) bool { return hash == "hash:"+password }

func (fakePlainHasher) ValidatePasswordStrength(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("password too short")
	}

	return nil
}

// fakeTokenService issues deterministic tokens. Access tokens encode the
// subject as "access:<n>:<email>" so ExtractSubject can read it back.
type fakeTokenService struct {
	issued  int
	signErr error
}

func (s *fakeTokenService) IssueTokenPair(user *entity.User) (*entity.TokenPair, error) {
	if s.signErr != nil {
		return nil, s.signErr
	}
	if _, ok := user.Roles.Primary(); !ok {
		return nil, domainerrors.ErrNoRoleAssigned
	}

	s.issued++

	return &entity.TokenPair{
		AccessToken:  fmt.Sprintf("access:%d:%s", s.issued, user.Email),
		RefreshToken: fmt.Sprintf("refresh:%d", s.issued),
	}, nil
}

func (s *fakeTokenService) ExtractSubject(tokenString string) (string, error) {
	parts := strings.SplitN(tokenString, ":", 3)
	if len(parts) != 3 || parts[0] != "access" {
		return "", fmt.Errorf("malformed token %q", tokenString)
	}

	return parts[2], nil
}

var _ service.TokenService = (*fakeTokenService)(nil)
var _ service.PasswordHasher = fakePlainHasher{}
