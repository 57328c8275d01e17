// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	"identity/internal/domain/entity"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/repository"
	"identity/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepository implements the domain.UserRepository interface using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository is the constructor for userRepository.
// It returns the repository as a domain.UserRepository interface, adhering to dependency inversion.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// FindByID retrieves a single user by their unique ID, roles preloaded.
func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var userM model.UserModel
	err := repo.db.WithContext(ctx).
		Preload("Roles", preserveRoleOrder).
		Where("id = ?", id).
		First(&userM).Error

	if err != nil {
		// If the error is 'record not found', return a domain-specific error.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user by id")
	}

	// Map the persistence model back to a pure domain entity before returning.
	return userM.ToEntity(), nil
}

// FindByEmail retrieves a single user by their email address, roles preloaded.
func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var userM model.UserModel
	err := repo.db.WithContext(ctx).
		Preload("Roles", preserveRoleOrder).
		Where("email = ?", email).
		First(&userM).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	return userM.ToEntity(), nil
}

// Create persists a new user entity and its role memberships.
// Role rows are looked up by name and attached; they are never created here.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	roles, err := repo.findRoles(ctx, user.Roles)
	if err != nil {
		return err
	}

	userM := fromUserDomain(user)
	userM.Roles = roles

	err = repo.db.WithContext(ctx).
		Omit("Roles.*"). // attach existing role rows, do not insert new ones
		Create(userM).Error
	if err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrUserAlreadyExists.WrapMessage("email already exists")
		}
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrUserCreationFailed.WrapMessage("invalid role reference")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create user")
	}

	// Update the user entity with the generated ID and timestamps
	user.ID = userM.ID
	user.CreatedAt = userM.CreatedAt
	user.UpdatedAt = userM.UpdatedAt

	return nil
}

// Update modifies an existing user entity in the database.
// Role memberships are not touched here; only the user's own columns change.
func (repo *userRepository) Update(ctx context.Context, user *entity.User) error {
	userM := fromUserDomain(user)

	err := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"email":           userM.Email,
			"name":            userM.Name,
			"password_hash":   userM.PasswordHash,
			"email_confirmed": userM.EmailConfirmed,
		}).Error
	if err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrUserAlreadyExists.WrapMessage("email already exists")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to update user")
	}

	return nil
}

// findRoles loads the role rows matching the entity's role names.
func (repo *userRepository) findRoles(ctx context.Context, roles entity.Roles) ([]*model.RoleModel, error) {
	if len(roles) == 0 {
		return nil, nil
	}

	var found []*model.RoleModel
	err := repo.db.WithContext(ctx).
		Where("name IN ?", roles.ToStrings()).
		Find(&found).Error
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to load roles")
	}
	if len(found) != len(roles) {
		return nil, domainerrors.ErrUserCreationFailed.WrapMessage("unknown role name")
	}

	// Keep the caller's assignment order rather than the database's.
	byName := make(map[string]*model.RoleModel, len(found))
	for _, role := range found {
		byName[role.Name] = role
	}
	ordered := make([]*model.RoleModel, 0, len(roles))
	for _, role := range roles {
		ordered = append(ordered, byName[role.String()])
	}

	return ordered, nil
}

// preserveRoleOrder orders preloaded roles by role id so the first role a
// user was granted is deterministic across queries.
func preserveRoleOrder(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderByColumn{Column: clause.Column{Table: "user_roles", Name: "role_id"}})
}

// fromUserDomain converts a domain User entity to a GORM UserModel for persistence.
func fromUserDomain(data *entity.User) *model.UserModel {
	if data == nil {
		return nil
	}

	return &model.UserModel{
		ID:             data.ID,
		Email:          data.Email,
		Name:           data.Name,
		PasswordHash:   data.PasswordHash,
		EmailConfirmed: data.EmailConfirmed,
	}
}
