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

// userTokenRepository implements the domain.UserTokenRepository interface using GORM.
type userTokenRepository struct {
	db *gorm.DB
}

// NewUserTokenRepository is the constructor for userTokenRepository.
func NewUserTokenRepository(db *gorm.DB) repository.UserTokenRepository {
	return &userTokenRepository{db: db}
}

// FindToken retrieves the token stored in the given (provider, purpose) slot.
func (repo *userTokenRepository) FindToken(ctx context.Context, userID uuid.UUID, provider, purpose string) (*entity.UserToken, error) {
	var tokenM model.UserTokenModel
	err := repo.db.WithContext(ctx).
		Where("user_id = ? AND provider = ? AND purpose = ?", userID, provider, purpose).
		First(&tokenM).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrTokenNotFound
		}

		return nil, errors.Wrap(err, "failed to find user token")
	}

	return tokenM.ToEntity(), nil
}

// UpsertToken stores value in the slot, overwriting any previous token.
// The conflict target is the slot's composite unique index, so a login always
// lands the new token whether or not the slot existed before.
func (repo *userTokenRepository) UpsertToken(ctx context.Context, userID uuid.UUID, provider, purpose, value string) error {
	tokenM := &model.UserTokenModel{
		UserID:   userID,
		Provider: provider,
		Purpose:  purpose,
		Value:    value,
	}

	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "provider"}, {Name: "purpose"}},
			DoUpdates: clause.Assignments(map[string]any{
				"value":      value,
				"generation": gorm.Expr("user_tokens.generation + 1"),
				"updated_at": gorm.Expr("now()"),
			}),
		}).
		Create(tokenM).Error
	if err != nil {
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrUserNotFound.WrapMessage("token owner does not exist")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to upsert user token")
	}

	return nil
}

// ReplaceTokenIfMatch rotates the slot from current.Value to next in a single
// conditional UPDATE. The WHERE clause pins both the old value and the
// generation the caller read, so when two refreshes race only one UPDATE
// matches a row; the loser sees zero rows affected and gets ErrTokenConflict.
func (repo *userTokenRepository) ReplaceTokenIfMatch(ctx context.Context, current *entity.UserToken, next string) error {
	result := repo.db.WithContext(ctx).
		Model(&model.UserTokenModel{}).
		Where("user_id = ? AND provider = ? AND purpose = ? AND value = ? AND generation = ?",
			current.UserID, current.Provider, current.Purpose, current.Value, current.Generation).
		Updates(map[string]any{
			"value":      next,
			"generation": gorm.Expr("generation + 1"),
		})

	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to rotate user token")
	}
	if result.RowsAffected == 0 {
		return repository.ErrTokenConflict
	}

	return nil
}
