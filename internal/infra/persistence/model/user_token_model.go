package model

import (
	"time"

	"github.com/google/uuid"

	"identity/internal/domain/entity"
)

// UserTokenModel mirrors the 'user_tokens' table. Each row is one token slot:
// the composite unique index keeps a user at a single token per
// (provider, purpose) pair, and Generation increments on every rotation.
type UserTokenModel struct {
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_tokens_slot"`
	Provider   string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_user_tokens_slot"`
	Purpose    string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_user_tokens_slot"`
	Value      string    `gorm:"type:text;not null"`
	Generation int64     `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (UserTokenModel) TableName() string {
	return "user_tokens"
}

// ToEntity converts the persistence model to a domain entity.
func (m *UserTokenModel) ToEntity() *entity.UserToken {
	return &entity.UserToken{
		UserID:     m.UserID,
		Provider:   m.Provider,
		Purpose:    m.Purpose,
		Value:      m.Value,
		Generation: m.Generation,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
