package model

import (
	"time"

	"github.com/google/uuid"

	"identity/internal/domain/entity"
)

// UserModel mirrors the 'users' table. PostgreSQL generates UUIDs via uuid_generate_v7().
// It is an exported type so it can be used by the GORM Gen tool from other packages.
type UserModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Email          string    `gorm:"type:varchar(255);unique;not null"`
	Name           string    `gorm:"type:varchar(100)"`
	PasswordHash   string    `gorm:"type:varchar(255);not null"`
	EmailConfirmed bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Roles  []*RoleModel     `gorm:"many2many:user_roles;joinForeignKey:UserID;joinReferences:RoleID"`
	Tokens []UserTokenModel `gorm:"foreignKey:UserID"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}

// ToEntity converts the persistence model to a domain entity.
// Role ordering follows the join rows, so the first assigned role stays first.
func (m *UserModel) ToEntity() *entity.User {
	names := make([]string, 0, len(m.Roles))
	for _, role := range m.Roles {
		names = append(names, role.Name)
	}

	return &entity.User{
		ID:             m.ID,
		Email:          m.Email,
		Name:           m.Name,
		PasswordHash:   m.PasswordHash,
		EmailConfirmed: m.EmailConfirmed,
		Roles:          entity.RolesFromStrings(names),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// RoleModel mirrors the 'roles' table.
type RoleModel struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"type:varchar(50);unique;not null"`
}

// TableName explicitly sets the table name for GORM.
func (RoleModel) TableName() string {
	return "roles"
}
