package models

import (
	"time"

	"github.com/angelmondragon/roasapp-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Username     string         `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null;default:user"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key client side so SQLite and Postgres behave the same.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = enums.UserRoleUser
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == enums.UserRoleAdmin
}
