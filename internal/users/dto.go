package users

import (
	"time"

	"github.com/angelmondragon/roasapp-backend/pkg/db/models"
	"github.com/angelmondragon/roasapp-backend/pkg/enums"
	"github.com/google/uuid"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Username    string         `json:"username"`
	Role        enums.UserRole `json:"role"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Username     string
	PasswordHash string
	Role         enums.UserRole
}

// UpdateProfileRequest is the PATCH /me body.
type UpdateProfileRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,username"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Username:    u.Username,
		Role:        u.Role,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleUser
	}
	return &models.User{
		Username:     c.Username,
		PasswordHash: c.PasswordHash,
		Role:         role,
	}
}
