package auth

import (
	"github.com/angelmondragon/roasapp-backend/internal/users"
)

// RegisterRequest carries the credentials for a new account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,username"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the refresh endpoint body; the expired access token travels in the
// Authorization header.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LoginResponse contains the token pair and the signed-in user.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// RefreshResponse carries the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
