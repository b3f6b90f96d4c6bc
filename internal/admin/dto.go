package admin

import (
	"github.com/angelmondragon/roasapp-backend/internal/entitlements"
	"github.com/angelmondragon/roasapp-backend/internal/users"
	"github.com/angelmondragon/roasapp-backend/pkg/enums"
)

// UserSummary is one row of the admin user table.
type UserSummary struct {
	users.UserDTO
	Apps []entitlements.Status `json:"apps"`
}

// UserPage is a cursor page of users.
type UserPage struct {
	Users      []UserSummary `json:"users"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// GrantRequest is the body of the grant endpoint.
type GrantRequest struct {
	Type        enums.GrantKind       `json:"type" validate:"required,oneof=trial premium"`
	Duration    enums.PremiumDuration `json:"duration" validate:"omitempty,oneof=24h 3d 7d 1m custom"`
	CustomHours int                   `json:"custom_hours" validate:"omitempty,gt=0,lte=87600"`
}
