package enums

import (
	"fmt"
	"strings"
)

// UserRole captures the coarse platform role carried in access tokens.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

var validUserRoles = []UserRole{UserRoleUser, UserRoleAdmin}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value matches a known role.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts the raw string to UserRole.
func ParseUserRole(value string) (UserRole, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validUserRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
