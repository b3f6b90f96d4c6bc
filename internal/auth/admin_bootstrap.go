package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/roasapp-backend/internal/users"
	"github.com/angelmondragon/roasapp-backend/pkg/config"
	"github.com/angelmondragon/roasapp-backend/pkg/db/models"
	"github.com/angelmondragon/roasapp-backend/pkg/enums"
	"github.com/angelmondragon/roasapp-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type adminStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error
}

const tempAdminPasswordLength = 20

// AdminBootstrap reports what EnsureAdmin did. TempPassword is set only when a new admin was
// created without a configured password and must be shown to the operator once.
type AdminBootstrap struct {
	User         *models.User
	Created      bool
	TempPassword string
}

// EnsureAdmin makes sure the named account exists with the admin role. An existing user is
// promoted and keeps their password; a new one gets the given password or a generated one.
func EnsureAdmin(ctx context.Context, repo adminStore, username, password string, cfg config.PasswordConfig) (*AdminBootstrap, error) {
	name, err := users.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}

	existing, err := repo.FindByUsername(ctx, name)
	switch {
	case err == nil:
		if existing.Role != enums.UserRoleAdmin {
			if err := repo.UpdateRole(ctx, existing.ID, enums.UserRoleAdmin); err != nil {
				return nil, fmt.Errorf("promote admin: %w", err)
			}
			existing.Role = enums.UserRoleAdmin
		}
		return &AdminBootstrap{User: existing}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("lookup admin: %w", err)
	}

	out := &AdminBootstrap{Created: true}
	if strings.TrimSpace(password) == "" {
		password, err = security.GenerateTempPassword(tempAdminPasswordLength)
		if err != nil {
			return nil, fmt.Errorf("generate admin password: %w", err)
		}
		out.TempPassword = password
	}
	hash, err := security.HashPassword(password, cfg)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	user, err := repo.Create(ctx, users.CreateUserDTO{Username: name, PasswordHash: hash, Role: enums.UserRoleAdmin})
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	out.User = user
	return out, nil
}
