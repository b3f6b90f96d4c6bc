package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/roasapp-backend/internal/entitlements"
	"github.com/angelmondragon/roasapp-backend/internal/users"
	"github.com/angelmondragon/roasapp-backend/pkg/db/models"
	"github.com/angelmondragon/roasapp-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/roasapp-backend/pkg/errors"
	"github.com/angelmondragon/roasapp-backend/pkg/logger"
	"github.com/angelmondragon/roasapp-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userLister interface {
	ListPage(ctx context.Context, role enums.UserRole, after *pagination.Cursor, limit int) ([]models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type entitlementManager interface {
	ListForUsers(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]entitlements.Status, error)
	Grant(ctx context.Context, input entitlements.GrantInput) (entitlements.Status, error)
	Uninstall(ctx context.Context, userID, appID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionRevoker interface {
	RevokeUser(ctx context.Context, userID uuid.UUID) error
}

// Service backs the admin console.
type Service interface {
	ListUsers(ctx context.Context, params pagination.Params) (*UserPage, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	GrantAccess(ctx context.Context, userID, appID uuid.UUID, req GrantRequest) (entitlements.Status, error)
	UninstallApp(ctx context.Context, userID, appID uuid.UUID) error
}

// ServiceParams names the admin dependencies.
type ServiceParams struct {
	Users        userLister
	Entitlements entitlementManager
	Tx           txRunner
	Sessions     sessionRevoker
	Logger       *logger.Logger
}

type service struct {
	users        userLister
	entitlements entitlementManager
	tx           txRunner
	sessions     sessionRevoker
	logg         *logger.Logger
}

// NewService builds the admin service.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Entitlements == nil {
		return nil, fmt.Errorf("entitlements service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session revoker required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		users:        params.Users,
		entitlements: params.Entitlements,
		tx:           params.Tx,
		sessions:     params.Sessions,
		logg:         params.Logger,
	}, nil
}

// ListUsers pages through regular users, oldest first, with the status of every installed app.
func (s *service) ListUsers(ctx context.Context, params pagination.Params) (*UserPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.users.ListPage(ctx, enums.UserRoleUser, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	rows, more := pagination.Trim(rows, params.Limit)

	ids := make([]uuid.UUID, 0, len(rows))
	for _, u := range rows {
		ids = append(ids, u.ID)
	}
	apps, err := s.entitlements.ListForUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	page := &UserPage{Users: make([]UserSummary, 0, len(rows))}
	for i := range rows {
		statuses := apps[rows[i].ID]
		if statuses == nil {
			statuses = []entitlements.Status{}
		}
		page.Users = append(page.Users, UserSummary{UserDTO: *users.FromModel(&rows[i]), Apps: statuses})
	}
	page.NextCursor = pagination.NextCursor(rows, more, func(u models.User) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	})
	return page, nil
}

// DeleteUser removes a regular user and their installations in one transaction, then ends
// their sessions. Admin accounts cannot be deleted here.
func (s *service) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin accounts cannot be deleted")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := entitlements.NewRepository(tx).DeleteLinksForUser(ctx, userID); err != nil {
			return err
		}
		_, err := users.NewRepository(tx).Delete(ctx, userID)
		return err
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}

	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, userID.String()), "failed to revoke sessions of deleted user", err)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"deleted_user_id": userID.String(), "username": user.Username}), "user deleted")
	return nil
}

func (s *service) GrantAccess(ctx context.Context, userID, appID uuid.UUID, req GrantRequest) (entitlements.Status, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entitlements.Status{}, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return entitlements.Status{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	st, err := s.entitlements.Grant(ctx, entitlements.GrantInput{
		UserID:      userID,
		AppID:       appID,
		Kind:        req.Type,
		Duration:    req.Duration,
		CustomHours: req.CustomHours,
	})
	if err != nil {
		return entitlements.Status{}, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"target_user_id": userID.String(),
		"app":            st.AppSlug,
		"grant":          req.Type,
		"expires_at":     st.ExpiresAt,
	}), "access granted")
	return st, nil
}

func (s *service) UninstallApp(ctx context.Context, userID, appID uuid.UUID) error {
	return s.entitlements.Uninstall(ctx, userID, appID)
}
